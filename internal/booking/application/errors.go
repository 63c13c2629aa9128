package application

import "errors"

var errInactive = errors.New("user account is inactive")
