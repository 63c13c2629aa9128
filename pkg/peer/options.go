package peer

import (
	"log/slog"
	"time"

	"github.com/dmehra2102/Facility-Booking-System/pkg/breaker"
)

// Guarded returns the options every service uses for one dependency: the lookup timeout and a
// dedicated breaker whose transitions are logged.
func Guarded(log *slog.Logger, name string, timeout time.Duration, s breaker.Settings) []Option {
	b := breaker.New(name, s, breaker.OnStateChange(func(name string, from, to breaker.State) {
		log.Warn("peer breaker transition", "peer", name, "from", from.String(), "to", to.String())
	}))
	return []Option{WithTimeout(timeout), WithBreaker(b)}
}
