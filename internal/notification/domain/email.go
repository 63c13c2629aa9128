package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmehra2102/Facility-Booking-System/pkg/apperr"
	"github.com/dmehra2102/Facility-Booking-System/pkg/outbox"
)

// ErrMalformed marks a message that can never be delivered. Consumers drop it instead of retrying.
var ErrMalformed = apperr.New(apperr.Validation, "MALFORMED_MESSAGE", "malformed notification message")

type Email struct {
	To      string
	Subject string
	Body    string
}

type template struct {
	subject string
	noun    string
	verb    string
	service string
}

var templates = map[string]template{
	outbox.TopicBookingPlaced: {subject: "Your Booking Confirmation", noun: "booking", verb: "confirmed", service: "Booking"},
	outbox.TopicEventPlaced:   {subject: "Your Event Confirmation", noun: "event", verb: "registered", service: "Event"},
}

// Decode parses the payload of a placed message.
func Decode(payload []byte) (outbox.Placed, error) {
	var p outbox.Placed
	if err := json.Unmarshal(payload, &p); err != nil {
		return outbox.Placed{}, ErrMalformed.WithCause(err)
	}
	if p.EntityID == "" {
		return outbox.Placed{}, ErrMalformed.WithCause(fmt.Errorf("entityId is empty"))
	}
	return p, nil
}

// Compose renders the confirmation email for a placed message received on topic.
func Compose(topic string, p outbox.Placed) (Email, error) {
	tpl, ok := templates[topic]
	if !ok {
		return Email{}, ErrMalformed.WithCause(fmt.Errorf("unknown topic %q", topic))
	}
	if !strings.Contains(p.NotifyEmail, "@") {
		return Email{}, ErrMalformed.WithCause(fmt.Errorf("%s %s has no recipient", tpl.noun, p.EntityID))
	}

	var b strings.Builder
	b.WriteString("Hello,\n\n")
	fmt.Fprintf(&b, "Your %s has been successfully %s.\n\n", tpl.noun, tpl.verb)
	fmt.Fprintf(&b, "%s Details:\n- %s ID: %s\n\n", tpl.service, tpl.service, p.EntityID)
	fmt.Fprintf(&b, "Thank you for using our %sService.\n", tpl.service)

	return Email{To: p.NotifyEmail, Subject: tpl.subject, Body: b.String()}, nil
}
