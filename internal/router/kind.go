package router

import (
	"fmt"
	"strings"

	"github.com/manav03panchal/medtrack/internal/errors"
)

// Kind is the entity kind a request applies to.
type Kind int

// Entity kinds. The zero value is not a valid kind.
const (
	KindMedication Kind = iota + 1
	KindDoctor
	KindAppointment
)

// AllKinds returns every valid kind in declaration order.
func AllKinds() []Kind {
	return []Kind{KindMedication, KindDoctor, KindAppointment}
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindMedication, KindDoctor, KindAppointment:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	switch k {
	case KindMedication:
		return "medication"
	case KindDoctor:
		return "doctor"
	case KindAppointment:
		return "appointment"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind parses a kind name. Single-letter and short forms are accepted.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "medication", "med", "m":
		return KindMedication, nil
	case "doctor", "doc", "d":
		return KindDoctor, nil
	case "appointment", "appt", "a":
		return KindAppointment, nil
	default:
		return 0, errors.NewInvalidField("kind", s, "unknown kind", errors.ErrUnknownKind)
	}
}
