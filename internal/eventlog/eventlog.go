package eventlog

import (
	"context"
	"time"
)

const (
	EventOrderCreated       = "ORDER_CREATED"
	EventPaymentVerified    = "PAYMENT_VERIFIED"
	EventSignatureRejected  = "SIGNATURE_REJECTED"
	EventSlotConflict       = "SLOT_CONFLICT"
	EventAppointmentCreated = "APPOINTMENT_CREATED"
	EventAppointmentUpdated = "APPOINTMENT_UPDATED"
	EventAppointmentDeleted = "APPOINTMENT_DELETED"
)

// Event is one row in the booking audit trail.
type Event struct {
	ID            int64
	EventType     string
	AppointmentID string // mongo object id hex, empty when no record exists yet
	Payload       []byte
	CreatedAt     time.Time
}

// Recorder persists booking events. Implementations must be safe for
// concurrent use; recording is best effort and never fails a booking.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// Nop discards events. Used when no event-log database is configured.
type Nop struct{}

func (Nop) Record(ctx context.Context, ev Event) error { return nil }
