package booking

import (
	"context"
	"errors"
)

var (
	ErrValidation          = errors.New("invalid appointment")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotTaken           = errors.New("one or more time slots are already booked")
)

// Repository contains all store interactions needed by the service.
type Repository interface {
	Create(ctx context.Context, a *Appointment) (*Appointment, error)
	FindByID(ctx context.Context, id string) (*Appointment, error)
	FindAll(ctx context.Context) ([]Appointment, error)

	// BookedTimes returns every time value on confirmed appointments for date.
	BookedTimes(ctx context.Context, date string) ([]string, error)

	// CountConfirmedOverlapping counts confirmed appointments on date whose
	// time set intersects slots, optionally excluding one document id.
	CountConfirmedOverlapping(ctx context.Context, date string, slots []string, excludeID string) (int64, error)

	Update(ctx context.Context, id string, a *Appointment) (*Appointment, error)
	SetAttempted(ctx context.Context, id string, attempted bool) (*Appointment, error)
	Delete(ctx context.Context, id string) error

	EnsureIndexes(ctx context.Context) error
}
