package booking

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
)

// Appointment is the persisted booking document. JSON field names follow the
// shape the admin and booking clients already consume, _id included.
type Appointment struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Name              string             `bson:"name" json:"name"`
	Email             string             `bson:"email" json:"email"`
	ContactNumber     string             `bson:"contactNumber" json:"contactNumber"`
	Area              string             `bson:"area" json:"area"`
	Date              string             `bson:"date" json:"date"`
	Time              []string           `bson:"time" json:"time"`
	Remark            string             `bson:"remark,omitempty" json:"remark,omitempty"`
	PaymentStatus     PaymentStatus      `bson:"paymentStatus,omitempty" json:"paymentStatus,omitempty"`
	RazorpayOrderID   string             `bson:"razorpayOrderId,omitempty" json:"razorpayOrderId,omitempty"`
	RazorpayPaymentID string             `bson:"razorpayPaymentId,omitempty" json:"razorpayPaymentId,omitempty"`
	Attempted         bool               `bson:"attempted" json:"attempted"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

var (
	emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	phonePattern = regexp.MustCompile(`^\+\d{10,15}$`)
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern  = regexp.MustCompile(`^(?:[01]\d|2[0-3]):[0-5]\d$`)
)

// Validate enforces the write-time rules; a document failing here is never
// persisted.
func (a *Appointment) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !emailPattern.MatchString(a.Email) {
		return fmt.Errorf("%w: please enter a valid email", ErrValidation)
	}
	if !phonePattern.MatchString(a.ContactNumber) {
		return fmt.Errorf("%w: please enter a valid contact number", ErrValidation)
	}
	if a.Area == "" {
		return fmt.Errorf("%w: area is required", ErrValidation)
	}
	if !datePattern.MatchString(a.Date) {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	if len(a.Time) == 0 {
		return fmt.Errorf("%w: at least one time slot is required", ErrValidation)
	}
	seen := make(map[string]struct{}, len(a.Time))
	for _, t := range a.Time {
		if !timePattern.MatchString(t) {
			return fmt.Errorf("%w: time slot %q must be HH:MM", ErrValidation, t)
		}
		if _, dup := seen[t]; dup {
			return fmt.Errorf("%w: duplicate time slot %q", ErrValidation, t)
		}
		seen[t] = struct{}{}
	}
	switch a.PaymentStatus {
	case "", PaymentPending, PaymentCompleted:
	default:
		return fmt.Errorf("%w: unknown payment status %q", ErrValidation, a.PaymentStatus)
	}
	return nil
}

// SlotTimes decodes either a single "HH:MM" string or an array of them, the
// two shapes the booking client has historically sent.
type SlotTimes []string

func (s *SlotTimes) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*s = many
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*s = []string{one}
		return nil
	}
	return fmt.Errorf("time must be a string or an array of strings")
}

// Form is the booking form payload submitted by the public client.
type Form struct {
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	ContactNumber string    `json:"contactNumber"`
	Area          string    `json:"area"`
	Date          string    `json:"date"`
	Time          SlotTimes `json:"time"`
	Remark        string    `json:"remark"`
}

func (f Form) toAppointment() Appointment {
	return Appointment{
		Name:          strings.TrimSpace(f.Name),
		Email:         strings.TrimSpace(f.Email),
		ContactNumber: strings.TrimSpace(f.ContactNumber),
		Area:          strings.TrimSpace(f.Area),
		Date:          strings.TrimSpace(f.Date),
		Time:          append([]string(nil), f.Time...),
		Remark:        strings.TrimSpace(f.Remark),
	}
}
