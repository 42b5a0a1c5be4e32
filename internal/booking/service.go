package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/slotbook/appointment-api/internal/eventlog"
	"github.com/slotbook/appointment-api/internal/payments"
	redisclient "github.com/slotbook/appointment-api/internal/redis"
	"github.com/slotbook/appointment-api/pkg/logger"
	"github.com/slotbook/appointment-api/pkg/metrics"
)

var (
	ErrInvalidSignature = errors.New("invalid payment signature")
	ErrDateBeingBooked  = errors.New("bookings for this date are in progress, please retry")
)

type Service struct {
	repo    Repository
	orders  payments.OrderCreator
	locker  redisclient.Locker
	events  eventlog.Recorder
	metrics *metrics.Metrics
	log     logger.Logger
	secret  string
	now     func() time.Time
}

// NewService wires the booking flow. secret is the payment provider key
// secret used to authenticate callbacks; events and m may be nil.
func NewService(repo Repository, orders payments.OrderCreator, locker redisclient.Locker, events eventlog.Recorder, m *metrics.Metrics, log logger.Logger, secret string) *Service {
	if events == nil {
		events = eventlog.Nop{}
	}
	return &Service{
		repo:    repo,
		orders:  orders,
		locker:  locker,
		events:  events,
		metrics: m,
		log:     log,
		secret:  secret,
		now:     time.Now,
	}
}

type CreateOrderInput struct {
	Amount   int64
	Currency string
	Slots    []string
	Date     string
}

// CreateOrder checks availability for the requested slots and, when all are
// free, creates a payment-provider order. Nothing is reserved: the same check
// runs again inside VerifyPayment, where the store constraint is final.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (string, error) {
	if in.Amount <= 0 || in.Currency == "" || len(in.Slots) == 0 || in.Date == "" {
		return "", fmt.Errorf("%w: required fields are missing", ErrValidation)
	}

	taken, err := s.repo.CountConfirmedOverlapping(ctx, in.Date, in.Slots, "")
	if err != nil {
		return "", fmt.Errorf("check availability: %w", err)
	}
	if taken > 0 {
		s.conflict(ctx, "", in.Date, in.Slots)
		return "", ErrSlotTaken
	}

	receipt := fmt.Sprintf("receipt_%d", s.now().UnixMilli())
	orderID, err := s.orders.Create(ctx, in.Amount, in.Currency, receipt)
	if err != nil {
		s.count(func(m *metrics.Metrics) { m.ErrorsCount.WithLabelValues("create_order").Inc() })
		return "", fmt.Errorf("create order: %w", err)
	}

	s.count(func(m *metrics.Metrics) { m.OrdersCreated.Inc() })
	s.logEvent(ctx, "", eventlog.EventOrderCreated, map[string]any{
		"order_id": orderID,
		"date":     in.Date,
		"slots":    in.Slots,
		"amount":   in.Amount,
		"currency": in.Currency,
	})

	return orderID, nil
}

type VerifyPaymentInput struct {
	OrderID   string
	PaymentID string
	Signature string
	Form      Form
}

// VerifyPayment authenticates a payment callback and persists the confirmed
// appointment. The availability re-check and insert run inside a date-scoped
// lock; the partial unique index backs the same invariant at the store level,
// so at most one confirmed appointment exists per (date, slot).
func (s *Service) VerifyPayment(ctx context.Context, in VerifyPaymentInput) (*Appointment, error) {
	if in.OrderID == "" || in.PaymentID == "" || in.Signature == "" || in.Form.Date == "" {
		return nil, fmt.Errorf("%w: required payment details are missing", ErrValidation)
	}

	if !payments.VerifySignature(in.OrderID, in.PaymentID, in.Signature, s.secret) {
		s.count(func(m *metrics.Metrics) { m.SignatureRejected.Inc() })
		s.logEvent(ctx, "", eventlog.EventSignatureRejected, map[string]any{
			"order_id":   in.OrderID,
			"payment_id": in.PaymentID,
		})
		return nil, ErrInvalidSignature
	}

	appt := in.Form.toAppointment()
	appt.PaymentStatus = PaymentCompleted
	appt.RazorpayOrderID = in.OrderID
	appt.RazorpayPaymentID = in.PaymentID

	if err := appt.Validate(); err != nil {
		return nil, err
	}

	start := s.now()

	var created *Appointment
	err := s.locker.WithDateLock(ctx, appt.Date, func(lockCtx context.Context) error {
		taken, err := s.repo.CountConfirmedOverlapping(lockCtx, appt.Date, appt.Time, "")
		if err != nil {
			return fmt.Errorf("re-check availability: %w", err)
		}
		if taken > 0 {
			return ErrSlotTaken
		}

		created, err = s.repo.Create(lockCtx, &appt)
		return err
	})

	if err != nil {
		switch {
		case errors.Is(err, redisclient.ErrLockNotAcquired):
			return nil, ErrDateBeingBooked
		case errors.Is(err, ErrSlotTaken):
			s.conflict(ctx, in.OrderID, appt.Date, appt.Time)
			return nil, ErrSlotTaken
		default:
			s.count(func(m *metrics.Metrics) { m.ErrorsCount.WithLabelValues("verify_payment").Inc() })
			return nil, err
		}
	}

	s.count(func(m *metrics.Metrics) {
		m.PaymentsVerified.Inc()
		m.BookingDuration.Observe(s.now().Sub(start).Seconds())
	})
	s.logEvent(ctx, created.ID.Hex(), eventlog.EventPaymentVerified, map[string]any{
		"order_id":   in.OrderID,
		"payment_id": in.PaymentID,
		"date":       created.Date,
		"slots":      created.Time,
	})

	return created, nil
}

// CreateAppointment is the free booking path: no payment, the appointment is
// stored as pending and does not block any slot.
func (s *Service) CreateAppointment(ctx context.Context, f Form) (*Appointment, error) {
	appt := f.toAppointment()
	appt.PaymentStatus = PaymentPending

	if err := appt.Validate(); err != nil {
		return nil, err
	}

	var created *Appointment
	err := s.locker.WithDateLock(ctx, appt.Date, func(lockCtx context.Context) error {
		taken, err := s.repo.CountConfirmedOverlapping(lockCtx, appt.Date, appt.Time, "")
		if err != nil {
			return fmt.Errorf("check availability: %w", err)
		}
		if taken > 0 {
			return ErrSlotTaken
		}

		created, err = s.repo.Create(lockCtx, &appt)
		return err
	})

	if err != nil {
		switch {
		case errors.Is(err, redisclient.ErrLockNotAcquired):
			return nil, ErrDateBeingBooked
		case errors.Is(err, ErrSlotTaken):
			s.conflict(ctx, "", appt.Date, appt.Time)
			return nil, ErrSlotTaken
		default:
			return nil, err
		}
	}

	s.logEvent(ctx, created.ID.Hex(), eventlog.EventAppointmentCreated, map[string]any{
		"date":  created.Date,
		"slots": created.Time,
	})

	return created, nil
}

// BookedTimes returns the confirmed-booked time values for date. A store
// failure is a hard failure of the booking step, never an empty answer.
func (s *Service) BookedTimes(ctx context.Context, date string) ([]string, error) {
	return s.repo.BookedTimes(ctx, date)
}

// AvailableSlots returns the slot catalog for date minus the confirmed
// bookings, plus the booked list itself.
func (s *Service) AvailableSlots(ctx context.Context, date string) (available, booked []string, err error) {
	booked, err = s.repo.BookedTimes(ctx, date)
	if err != nil {
		return nil, nil, err
	}

	takenSet := make(map[string]struct{}, len(booked))
	for _, t := range booked {
		takenSet[t] = struct{}{}
	}

	available = []string{}
	for slot := range Slots(date, s.now()) {
		if _, taken := takenSet[slot]; !taken {
			available = append(available, slot)
		}
	}
	return available, booked, nil
}

func (s *Service) GetAppointment(ctx context.Context, id string) (*Appointment, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) ListAppointments(ctx context.Context) ([]Appointment, error) {
	return s.repo.FindAll(ctx)
}

// UpdateAppointment replaces the editable field set. Moving a confirmed
// appointment onto taken slots is rejected, its own slots excluded.
func (s *Service) UpdateAppointment(ctx context.Context, id string, f Form) (*Appointment, error) {
	appt := f.toAppointment()
	if err := appt.Validate(); err != nil {
		return nil, err
	}

	taken, err := s.repo.CountConfirmedOverlapping(ctx, appt.Date, appt.Time, id)
	if err != nil {
		return nil, fmt.Errorf("check availability: %w", err)
	}
	if taken > 0 {
		s.conflict(ctx, "", appt.Date, appt.Time)
		return nil, ErrSlotTaken
	}

	updated, err := s.repo.Update(ctx, id, &appt)
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, updated.ID.Hex(), eventlog.EventAppointmentUpdated, map[string]any{
		"date":  updated.Date,
		"slots": updated.Time,
	})
	return updated, nil
}

func (s *Service) SetAttempted(ctx context.Context, id string, attempted bool) (*Appointment, error) {
	return s.repo.SetAttempted(ctx, id, attempted)
}

func (s *Service) DeleteAppointment(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logEvent(ctx, id, eventlog.EventAppointmentDeleted, nil)
	return nil
}

func (s *Service) conflict(ctx context.Context, orderID, date string, slots []string) {
	s.count(func(m *metrics.Metrics) { m.SlotConflicts.Inc() })
	payload := map[string]any{"date": date, "slots": slots}
	if orderID != "" {
		payload["order_id"] = orderID
	}
	s.logEvent(ctx, "", eventlog.EventSlotConflict, payload)
}

func (s *Service) count(fn func(m *metrics.Metrics)) {
	if s.metrics != nil {
		fn(s.metrics)
	}
}

func (s *Service) logEvent(ctx context.Context, appointmentID, eventType string, payload map[string]any) {
	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			s.log.Error("marshal event payload failed", "event", eventType, "error", err)
			data = nil
		}
	}

	ev := eventlog.Event{
		EventType:     eventType,
		AppointmentID: appointmentID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.events.Record(ctx, ev); err != nil {
		s.log.Error("record booking event failed", "event", eventType, "error", err)
	}
}
