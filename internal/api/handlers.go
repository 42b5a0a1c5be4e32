package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/slotbook/appointment-api/internal/booking"
	"github.com/slotbook/appointment-api/internal/payments"
)

// BookingService is the surface the handlers need from the booking package.
type BookingService interface {
	CreateOrder(ctx context.Context, in booking.CreateOrderInput) (string, error)
	VerifyPayment(ctx context.Context, in booking.VerifyPaymentInput) (*booking.Appointment, error)
	CreateAppointment(ctx context.Context, f booking.Form) (*booking.Appointment, error)
	BookedTimes(ctx context.Context, date string) ([]string, error)
	AvailableSlots(ctx context.Context, date string) (available, booked []string, err error)
	GetAppointment(ctx context.Context, id string) (*booking.Appointment, error)
	ListAppointments(ctx context.Context) ([]booking.Appointment, error)
	UpdateAppointment(ctx context.Context, id string, f booking.Form) (*booking.Appointment, error)
	SetAttempted(ctx context.Context, id string, attempted bool) (*booking.Appointment, error)
	DeleteAppointment(ctx context.Context, id string) error
}

func createOrderHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "could not parse JSON body")
			return
		}

		orderID, err := svc.CreateOrder(r.Context(), booking.CreateOrderInput{
			Amount:   req.Amount,
			Currency: req.Currency,
			Slots:    req.Slots,
			Date:     req.Date,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, CreateOrderResponse{OrderID: orderID})
	}
}

func verifyPaymentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VerifyPaymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "could not parse JSON body")
			return
		}

		appt, err := svc.VerifyPayment(r.Context(), booking.VerifyPaymentInput{
			OrderID:   req.OrderID,
			PaymentID: req.PaymentID,
			Signature: req.Signature,
			Form:      req.Form,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, appt)
	}
}

func createAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form booking.Form
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			writeError(w, http.StatusBadRequest, "could not parse JSON body")
			return
		}

		appt, err := svc.CreateAppointment(r.Context(), form)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, appt)
	}
}

// appointmentsIndexHandler serves two callers on one path: the public booking
// client asking for taken times on a date, and the authenticated admin panel
// listing every appointment.
func appointmentsIndexHandler(svc BookingService, adminSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if date := r.URL.Query().Get("date"); date != "" {
			times, err := svc.BookedTimes(r.Context(), date)
			if err != nil {
				handleBookingError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, times)
			return
		}

		if err := authenticateAdmin(r, adminSecret); err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		appointments, err := svc.ListAppointments(r.Context())
		if err != nil {
			handleBookingError(w, err)
			return
		}
		if appointments == nil {
			appointments = []booking.Appointment{}
		}
		writeJSON(w, http.StatusOK, appointments)
	}
}

func slotsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("date")
		if date == "" {
			writeError(w, http.StatusBadRequest, "date query parameter is required")
			return
		}

		available, booked, err := svc.AvailableSlots(r.Context(), date)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, SlotsResponse{
			Date:      date,
			Available: available,
			Booked:    booked,
		})
	}
}

func getAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := svc.GetAppointment(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleBookingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func updateAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form booking.Form
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			writeError(w, http.StatusBadRequest, "could not parse JSON body")
			return
		}

		appt, err := svc.UpdateAppointment(r.Context(), chi.URLParam(r, "id"), form)
		if err != nil {
			handleBookingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func attemptedHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AttemptedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Attempted == nil {
			writeError(w, http.StatusBadRequest, "attempted status must be a boolean")
			return
		}

		appt, err := svc.SetAttempted(r.Context(), chi.URLParam(r, "id"), *req.Attempted)
		if err != nil {
			handleBookingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func deleteAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteAppointment(r.Context(), chi.URLParam(r, "id")); err != nil {
			handleBookingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{Message: "appointment deleted successfully"})
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrValidation),
		errors.Is(err, booking.ErrSlotTaken),
		errors.Is(err, booking.ErrInvalidSignature):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrDateBeingBooked):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, payments.ErrOrderTimeout):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
