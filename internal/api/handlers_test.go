package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/slotbook/appointment-api/internal/booking"
	"github.com/slotbook/appointment-api/pkg/logger"
)

const adminSecret = "test_admin_secret"

// stubService implements BookingService with per-test function fields; a nil
// field means the test does not expect that call.
type stubService struct {
	createOrder       func(ctx context.Context, in booking.CreateOrderInput) (string, error)
	verifyPayment     func(ctx context.Context, in booking.VerifyPaymentInput) (*booking.Appointment, error)
	createAppointment func(ctx context.Context, f booking.Form) (*booking.Appointment, error)
	bookedTimes       func(ctx context.Context, date string) ([]string, error)
	availableSlots    func(ctx context.Context, date string) ([]string, []string, error)
	getAppointment    func(ctx context.Context, id string) (*booking.Appointment, error)
	listAppointments  func(ctx context.Context) ([]booking.Appointment, error)
	updateAppointment func(ctx context.Context, id string, f booking.Form) (*booking.Appointment, error)
	setAttempted      func(ctx context.Context, id string, attempted bool) (*booking.Appointment, error)
	deleteAppointment func(ctx context.Context, id string) error
}

func (s *stubService) CreateOrder(ctx context.Context, in booking.CreateOrderInput) (string, error) {
	return s.createOrder(ctx, in)
}

func (s *stubService) VerifyPayment(ctx context.Context, in booking.VerifyPaymentInput) (*booking.Appointment, error) {
	return s.verifyPayment(ctx, in)
}

func (s *stubService) CreateAppointment(ctx context.Context, f booking.Form) (*booking.Appointment, error) {
	return s.createAppointment(ctx, f)
}

func (s *stubService) BookedTimes(ctx context.Context, date string) ([]string, error) {
	return s.bookedTimes(ctx, date)
}

func (s *stubService) AvailableSlots(ctx context.Context, date string) ([]string, []string, error) {
	return s.availableSlots(ctx, date)
}

func (s *stubService) GetAppointment(ctx context.Context, id string) (*booking.Appointment, error) {
	return s.getAppointment(ctx, id)
}

func (s *stubService) ListAppointments(ctx context.Context) ([]booking.Appointment, error) {
	return s.listAppointments(ctx)
}

func (s *stubService) UpdateAppointment(ctx context.Context, id string, f booking.Form) (*booking.Appointment, error) {
	return s.updateAppointment(ctx, id, f)
}

func (s *stubService) SetAttempted(ctx context.Context, id string, attempted bool) (*booking.Appointment, error) {
	return s.setAttempted(ctx, id, attempted)
}

func (s *stubService) DeleteAppointment(ctx context.Context, id string) error {
	return s.deleteAppointment(ctx, id)
}

func newTestRouter(svc BookingService) http.Handler {
	return NewRouter(RouterConfig{
		Service:        svc,
		Log:            logger.NewNop(),
		AdminJWTSecret: adminSecret,
		AllowedOrigins: []string{"*"},
		Env:            "test",
		Version:        "test",
	})
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func adminToken(t *testing.T, secret string) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + token
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func sampleAppointment() *booking.Appointment {
	return &booking.Appointment{
		ID:            primitive.NewObjectID(),
		Name:          "Asha Rao",
		Email:         "asha@example.com",
		ContactNumber: "+911234567890",
		Area:          "Remote",
		Date:          "2030-01-02",
		Time:          []string{"09:00"},
		PaymentStatus: booking.PaymentCompleted,
	}
}

func TestCreateOrderEndpoint(t *testing.T) {
	svc := &stubService{
		createOrder: func(ctx context.Context, in booking.CreateOrderInput) (string, error) {
			assert.Equal(t, int64(50000), in.Amount)
			assert.Equal(t, "INR", in.Currency)
			return "order_test_1", nil
		},
	}
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodPost, "/appointments/create-order", CreateOrderRequest{
		Amount:   50000,
		Currency: "INR",
		Slots:    []string{"09:00"},
		Date:     "2030-01-02",
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp CreateOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "order_test_1", resp.OrderID)
}

func TestCreateOrderValidationError(t *testing.T) {
	svc := &stubService{
		createOrder: func(ctx context.Context, in booking.CreateOrderInput) (string, error) {
			return "", booking.ErrValidation
		},
	}
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodPost, "/appointments/create-order", CreateOrderRequest{}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decodeError(t, rec))
}

func TestCreateOrderMalformedBody(t *testing.T) {
	router := newTestRouter(&stubService{})

	req := httptest.NewRequest(http.MethodPost, "/appointments/create-order", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "could not parse JSON body", decodeError(t, rec))
}

func TestVerifyPaymentEndpoint(t *testing.T) {
	appt := sampleAppointment()
	svc := &stubService{
		verifyPayment: func(ctx context.Context, in booking.VerifyPaymentInput) (*booking.Appointment, error) {
			assert.Equal(t, "order_abc", in.OrderID)
			assert.Equal(t, "pay_xyz", in.PaymentID)
			assert.Equal(t, "sig", in.Signature)
			return appt, nil
		},
	}
	router := newTestRouter(svc)

	body := map[string]any{
		"razorpay_order_id":   "order_abc",
		"razorpay_payment_id": "pay_xyz",
		"razorpay_signature":  "sig",
		"formData": map[string]any{
			"name": "Asha Rao",
			"date": "2030-01-02",
			"time": []string{"09:00"},
		},
	}

	rec := doJSON(t, router, http.MethodPost, "/appointments/verify-payment", body, nil)

	require.Equal(t, http.StatusCreated, rec.Code)

	var got booking.Appointment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, appt.ID, got.ID)
}

func TestVerifyPaymentBadSignatureIsBadRequest(t *testing.T) {
	svc := &stubService{
		verifyPayment: func(ctx context.Context, in booking.VerifyPaymentInput) (*booking.Appointment, error) {
			return nil, booking.ErrInvalidSignature
		},
	}
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodPost, "/appointments/verify-payment", map[string]any{
		"razorpay_order_id":   "order_abc",
		"razorpay_payment_id": "pay_xyz",
		"razorpay_signature":  "bad",
	}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, booking.ErrInvalidSignature.Error(), decodeError(t, rec))
}

func TestVerifyPaymentSlotTakenIsBadRequest(t *testing.T) {
	svc := &stubService{
		verifyPayment: func(ctx context.Context, in booking.VerifyPaymentInput) (*booking.Appointment, error) {
			return nil, booking.ErrSlotTaken
		},
	}
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodPost, "/appointments/verify-payment", map[string]any{
		"razorpay_order_id":   "order_abc",
		"razorpay_payment_id": "pay_xyz",
		"razorpay_signature":  "sig",
	}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyPaymentLockContentionIsConflict(t *testing.T) {
	svc := &stubService{
		verifyPayment: func(ctx context.Context, in booking.VerifyPaymentInput) (*booking.Appointment, error) {
			return nil, booking.ErrDateBeingBooked
		},
	}
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodPost, "/appointments/verify-payment", map[string]any{
		"razorpay_order_id":   "order_abc",
		"razorpay_payment_id": "pay_xyz",
		"razorpay_signature":  "sig",
	}, nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateAppointmentEndpoint(t *testing.T) {
	appt := sampleAppointment()
	appt.PaymentStatus = booking.PaymentPending
	svc := &stubService{
		createAppointment: func(ctx context.Context, f booking.Form) (*booking.Appointment, error) {
			assert.Equal(t, "Asha Rao", f.Name)
			return appt, nil
		},
	}
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodPost, "/appointments/", map[string]any{
		"name": "Asha Rao",
		"date": "2030-01-02",
		"time": "09:00",
	}, nil)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAppointmentsIndexPublicWithDate(t *testing.T) {
	svc := &stubService{
		bookedTimes: func(ctx context.Context, date string) ([]string, error) {
			assert.Equal(t, "2030-01-02", date)
			return []string{"09:00", "09:10"}, nil
		},
	}
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodGet, "/appointments?date=2030-01-02", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var times []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &times))
	assert.Equal(t, []string{"09:00", "09:10"}, times)
}

func TestAppointmentsIndexWithoutDateRequiresToken(t *testing.T) {
	router := newTestRouter(&stubService{})

	rec := doJSON(t, router, http.MethodGet, "/appointments", nil, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAppointmentsIndexAdminList(t *testing.T) {
	svc := &stubService{
		listAppointments: func(ctx context.Context) ([]booking.Appointment, error) {
			return []booking.Appointment{*sampleAppointment()}, nil
		},
	}
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodGet, "/appointments", nil, map[string]string{
		"Authorization": adminToken(t, adminSecret),
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var list []booking.Appointment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestAppointmentsIndexRejectsWrongKey(t *testing.T) {
	router := newTestRouter(&stubService{})

	rec := doJSON(t, router, http.MethodGet, "/appointments", nil, map[string]string{
		"Authorization": adminToken(t, "some-other-secret"),
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSlotsEndpoint(t *testing.T) {
	svc := &stubService{
		availableSlots: func(ctx context.Context, date string) ([]string, []string, error) {
			return []string{"08:00", "08:10"}, []string{"09:00"}, nil
		},
	}
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodGet, "/slots?date=2030-01-02", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp SlotsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2030-01-02", resp.Date)
	assert.Equal(t, []string{"08:00", "08:10"}, resp.Available)
	assert.Equal(t, []string{"09:00"}, resp.Booked)
}

func TestSlotsEndpointRequiresDate(t *testing.T) {
	router := newTestRouter(&stubService{})

	rec := doJSON(t, router, http.MethodGet, "/slots", nil, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "date query parameter is required", decodeError(t, rec))
}

func TestGetAppointmentRequiresToken(t *testing.T) {
	router := newTestRouter(&stubService{})

	rec := doJSON(t, router, http.MethodGet, "/appointments/abc123", nil, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetAppointmentNotFound(t *testing.T) {
	svc := &stubService{
		getAppointment: func(ctx context.Context, id string) (*booking.Appointment, error) {
			return nil, booking.ErrAppointmentNotFound
		},
	}
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodGet, "/appointments/abc123", nil, map[string]string{
		"Authorization": adminToken(t, adminSecret),
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateAppointmentConflictIsBadRequest(t *testing.T) {
	svc := &stubService{
		updateAppointment: func(ctx context.Context, id string, f booking.Form) (*booking.Appointment, error) {
			return nil, booking.ErrSlotTaken
		},
	}
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodPut, "/appointments/abc123", map[string]any{
		"name": "Asha Rao",
		"date": "2030-01-02",
		"time": []string{"09:00"},
	}, map[string]string{
		"Authorization": adminToken(t, adminSecret),
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, booking.ErrSlotTaken.Error(), decodeError(t, rec))
}

func TestAttemptedRequiresBoolean(t *testing.T) {
	router := newTestRouter(&stubService{})
	headers := map[string]string{"Authorization": adminToken(t, adminSecret)}

	rec := doJSON(t, router, http.MethodPatch, "/appointments/abc123/attempted", map[string]any{
		"attempted": "yes",
	}, headers)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "attempted status must be a boolean", decodeError(t, rec))

	rec = doJSON(t, router, http.MethodPatch, "/appointments/abc123/attempted", map[string]any{}, headers)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAttemptedEndpoint(t *testing.T) {
	appt := sampleAppointment()
	appt.Attempted = true
	svc := &stubService{
		setAttempted: func(ctx context.Context, id string, attempted bool) (*booking.Appointment, error) {
			assert.True(t, attempted)
			return appt, nil
		},
	}
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodPatch, "/appointments/abc123/attempted", map[string]any{
		"attempted": true,
	}, map[string]string{
		"Authorization": adminToken(t, adminSecret),
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var got booking.Appointment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Attempted)
}

func TestDeleteAppointmentEndpoint(t *testing.T) {
	svc := &stubService{
		deleteAppointment: func(ctx context.Context, id string) error {
			assert.Equal(t, "abc123", id)
			return nil
		},
	}
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodDelete, "/appointments/abc123", nil, map[string]string{
		"Authorization": adminToken(t, adminSecret),
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "appointment deleted successfully", resp.Message)
}

func TestDeleteAppointmentNotFound(t *testing.T) {
	svc := &stubService{
		deleteAppointment: func(ctx context.Context, id string) error {
			return booking.ErrAppointmentNotFound
		},
	}
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodDelete, "/appointments/missing", nil, map[string]string{
		"Authorization": adminToken(t, adminSecret),
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnexpectedErrorIsInternal(t *testing.T) {
	svc := &stubService{
		createOrder: func(ctx context.Context, in booking.CreateOrderInput) (string, error) {
			return "", errors.New("store is down")
		},
	}
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodPost, "/appointments/create-order", CreateOrderRequest{
		Amount:   50000,
		Currency: "INR",
		Slots:    []string{"09:00"},
		Date:     "2030-01-02",
	}, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
