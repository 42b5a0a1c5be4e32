package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/slotbook/appointment-api/internal/booking"
	"github.com/slotbook/appointment-api/internal/payments"
)

// Load generator for the booking flow. Workers deliberately fight over a
// small pool of (date, slot) pairs, so the success/conflict split in the
// report shows whether double bookings slip through.

type SimConfig struct {
	APIBaseURL  string
	Duration    time.Duration
	Workers     int
	VerifyRatio float64
	OrderRatio  float64
	ReadRatio   float64
	Dates       int
	Secret      string
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]

	p50Idx := len(latencies) * 50 / 100
	if p50Idx >= len(latencies) {
		p50Idx = len(latencies) - 1
	}
	p50 = latencies[p50Idx]

	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]

	return avg, min, max, p50, p95
}

type Metrics struct {
	VerifyPayment OperationMetrics
	CreateOrder   OperationMetrics
	BookedTimes   OperationMetrics
}

type Simulator struct {
	config  SimConfig
	dates   []string
	slots   []string
	client  *http.Client
	metrics Metrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: duration=%s workers=%d verify=%.2f order=%.2f read=%.2f",
		cfg.Duration, cfg.Workers, cfg.VerifyRatio, cfg.OrderRatio, cfg.ReadRatio)

	var dates []string
	for d := 1; d <= cfg.Dates; d++ {
		dates = append(dates, time.Now().AddDate(0, 0, d).Format("2006-01-02"))
	}
	// A narrow slice of the catalog keeps workers colliding.
	slots := booking.SlotList(dates[0], time.Now())
	if len(slots) > 12 {
		slots = slots[:12]
	}

	sim := &Simulator{
		config: cfg,
		dates:  dates,
		slots:  slots,
		client: &http.Client{Timeout: 10 * time.Second},
	}

	sim.Run()
	sim.PrintReport()
}

func loadConfig() SimConfig {
	_ = godotenv.Load()

	cfg := SimConfig{
		APIBaseURL:  getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:    getDuration("SIM_DURATION", 30*time.Second),
		Workers:     getInt("SIM_WORKERS", 10),
		VerifyRatio: getFloat("SIM_VERIFY_RATIO", 0.5),
		OrderRatio:  getFloat("SIM_ORDER_RATIO", 0.2),
		ReadRatio:   getFloat("SIM_READ_RATIO", 0.3),
		Dates:       getInt("SIM_DATES", 3),
		Secret:      os.Getenv("RAZORPAY_KEY_SECRET"),
	}

	total := cfg.VerifyRatio + cfg.OrderRatio + cfg.ReadRatio
	if total > 0 {
		cfg.VerifyRatio /= total
		cfg.OrderRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Secret == "" {
		return fmt.Errorf("RAZORPAY_KEY_SECRET is required to sign simulated callbacks")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.Dates <= 0 {
		return fmt.Errorf("SIM_DATES must be > 0")
	}
	return nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < s.config.VerifyRatio:
				s.doVerifyPayment(ctx, rng)
			case r < s.config.VerifyRatio+s.config.OrderRatio:
				s.doCreateOrder(ctx, rng)
			default:
				s.doBookedTimes(ctx, rng)
			}
		}
	}
}

func (s *Simulator) pick(rng *rand.Rand) (date string, slots []string) {
	date = s.dates[rng.Intn(len(s.dates))]
	n := 1 + rng.Intn(2)
	start := rng.Intn(len(s.slots))
	for i := 0; i < n && start+i < len(s.slots); i++ {
		slots = append(slots, s.slots[start+i])
	}
	return date, slots
}

// doVerifyPayment posts a synthetic but correctly signed callback. The server
// only authenticates the signature, so no real provider order is needed.
func (s *Simulator) doVerifyPayment(ctx context.Context, rng *rand.Rand) {
	date, slots := s.pick(rng)

	orderID := "order_sim_" + uuid.NewString()[:8]
	paymentID := "pay_sim_" + uuid.NewString()[:8]

	reqBody := map[string]any{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
		"razorpay_signature":  payments.Signature(orderID, paymentID, s.config.Secret),
		"formData": map[string]any{
			"name":          "Sim Worker",
			"email":         "sim@example.com",
			"contactNumber": "+911234567890",
			"area":          "Remote",
			"date":          date,
			"time":          slots,
		},
	}
	body, _ := json.Marshal(reqBody)

	start := time.Now()

	req, _ := http.NewRequestWithContext(ctx, "POST", s.config.APIBaseURL+"/appointments/verify-payment", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	conflict := false
	if err == nil {
		resp.Body.Close()
		success = resp.StatusCode == http.StatusCreated
		conflict = resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusConflict
	}

	s.metrics.VerifyPayment.Record(latency, success, conflict)
}

func (s *Simulator) doCreateOrder(ctx context.Context, rng *rand.Rand) {
	date, slots := s.pick(rng)

	reqBody := map[string]any{
		"amount":   int64(len(slots)) * 50000,
		"currency": "INR",
		"slots":    slots,
		"date":     date,
	}
	body, _ := json.Marshal(reqBody)

	start := time.Now()

	req, _ := http.NewRequestWithContext(ctx, "POST", s.config.APIBaseURL+"/appointments/create-order", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	conflict := false
	if err == nil {
		resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
		conflict = resp.StatusCode == http.StatusBadRequest
	}

	s.metrics.CreateOrder.Record(latency, success, conflict)
}

func (s *Simulator) doBookedTimes(ctx context.Context, rng *rand.Rand) {
	date := s.dates[rng.Intn(len(s.dates))]

	start := time.Now()

	req, _ := http.NewRequestWithContext(ctx, "GET", s.config.APIBaseURL+"/appointments?date="+date, nil)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}

	s.metrics.BookedTimes.Record(latency, success, false)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n================================================================================")
	fmt.Println("SIMULATION REPORT")
	fmt.Println("================================================================================")
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Contended slots: %d across %d dates\n", len(s.slots), len(s.dates))
	fmt.Println()

	printOperationReport("Verify Payment", &s.metrics.VerifyPayment)
	printOperationReport("Create Order", &s.metrics.CreateOrder)
	printOperationReport("Booked Times", &s.metrics.BookedTimes)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	errCount := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if errCount > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", errCount, float64(errCount)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
