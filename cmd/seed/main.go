package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/slotbook/appointment-api/internal/booking"
	"github.com/slotbook/appointment-api/internal/config"
	"github.com/slotbook/appointment-api/internal/db"
)

const (
	seedDays        = 7
	confirmedPerDay = 12
	pendingPerDay   = 4
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("connect mongo: %v", err)
	}
	defer client.Disconnect(context.Background())

	repo := booking.NewMongoRepository(client.Database(cfg.MongoDatabase))
	if err := repo.EnsureIndexes(ctx); err != nil {
		log.Fatalf("ensure indexes: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	areas := []string{"Remote", "Office"}

	for d := 1; d <= seedDays; d++ {
		date := time.Now().AddDate(0, 0, d).Format("2006-01-02")
		catalog := booking.SlotList(date, time.Now())
		if len(catalog) == 0 {
			continue
		}

		// Hand out catalog slots without reuse so confirmed bookings never
		// collide with the unique index.
		next := 0
		take := func(n int) []string {
			if next+n > len(catalog) {
				n = len(catalog) - next
			}
			slots := catalog[next : next+n]
			next += n
			return slots
		}

		for i := 0; i < confirmedPerDay; i++ {
			slots := take(gofakeit.Number(1, 3))
			if len(slots) == 0 {
				break
			}

			appt := booking.Appointment{
				Name:              gofakeit.Name(),
				Email:             gofakeit.Email(),
				ContactNumber:     fmt.Sprintf("+91%d", gofakeit.Number(1000000000, 9999999999)),
				Area:              areas[gofakeit.Number(0, len(areas)-1)],
				Date:              date,
				Time:              slots,
				Remark:            gofakeit.Sentence(6),
				PaymentStatus:     booking.PaymentCompleted,
				RazorpayOrderID:   "order_" + gofakeit.LetterN(14),
				RazorpayPaymentID: "pay_" + gofakeit.LetterN(14),
			}
			if _, err := repo.Create(ctx, &appt); err != nil {
				log.Fatalf("seed confirmed appointment: %v", err)
			}
		}

		for i := 0; i < pendingPerDay; i++ {
			slots := take(1)
			if len(slots) == 0 {
				break
			}

			appt := booking.Appointment{
				Name:          gofakeit.Name(),
				Email:         gofakeit.Email(),
				ContactNumber: fmt.Sprintf("+91%d", gofakeit.Number(1000000000, 9999999999)),
				Area:          areas[gofakeit.Number(0, len(areas)-1)],
				Date:          date,
				Time:          slots,
				PaymentStatus: booking.PaymentPending,
			}
			if _, err := repo.Create(ctx, &appt); err != nil {
				log.Fatalf("seed pending appointment: %v", err)
			}
		}

		log.Printf("seeded date %s", date)
	}

	log.Println("seed complete")
}
