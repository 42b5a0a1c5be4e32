package booking

import (
	"fmt"
	"iter"
	"slices"
	"time"
)

// Booking hours, minutes from midnight. The last slot lands exactly on the
// window end.
const (
	openMinute   = 8 * 60
	closeMinute  = 18*60 + 30
	slotInterval = 10
)

// All slot decisions are made in the business timezone, UTC+5:30.
var slotZone = time.FixedZone("IST", 5*3600+30*60)

// Slots yields the bookable time values for date, in ascending order.
// Past dates yield nothing; for today only slots strictly after now are
// included; future dates get the full window. The sequence is pure and
// restartable.
func Slots(date string, now time.Time) iter.Seq[string] {
	return func(yield func(string) bool) {
		day, err := time.ParseInLocation("2006-01-02", date, slotZone)
		if err != nil {
			return
		}

		local := now.In(slotZone)
		today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, slotZone)

		if day.Before(today) {
			return
		}

		sameDay := day.Equal(today)
		nowSec := local.Hour()*3600 + local.Minute()*60 + local.Second()

		for m := openMinute; m <= closeMinute; m += slotInterval {
			if sameDay && m*60 <= nowSec {
				continue
			}
			if !yield(fmt.Sprintf("%02d:%02d", m/60, m%60)) {
				return
			}
		}
	}
}

// SlotList collects the catalog into a slice.
func SlotList(date string, now time.Time) []string {
	return slices.Collect(Slots(date, now))
}
