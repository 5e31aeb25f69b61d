package service

import (
	"strings"

	"bookvalley/internal/models"
)

// roomIDPrefix strips the unit suffix: "valley-std-3" -> "valley-std".
func roomIDPrefix(roomID string) string {
	if i := strings.LastIndex(roomID, "-"); i >= 0 {
		return roomID[:i]
	}
	return roomID
}

type aggregateKey struct {
	prefix    string
	reserved  int64
	cancelled int64
	live      bool
}

// aggregateReservations groups records made by the same request on the same
// room family and cancelled at the same moment. The first record of a group
// supplies its hotel, dates and cancellation time; groups keep the order in
// which they first appear.
func aggregateReservations(records []models.ReservationRecord) []models.Reservation {
	index := make(map[aggregateKey]int)
	var out []models.Reservation

	for _, rec := range records {
		key := aggregateKey{
			prefix:   roomIDPrefix(rec.RoomID),
			reserved: rec.ReservedTime.UnixNano(),
			live:     rec.CancelledTime == nil,
		}
		if rec.CancelledTime != nil {
			key.cancelled = rec.CancelledTime.UnixNano()
		}

		if i, ok := index[key]; ok {
			out[i].ReservationIDs = append(out[i].ReservationIDs, rec.ReservationID)
			continue
		}

		index[key] = len(out)
		out = append(out, models.Reservation{
			RoomIDPrefix:   key.prefix,
			ReservationIDs: []string{rec.ReservationID},
			HotelName:      rec.HotelName,
			CheckInDate:    rec.CheckInDate,
			CheckOutDate:   rec.CheckOutDate,
			CancelledTime:  rec.CancelledTime,
		})
	}
	return out
}
