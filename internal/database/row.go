package database

import (
	"fmt"
	"time"

	"bookvalley/internal/domain"
	"bookvalley/internal/models"
	"bookvalley/internal/query"
)

// String reads col as text. Missing and NULL columns read as "".
func String(row domain.Row, col string) string {
	switch v := row[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

var timeLayouts = []string{
	query.DateTimeLayout,
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	query.DateLayout,
}

// Time reads col as a UTC timestamp. ok is false for NULL or missing columns.
func Time(row domain.Row, col string) (t time.Time, ok bool, err error) {
	switch v := row[col].(type) {
	case nil:
		return time.Time{}, false, nil
	case time.Time:
		return v.UTC(), true, nil
	case string:
		return parseTime(col, v)
	case []byte:
		return parseTime(col, string(v))
	default:
		return time.Time{}, false, fmt.Errorf("column %s: unexpected type %T", col, v)
	}
}

func parseTime(col, s string) (time.Time, bool, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("column %s: invalid time %q", col, s)
}

// RoomFromRow maps a ROOMS row.
func RoomFromRow(row domain.Row) models.Room {
	return models.Room{
		RoomID:    String(row, "roomId"),
		HotelName: String(row, "hotelName"),
		RoomType:  String(row, "roomType"),
	}
}

// ReservationFromRow maps a RESERVATIONS row, optionally joined with ROOMS.
func ReservationFromRow(row domain.Row) (models.ReservationRecord, error) {
	rec := models.ReservationRecord{
		ReservationID: String(row, "reservationId"),
		CustomerID:    String(row, "customerId"),
		RoomID:        String(row, "roomId"),
		HotelName:     String(row, "hotelName"),
	}

	in, _, err := Time(row, "checkInDate")
	if err != nil {
		return rec, err
	}
	out, _, err := Time(row, "checkOutDate")
	if err != nil {
		return rec, err
	}
	reserved, _, err := Time(row, "reservedTime")
	if err != nil {
		return rec, err
	}
	cancelled, ok, err := Time(row, "cancelledTime")
	if err != nil {
		return rec, err
	}

	rec.CheckInDate = models.NewDate(in)
	rec.CheckOutDate = models.NewDate(out)
	rec.ReservedTime = reserved
	if ok {
		rec.CancelledTime = &cancelled
	}
	return rec, nil
}
