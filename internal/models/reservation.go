package models

import "time"

const (
	TableRooms        = "ROOMS"
	TableReservations = "RESERVATIONS"
)

// Room is one reservable unit. RoomID has the form <prefix>-<unit>.
type Room struct {
	RoomID    string `json:"roomId" yaml:"room_id"`
	HotelName string `json:"hotelName" yaml:"hotel_name"`
	RoomType  string `json:"roomType" yaml:"room_type"`
}

// ReservationRecord is one persisted row of RESERVATIONS. HotelName is only
// populated when read through the room join.
type ReservationRecord struct {
	ReservationID string     `json:"reservationId"`
	CustomerID    string     `json:"customerId"`
	RoomID        string     `json:"roomId"`
	HotelName     string     `json:"hotelName,omitempty"`
	CheckInDate   Date       `json:"checkInDate"`
	CheckOutDate  Date       `json:"checkOutDate"`
	ReservedTime  time.Time  `json:"reservedTime"`
	CancelledTime *time.Time `json:"cancelledTime,omitempty"`
}

// Reservation is the customer-facing view: the records of one booking request
// on one room family, grouped together.
type Reservation struct {
	RoomIDPrefix   string     `json:"roomIdPrefix"`
	ReservationIDs []string   `json:"reservationIds"`
	HotelName      string     `json:"hotelName"`
	CheckInDate    Date       `json:"checkInDate"`
	CheckOutDate   Date       `json:"checkOutDate"`
	CancelledTime  *time.Time `json:"cancelledTime,omitempty"`
}

type MakeReservationRequest struct {
	HotelName    string `json:"hotelName"`
	RoomType     string `json:"roomType"`
	ReserveCount int    `json:"reserveCount"`
	CheckInDate  Date   `json:"checkInDate"`
	CheckOutDate Date   `json:"checkOutDate"`
}

type CancelReservationRequest struct {
	ReservationIDs []string `json:"reservationIds"`
}

// QueryReservationRequest filters the caller's reservations. Dates are either
// both set or both zero.
type QueryReservationRequest struct {
	HotelName        string `json:"hotelName,omitempty"`
	RoomType         string `json:"roomType,omitempty"`
	CheckInDate      Date   `json:"checkInDate"`
	CheckOutDate     Date   `json:"checkOutDate"`
	IncludeCancelled bool   `json:"includeCancelled,omitempty"`
	Limit            int    `json:"limit,omitempty"`
}

type QueryReservationResponse struct {
	Reservations []Reservation `json:"reservations"`
}
