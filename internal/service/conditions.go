package service

import (
	"bookvalley/internal/models"
	"bookvalley/internal/query"
)

const (
	colRoomsRoomID      = "ROOMS.roomId"
	colRoomsHotelName   = "ROOMS.hotelName"
	colRoomsRoomType    = "ROOMS.roomType"
	colResRoomID        = "RESERVATIONS.roomId"
	colResCustomerID    = "RESERVATIONS.customerId"
	colResReservationID = "RESERVATIONS.reservationId"
	colResCheckIn       = "RESERVATIONS.checkInDate"
	colResCheckOut      = "RESERVATIONS.checkOutDate"
	colResReservedTime  = "RESERVATIONS.reservedTime"
	colResCancelledTime = "RESERVATIONS.cancelledTime"
)

// lookupConditions selects the caller's reservations joined with their rooms.
// With both dates set, a reservation matches when its check-in falls in
// [in, out) or its check-out falls in (in, out].
func lookupConditions(customerID string, req models.QueryReservationRequest) query.Group {
	leaves := []query.Condition{
		query.Where(colResCustomerID, query.Eq, query.Value(customerID)),
		query.Where(colRoomsRoomID, query.Eq, query.Field(colResRoomID)),
	}
	if !req.IncludeCancelled {
		leaves = append(leaves, query.Where(colResCancelledTime, query.Is, query.Null()))
	}
	if req.HotelName != "" {
		leaves = append(leaves, query.Where(colRoomsHotelName, query.Eq, query.Value(req.HotelName)))
	}
	if req.RoomType != "" {
		leaves = append(leaves, query.Where(colRoomsRoomType, query.Like, query.Value("%"+req.RoomType+"%")))
	}

	base := query.All(leaves...)
	if req.CheckInDate.IsZero() || req.CheckOutDate.IsZero() {
		return base
	}

	in, out := req.CheckInDate.String(), req.CheckOutDate.String()
	return query.Nest(
		base,
		query.Nest(
			query.All(
				query.Where(colResCheckIn, query.Ge, query.Value(in)),
				query.Where(colResCheckIn, query.Lt, query.Value(out)),
			),
			query.All(
				query.Where(colResCheckOut, query.Gt, query.Value(in)),
				query.Where(colResCheckOut, query.Le, query.Value(out)),
			).Or(),
		),
	)
}

// overlapConditions selects live reservations on rooms of the given hotel and
// type whose half-open stay [checkIn, checkOut) intersects [in, out).
func overlapConditions(hotelName, roomType string, in, out models.Date) query.Group {
	return query.Nest(
		query.All(
			query.Where(colRoomsRoomID, query.Eq, query.Field(colResRoomID)),
			query.Where(colRoomsHotelName, query.Eq, query.Value(hotelName)),
			query.Where(colRoomsRoomType, query.Eq, query.Value(roomType)),
			query.Where(colResCancelledTime, query.Is, query.Null()),
		),
		query.Not(query.All(
			query.Where(colResCheckIn, query.Ge, query.Value(out.String())),
			query.Where(colResCheckOut, query.Le, query.Value(in.String())).Or(),
		)),
	)
}

// roomConditions selects the inventory of one hotel and room type.
func roomConditions(hotelName, roomType string) *query.Group {
	var leaves []query.Condition
	if hotelName != "" {
		leaves = append(leaves, query.Where("hotelName", query.Eq, query.Value(hotelName)))
	}
	if roomType != "" {
		leaves = append(leaves, query.Where("roomType", query.Eq, query.Value(roomType)))
	}
	if len(leaves) == 0 {
		return nil
	}
	g := query.All(leaves...)
	return &g
}
