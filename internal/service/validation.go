package service

import (
	"strings"

	"bookvalley/internal/domain"
	"bookvalley/internal/models"
)

func validateCustomer(customerID string) error {
	if strings.TrimSpace(customerID) == "" {
		return domain.Authentication("caller identity is missing")
	}
	return nil
}

func validateStay(in, out models.Date) error {
	if in.IsZero() || out.IsZero() {
		return domain.Validation("checkInDate and checkOutDate are required")
	}
	if !in.Before(out) {
		return domain.Validation("checkOutDate %s must be after checkInDate %s", out, in)
	}
	return nil
}

func validateMake(customerID string, req models.MakeReservationRequest) error {
	if err := validateCustomer(customerID); err != nil {
		return err
	}
	if strings.TrimSpace(req.HotelName) == "" {
		return domain.Validation("hotelName is required")
	}
	if strings.TrimSpace(req.RoomType) == "" {
		return domain.Validation("roomType is required")
	}
	if req.ReserveCount <= 0 {
		return domain.Validation("reserveCount must be positive, got %d", req.ReserveCount)
	}
	return validateStay(req.CheckInDate, req.CheckOutDate)
}

func validateCancel(customerID string, req models.CancelReservationRequest) error {
	if err := validateCustomer(customerID); err != nil {
		return err
	}
	if len(req.ReservationIDs) == 0 {
		return domain.Validation("reservationIds must not be empty")
	}
	for i, id := range req.ReservationIDs {
		if strings.TrimSpace(id) == "" {
			return domain.Validation("reservationIds[%d] is empty", i)
		}
	}
	return nil
}

func validateQuery(customerID string, req models.QueryReservationRequest) error {
	if err := validateCustomer(customerID); err != nil {
		return err
	}
	if req.Limit < 0 {
		return domain.Validation("limit must not be negative, got %d", req.Limit)
	}
	if req.CheckInDate.IsZero() && req.CheckOutDate.IsZero() {
		return nil
	}
	if req.CheckInDate.IsZero() || req.CheckOutDate.IsZero() {
		return domain.Validation("checkInDate and checkOutDate must be given together")
	}
	return validateStay(req.CheckInDate, req.CheckOutDate)
}
