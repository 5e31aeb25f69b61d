package database

import (
	"context"
	"errors"
	"fmt"

	"bookvalley/internal/models"
	"bookvalley/internal/query"
)

// SyncRooms inserts or updates the given inventory in one transaction. Rooms
// absent from the list are left in place because reservations reference them.
func (s *Store) SyncRooms(ctx context.Context, rooms []models.Room) (err error) {
	if len(rooms) == 0 {
		return nil
	}

	conn, err := s.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if relErr := conn.Release(); relErr != nil {
			err = errors.Join(err, relErr)
		}
	}()

	if err := conn.Begin(ctx); err != nil {
		return err
	}

	for _, room := range rooms {
		where := query.All(query.Where("roomId", query.Eq, query.Value(room.RoomID)))
		n, err := conn.Update(ctx, query.UpdateRequest{
			Table:      models.TableRooms,
			Values:     map[string]any{"hotelName": room.HotelName, "roomType": room.RoomType},
			Conditions: &where,
		})
		if err != nil {
			return fmt.Errorf("failed to sync room %s: %w", room.RoomID, err)
		}
		if n > 0 {
			continue
		}
		if _, err := conn.Insert(ctx, query.InsertRequest{
			Table: models.TableRooms,
			Values: map[string]any{
				"roomId":    room.RoomID,
				"hotelName": room.HotelName,
				"roomType":  room.RoomType,
			},
		}); err != nil {
			return fmt.Errorf("failed to sync room %s: %w", room.RoomID, err)
		}
	}

	if err := conn.Commit(); err != nil {
		return err
	}
	s.logger.Info().Int("rooms", len(rooms)).Msg("room inventory synced")
	return nil
}
