package entity

import "github.com/google/uuid"

type Notification struct {
	BaseSimple
	UserID    uuid.UUID  `db:"user_id"`
	BookingID *uuid.UUID `db:"booking_id"`
	Kind      string     `db:"kind"`
	Message   string     `db:"message"`
	IsRead    bool       `db:"is_read"`
}
