package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type SpaceStatus string

const (
	SpaceAvailable SpaceStatus = "available"
	SpaceReserved  SpaceStatus = "reserved"
	SpaceOccupied  SpaceStatus = "occupied"
)

// Reserved và occupied đều nghĩa là "không nhận reservation mới";
// khác nhau ở chỗ xe đã thực sự vào chỗ đỗ hay chưa.
func (s SpaceStatus) Unavailable() bool {
	return s == SpaceReserved || s == SpaceOccupied
}

type ParkingSpace struct {
	ID            int         `json:"id"`
	LotID         int         `json:"lot_id"`
	SpaceNumber   string      `json:"space_number"`
	Status        SpaceStatus `json:"status"`
	CurrentUserID null.Int    `json:"current_user_id"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

type ParkingSpaceDTO struct {
	LotID       int    `json:"lot_id" binding:"required"`
	SpaceNumber string `json:"space_number" binding:"required"`
	Status      string `json:"status,omitempty"`
}
