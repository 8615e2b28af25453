package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type LotStatus string

const (
	LotActive      LotStatus = "active"
	LotInactive    LotStatus = "inactive"
	LotMaintenance LotStatus = "maintenance"
)

type ParkingLot struct {
	ID              int       `json:"id"`
	Name            string    `json:"name"`
	Address         string    `json:"address,omitempty"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	TotalSpaces     int       `json:"total_spaces"`
	AvailableSpaces int       `json:"available_spaces"`
	HourlyRate      float64   `json:"hourly_rate"`
	Status          LotStatus `json:"status"`
	OwnerID         null.Int  `json:"owner_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// OccupancyRate tính tỷ lệ lấp đầy hiện tại (%) từ snapshot của bãi.
func (l *ParkingLot) OccupancyRate() float64 {
	if l.TotalSpaces == 0 {
		return 0
	}
	occupied := l.TotalSpaces - l.AvailableSpaces
	return float64(occupied) / float64(l.TotalSpaces) * 100
}

type ParkingLotDTO struct {
	Name        string  `json:"name" binding:"required"`
	Address     string  `json:"address"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	TotalSpaces int     `json:"total_spaces" binding:"min=0"`
	HourlyRate  float64 `json:"hourly_rate" binding:"min=0"`
	Status      string  `json:"status,omitempty"`
	OwnerID     *int    `json:"owner_id,omitempty"`
}
