package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type DailyReport struct {
	ID                int       `json:"id"`
	Date              time.Time `json:"date"` // Chỉ dùng phần ngày, key duy nhất
	TotalRevenue      float64   `json:"total_revenue"`
	TotalReservations int       `json:"total_reservations"`
	AverageDuration   float64   `json:"average_duration"`
	PeakHour          null.Int  `json:"peak_hour"` // 0-23, null nếu không có reservation
	OccupancyRate     float64   `json:"occupancy_rate"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type MonthlyReport struct {
	ID                   int       `json:"id"`
	Year                 int       `json:"year"`
	Month                int       `json:"month"` // 1-12, (year, month) là key duy nhất
	TotalRevenue         float64   `json:"total_revenue"`
	TotalReservations    int       `json:"total_reservations"`
	AverageDuration      float64   `json:"average_duration"`
	AverageOccupancyRate float64   `json:"average_occupancy_rate"`
	PeakDay              null.Time `json:"peak_day"` // Ngày nhiều reservation nhất trong tháng
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type ParkingLotReport struct {
	ID                int       `json:"id"`
	LotID             int       `json:"parking_lot"`
	Date              time.Time `json:"date"` // (lot, date) là key duy nhất
	TotalRevenue      float64   `json:"total_revenue"`
	TotalReservations int       `json:"total_reservations"`
	AverageDuration   float64   `json:"average_duration"`
	OccupancyRate     float64   `json:"occupancy_rate"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ReservationAggregate là kết quả gộp phía database cho một kỳ báo cáo.
type ReservationAggregate struct {
	TotalRevenue      float64
	TotalReservations int
	AverageDuration   float64
	PeakHour          null.Int  // Giờ có nhiều reservation nhất, tie-break: giờ nhỏ hơn thắng
	PeakDay           null.Time // Chỉ dùng cho kỳ tháng, tie-break: ngày sớm hơn thắng
}

// Các điểm dữ liệu cho biểu đồ dashboard, gộp trực tiếp từ reservations
// thay vì từ báo cáo đã lưu.

type DailyReservationPoint struct {
	Date         time.Time `json:"date"`
	Reservations int       `json:"reservations"`
}

type RevenuePoint struct {
	Date    time.Time `json:"date"`
	Revenue float64   `json:"revenue"`
}

type HourlyUsage struct {
	Hour  int `json:"hour"` // 0-23
	Usage int `json:"usage"`
}

// ReportSummary so sánh số liệu hôm nay với hôm qua.
type ReportSummary struct {
	TotalRevenue       float64 `json:"total_revenue"`
	DailyReservations  int     `json:"daily_reservations"`
	ParkingUtilization float64 `json:"parking_utilization"`
	AverageDuration    float64 `json:"average_duration"`
	RevenueChange      float64 `json:"revenue_change"`
	ReservationChange  int     `json:"reservation_change"`
	UtilizationChange  float64 `json:"utilization_change"`
	DurationChange     float64 `json:"duration_change"`
}
