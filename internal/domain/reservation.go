package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationActive    ReservationStatus = "active"
	ReservationCompleted ReservationStatus = "completed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationExpired   ReservationStatus = "expired"
)

// legalTransitions định nghĩa rõ các bước chuyển trạng thái hợp lệ.
// pending/active còn chuyển được; completed/cancelled/expired là trạng thái cuối.
var legalTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationPending: {ReservationActive, ReservationCancelled, ReservationExpired},
	ReservationActive:  {ReservationCompleted, ReservationCancelled, ReservationExpired},
}

func (s ReservationStatus) CanTransitionTo(target ReservationStatus) bool {
	for _, t := range legalTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func (s ReservationStatus) Terminal() bool {
	return len(legalTransitions[s]) == 0
}

func ValidReservationStatus(s string) bool {
	switch ReservationStatus(s) {
	case ReservationPending, ReservationActive, ReservationCompleted, ReservationCancelled, ReservationExpired:
		return true
	}
	return false
}

type Reservation struct {
	ID           int               `json:"id"`
	LotID        int               `json:"parking_lot"`
	SpaceID      int               `json:"parking_space"`
	UserID       int               `json:"user"`
	VehiclePlate string            `json:"vehicle_plate"`
	Notes        string            `json:"notes,omitempty"`
	StartTime    time.Time         `json:"start_time"`
	EndTime      time.Time         `json:"end_time"`
	Status       ReservationStatus `json:"status"`
	HourlyRate   float64           `json:"hourly_rate"` // Giá của bãi tại thời điểm đọc, dùng tính total_cost
	CancelledAt  null.Time         `json:"cancelled_at"`
	CompletedAt  null.Time         `json:"completed_at"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Duration trả về thời lượng reservation theo giờ.
func (r *Reservation) Duration() float64 {
	if r.EndTime.IsZero() || r.StartTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime).Hours()
}

// TotalCost = thời lượng (giờ) x đơn giá theo giờ của bãi.
func (r *Reservation) TotalCost() float64 {
	return r.Duration() * r.HourlyRate
}

type CreateReservationDTO struct {
	LotID        int       `json:"parking_lot" binding:"required"`
	SpaceID      *int      `json:"parking_space"` // Tùy chọn, không có thì tự gán chỗ trống đầu tiên
	VehiclePlate string    `json:"vehicle_plate" binding:"required,max=20"`
	Notes        string    `json:"notes"`
	StartTime    time.Time `json:"start_time" binding:"required"`
	EndTime      time.Time `json:"end_time" binding:"required"`
}

type UpdateReservationDTO struct {
	VehiclePlate string     `json:"vehicle_plate"`
	Notes        string     `json:"notes"`
	StartTime    *time.Time `json:"start_time"`
	EndTime      *time.Time `json:"end_time"`
}

// ReservationFilterDTO gom các query parameter lọc/sắp xếp/phân trang.
type ReservationFilterDTO struct {
	UserID       *int   // Giới hạn theo chủ sở hữu (user thường chỉ thấy của mình)
	Status       string `form:"status"`
	LotID        *int   `form:"parking_lot"`
	SpaceID      *int   `form:"parking_space"`
	VehiclePlate string `form:"vehicle_plate"` // Tìm chuỗi con
	StartDate    string `form:"start_date"`    // YYYY-MM-DD, lọc theo ngày của start_time
	EndDate      string `form:"end_date"`      // YYYY-MM-DD, lọc theo ngày của end_time
	StatusFilter string `form:"status_filter"` // active/completed/cancelled
	Search       string `form:"search"`        // Chuỗi con trên biển số/ghi chú/tên bãi/số chỗ
	SortBy       string `form:"sort_by"`
	Page         int    `form:"page"`
	PageSize     int    `form:"page_size"`
}

// Các field sort được phép, tránh chèn SQL qua sort_by.
var allowedSortFields = map[string]string{
	"created_at":     "r.created_at ASC",
	"-created_at":    "r.created_at DESC",
	"start_time":     "r.start_time ASC",
	"-start_time":    "r.start_time DESC",
	"end_time":       "r.end_time ASC",
	"-end_time":      "r.end_time DESC",
	"status":         "r.status ASC",
	"-status":        "r.status DESC",
	"vehicle_plate":  "r.vehicle_plate ASC",
	"-vehicle_plate": "r.vehicle_plate DESC",
}

// SortClause trả về mệnh đề ORDER BY đã được whitelist; giá trị không
// nhận diện được sẽ rơi về mặc định -created_at.
func (f ReservationFilterDTO) SortClause() string {
	if clause, ok := allowedSortFields[f.SortBy]; ok {
		return clause
	}
	return "r.created_at DESC"
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Normalize đưa page/page_size về giới hạn hợp lệ.
func (f *ReservationFilterDTO) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
}

type PaginatedReservations struct {
	Count    int           `json:"count"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Results  []Reservation `json:"results"`
}
