package domain

import "time"

type NotificationType string

const (
	NotifNewReservation       NotificationType = "new_reservation"
	NotifReservationExpired   NotificationType = "reservation_expired"
	NotifReservationCancelled NotificationType = "reservation_cancelled"
	NotifUpcomingReservation  NotificationType = "upcoming_reservation"
)

// Notification là bản ghi bền; push qua WebSocket chỉ là tối ưu,
// client có thể query lại sau khi reconnect.
type Notification struct {
	ID        int                    `json:"id"`
	UserID    int                    `json:"user_id"`
	Type      NotificationType       `json:"type"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data"`
	CreatedAt time.Time              `json:"created_at"`
}

// NotificationEvent là payload đẩy xuống kênh WebSocket của user.
type NotificationEvent struct {
	Type    NotificationType       `json:"type"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}
