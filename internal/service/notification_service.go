package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository"
)

// Publisher đẩy sự kiện realtime tới các kết nối của một user.
// Hub WebSocket ở tầng api implement interface này.
type Publisher interface {
	PublishToUser(userID int, event domain.NotificationEvent) error
}

type NotificationService struct {
	notifRepo repository.NotificationRepository
	publisher Publisher
}

func NewNotificationService(notifRepo repository.NotificationRepository, publisher Publisher) *NotificationService {
	return &NotificationService{notifRepo: notifRepo, publisher: publisher}
}

// Send lưu notification vào database trước, sau đó mới push qua WebSocket.
// Push thất bại (user offline, hub đầy) không làm hỏng thao tác: bản ghi
// đã bền, client đọc lại được qua REST.
func (s *NotificationService) Send(ctx context.Context, userID int, notifType domain.NotificationType, message string, data map[string]interface{}) error {
	if data == nil {
		data = map[string]interface{}{}
	}
	notif := &domain.Notification{
		UserID:  userID,
		Type:    notifType,
		Message: message,
		Data:    data,
	}
	created, err := s.notifRepo.Create(ctx, notif)
	if err != nil {
		return fmt.Errorf("lỗi lưu notification: %w", err)
	}

	if s.publisher == nil {
		return nil
	}
	// Payload push = data gốc + id và thời điểm tạo của bản ghi đã lưu
	eventData := make(map[string]interface{}, len(data)+2)
	for k, v := range data {
		eventData[k] = v
	}
	eventData["notification_id"] = created.ID
	eventData["created_at"] = created.CreatedAt.Format(time.RFC3339)

	event := domain.NotificationEvent{
		Type:    notifType,
		Message: message,
		Data:    eventData,
	}
	if err := s.publisher.PublishToUser(userID, event); err != nil {
		log.Printf("Không push được notification %d tới user %d: %v", created.ID, userID, err)
	}
	return nil
}

func reservationData(res *domain.Reservation) map[string]interface{} {
	return map[string]interface{}{
		"reservation_id": res.ID,
		"parking_lot":    res.LotID,
		"parking_space":  res.SpaceID,
		"start_time":     res.StartTime.Format(time.RFC3339),
		"end_time":       res.EndTime.Format(time.RFC3339),
		"status":         string(res.Status),
	}
}

func (s *NotificationService) NotifyNewReservation(ctx context.Context, res *domain.Reservation) error {
	return s.Send(ctx, res.UserID, domain.NotifNewReservation, "New reservation created", reservationData(res))
}

func (s *NotificationService) NotifyReservationCancelled(ctx context.Context, res *domain.Reservation) error {
	return s.Send(ctx, res.UserID, domain.NotifReservationCancelled, "Your reservation has been cancelled", reservationData(res))
}

func (s *NotificationService) NotifyReservationExpired(ctx context.Context, res *domain.Reservation) error {
	return s.Send(ctx, res.UserID, domain.NotifReservationExpired, "Your reservation has expired", reservationData(res))
}

func (s *NotificationService) NotifyUpcomingReservation(ctx context.Context, res *domain.Reservation) error {
	data := reservationData(res)
	data["starts_in_minutes"] = int(time.Until(res.StartTime).Minutes())
	return s.Send(ctx, res.UserID, domain.NotifUpcomingReservation, "Your reservation starts soon", data)
}

func (s *NotificationService) ListForUser(ctx context.Context, userID int, limit int) ([]domain.Notification, error) {
	notifications, err := s.notifRepo.FindByUserID(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("lỗi lấy danh sách notification: %w", err)
	}
	return notifications, nil
}
