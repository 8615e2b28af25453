package service

import (
	"context"
	"errors"
	"log"
	"time"

	"parking_reservation/internal/repository"
)

// ScannerService chạy định kỳ hai lượt quét: hết hạn và sắp bắt đầu.
// Mỗi reservation được xử lý trong transaction ngắn riêng để một bản ghi
// lỗi không chặn cả lượt quét.
type ScannerService struct {
	reservationRepo repository.ReservationRepository
	notifService    *NotificationService
	upcomingWindow  time.Duration

	now func() time.Time
}

func NewScannerService(reservationRepo repository.ReservationRepository, notifService *NotificationService, upcomingWindow time.Duration) *ScannerService {
	return &ScannerService{
		reservationRepo: reservationRepo,
		notifService:    notifService,
		upcomingWindow:  upcomingWindow,
		now:             time.Now,
	}
}

// CheckExpired chuyển các reservation active đã quá end_time sang expired
// và trả lại chỗ đỗ. Trả về số bản ghi đã chuyển thành công.
func (s *ScannerService) CheckExpired(ctx context.Context) (int, error) {
	now := s.now()
	overdue, err := s.reservationRepo.FindExpiredActive(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, res := range overdue {
		updated, err := s.reservationRepo.ExpireWithInventory(ctx, res.ID)
		if err != nil {
			// Bản ghi đã bị đổi trạng thái giữa hai lượt quét thì bỏ qua
			if errors.Is(err, repository.ErrInvalidState) {
				continue
			}
			log.Printf("Lỗi khi expire reservation %d: %v", res.ID, err)
			continue
		}
		expired++
		if s.notifService != nil {
			_ = s.notifService.NotifyReservationExpired(ctx, updated)
		}
	}
	if expired > 0 {
		log.Printf("Scanner: đã expire %d reservation", expired)
	}
	return expired, nil
}

// CheckUpcoming gửi nhắc nhở cho reservation pending bắt đầu trong cửa sổ
// sắp tới. Không đổi trạng thái bản ghi nào.
func (s *ScannerService) CheckUpcoming(ctx context.Context) (int, error) {
	now := s.now()
	upcoming, err := s.reservationRepo.FindUpcomingPending(ctx, now, s.upcomingWindow)
	if err != nil {
		return 0, err
	}

	notified := 0
	for _, res := range upcoming {
		if s.notifService == nil {
			continue
		}
		if err := s.notifService.NotifyUpcomingReservation(ctx, &res); err != nil {
			log.Printf("Lỗi gửi nhắc nhở cho reservation %d: %v", res.ID, err)
			continue
		}
		notified++
	}
	return notified, nil
}

// Start chạy hai lượt quét theo chu kỳ riêng cho tới khi ctx bị hủy.
func (s *ScannerService) Start(ctx context.Context, expiryInterval, upcomingInterval time.Duration) {
	go s.runLoop(ctx, expiryInterval, func(ctx context.Context) {
		if _, err := s.CheckExpired(ctx); err != nil {
			log.Printf("Lỗi lượt quét hết hạn: %v", err)
		}
	})
	go s.runLoop(ctx, upcomingInterval, func(ctx context.Context) {
		if _, err := s.CheckUpcoming(ctx); err != nil {
			log.Printf("Lỗi lượt quét sắp bắt đầu: %v", err)
		}
	})
}

func (s *ScannerService) runLoop(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}
