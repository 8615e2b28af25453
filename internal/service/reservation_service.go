package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository"
)

var ErrInvalidInput = errors.New("dữ liệu đầu vào không hợp lệ")
var ErrLotNotActive = errors.New("bãi đỗ không hoạt động")

type ReservationService struct {
	reservationRepo repository.ReservationRepository
	lotRepo         repository.ParkingLotRepository
	notifService    *NotificationService

	// now được inject để test kiểm soát được thời gian
	now func() time.Time
}

func NewReservationService(reservationRepo repository.ReservationRepository, lotRepo repository.ParkingLotRepository, notifService *NotificationService) *ReservationService {
	return &ReservationService{
		reservationRepo: reservationRepo,
		lotRepo:         lotRepo,
		notifService:    notifService,
		now:             time.Now,
	}
}

// Create kiểm tra khung giờ và bãi đỗ, rồi giao cho repository thực hiện
// chèn + giữ chỗ + trừ counter trong một transaction. Reservation bắt đầu
// trong tương lai mang trạng thái pending, bắt đầu ngay mang trạng thái active.
func (s *ReservationService) Create(ctx context.Context, userID int, dto domain.CreateReservationDTO) (*domain.Reservation, error) {
	now := s.now()
	if !dto.EndTime.After(dto.StartTime) {
		return nil, fmt.Errorf("%w: end_time phải sau start_time", ErrInvalidInput)
	}
	if dto.StartTime.Before(now.Add(-time.Minute)) {
		return nil, fmt.Errorf("%w: start_time không được nằm trong quá khứ", ErrInvalidInput)
	}

	lot, err := s.lotRepo.FindByID(ctx, dto.LotID)
	if err != nil {
		return nil, err
	}
	if lot.Status != domain.LotActive {
		return nil, ErrLotNotActive
	}

	status := domain.ReservationActive
	if dto.StartTime.After(now) {
		status = domain.ReservationPending
	}

	res := &domain.Reservation{
		LotID:        dto.LotID,
		UserID:       userID,
		VehiclePlate: dto.VehiclePlate,
		Notes:        dto.Notes,
		StartTime:    dto.StartTime,
		EndTime:      dto.EndTime,
		Status:       status,
		HourlyRate:   lot.HourlyRate,
	}
	if dto.SpaceID != nil {
		res.SpaceID = *dto.SpaceID
	}

	created, err := s.reservationRepo.CreateWithInventory(ctx, res)
	if err != nil {
		return nil, err
	}

	if s.notifService != nil {
		if err := s.notifService.NotifyNewReservation(ctx, created); err != nil {
			return created, nil // Notification lỗi không làm hỏng reservation đã tạo
		}
	}
	return created, nil
}

// Cancel hủy reservation của chính user (admin truyền userID=0 để bỏ qua
// kiểm tra chủ sở hữu). Chỗ đỗ được trả lại và counter được cộng trong
// cùng transaction với việc đổi trạng thái.
func (s *ReservationService) Cancel(ctx context.Context, id int, userID int) (*domain.Reservation, error) {
	cancelled, err := s.reservationRepo.CancelWithInventory(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if s.notifService != nil {
		_ = s.notifService.NotifyReservationCancelled(ctx, cancelled)
	}
	return cancelled, nil
}

// Complete kết thúc reservation, chỉ hợp lệ khi đang active; gọi lại trên
// bản ghi đã completed trả ErrInvalidState. Chỗ đỗ KHÔNG được trả về
// available ở đây: xe có thể vẫn đứng trong chỗ, việc giải phóng đi qua
// thao tác vacate của chỗ đỗ.
func (s *ReservationService) Complete(ctx context.Context, id int, userID int) (*domain.Reservation, error) {
	var res *domain.Reservation
	var err error
	if userID == 0 {
		res, err = s.reservationRepo.FindByID(ctx, id)
	} else {
		res, err = s.reservationRepo.FindByIDAndUser(ctx, id, userID)
	}
	if err != nil {
		return nil, err
	}
	if res.Status != domain.ReservationActive {
		return nil, fmt.Errorf("%w: chỉ hoàn thành được reservation đang active, hiện tại '%s'", repository.ErrInvalidState, res.Status)
	}
	return s.reservationRepo.UpdateStatus(ctx, id, userID, domain.ReservationCompleted)
}

// TransitionStatus dành cho admin đổi trạng thái tùy ý trong giới hạn
// của máy trạng thái; cancelled/expired kèm trả chỗ, các chuyển khác không.
// Đích trùng trạng thái hiện tại là no-op, trả nguyên bản ghi.
func (s *ReservationService) TransitionStatus(ctx context.Context, id int, status string) (*domain.Reservation, error) {
	if !domain.ValidReservationStatus(status) {
		return nil, fmt.Errorf("%w: trạng thái %q không tồn tại", ErrInvalidInput, status)
	}
	target := domain.ReservationStatus(status)

	current, err := s.reservationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == target {
		return current, nil
	}

	var updated *domain.Reservation
	switch target {
	case domain.ReservationCancelled:
		updated, err = s.reservationRepo.CancelWithInventory(ctx, id, 0)
	case domain.ReservationExpired:
		updated, err = s.reservationRepo.ExpireWithInventory(ctx, id)
	default:
		updated, err = s.reservationRepo.UpdateStatus(ctx, id, 0, target)
	}
	if err != nil {
		return nil, err
	}

	if s.notifService != nil {
		switch target {
		case domain.ReservationCancelled:
			_ = s.notifService.NotifyReservationCancelled(ctx, updated)
		case domain.ReservationExpired:
			_ = s.notifService.NotifyReservationExpired(ctx, updated)
		}
	}
	return updated, nil
}

// GetByID trả về reservation; user thường chỉ thấy của mình, bản ghi của
// người khác trông như không tồn tại.
func (s *ReservationService) GetByID(ctx context.Context, id int, userID int, role domain.UserRole) (*domain.Reservation, error) {
	if role == domain.RoleAdmin {
		return s.reservationRepo.FindByID(ctx, id)
	}
	return s.reservationRepo.FindByIDAndUser(ctx, id, userID)
}

// List trả về trang kết quả theo filter; user thường bị ép scope về
// reservation của chính mình bất kể filter gửi lên.
func (s *ReservationService) List(ctx context.Context, userID int, role domain.UserRole, filter domain.ReservationFilterDTO) (*domain.PaginatedReservations, error) {
	if role != domain.RoleAdmin {
		filter.UserID = &userID
	}
	if filter.Status != "" && !domain.ValidReservationStatus(filter.Status) {
		return nil, fmt.Errorf("%w: trạng thái %q không tồn tại", ErrInvalidInput, filter.Status)
	}
	filter.Normalize()
	return s.reservationRepo.Find(ctx, filter)
}

// MyActive trả về reservation active của user còn chưa quá end_time.
func (s *ReservationService) MyActive(ctx context.Context, userID int) ([]domain.Reservation, error) {
	now := s.now()
	return s.reservationRepo.FindByUserAndStatus(ctx, userID, domain.ReservationActive, &now)
}

// MyPending trả về reservation pending của user có start_time trong tương lai.
func (s *ReservationService) MyPending(ctx context.Context, userID int) ([]domain.Reservation, error) {
	now := s.now()
	return s.reservationRepo.FindByUserAndStatus(ctx, userID, domain.ReservationPending, &now)
}

func (s *ReservationService) MyExpired(ctx context.Context, userID int) ([]domain.Reservation, error) {
	return s.reservationRepo.FindByUserAndStatus(ctx, userID, domain.ReservationExpired, nil)
}

func (s *ReservationService) MyCancelled(ctx context.Context, userID int) ([]domain.Reservation, error) {
	return s.reservationRepo.FindByUserAndStatus(ctx, userID, domain.ReservationCancelled, nil)
}
