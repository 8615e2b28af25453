package service

import (
	"context"
	"errors"
	"fmt"

	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository"

	"gopkg.in/guregu/null.v4"
)

var ErrLotHasSpaces = errors.New("bãi đỗ vẫn còn chỗ đỗ, không thể xóa")
var ErrLotFull = errors.New("bãi đỗ đã đủ số chỗ khai báo")

// ParkingService quản lý bãi đỗ và chỗ đỗ: CRUD cho admin, tra cứu cho
// mọi user, cùng ba thao tác trạng thái reserve/occupy/vacate.
type ParkingService struct {
	lotRepo   repository.ParkingLotRepository
	spaceRepo repository.ParkingSpaceRepository
}

func NewParkingService(lotRepo repository.ParkingLotRepository, spaceRepo repository.ParkingSpaceRepository) *ParkingService {
	return &ParkingService{lotRepo: lotRepo, spaceRepo: spaceRepo}
}

func (s *ParkingService) CreateLot(ctx context.Context, dto domain.ParkingLotDTO) (*domain.ParkingLot, error) {
	status := domain.LotActive
	if dto.Status != "" {
		status = domain.LotStatus(dto.Status)
		if status != domain.LotActive && status != domain.LotInactive && status != domain.LotMaintenance {
			return nil, fmt.Errorf("%w: trạng thái bãi %q không tồn tại", ErrInvalidInput, dto.Status)
		}
	}
	lot := &domain.ParkingLot{
		Name:        dto.Name,
		Address:     dto.Address,
		Latitude:    dto.Latitude,
		Longitude:   dto.Longitude,
		TotalSpaces: dto.TotalSpaces,
		HourlyRate:  dto.HourlyRate,
		Status:      status,
	}
	if dto.OwnerID != nil {
		lot.OwnerID = null.IntFrom(int64(*dto.OwnerID))
	}
	return s.lotRepo.Create(ctx, lot)
}

func (s *ParkingService) GetLot(ctx context.Context, id int) (*domain.ParkingLot, error) {
	return s.lotRepo.FindByID(ctx, id)
}

func (s *ParkingService) ListLots(ctx context.Context) ([]domain.ParkingLot, error) {
	return s.lotRepo.FindAll(ctx)
}

func (s *ParkingService) UpdateLot(ctx context.Context, id int, dto domain.ParkingLotDTO) (*domain.ParkingLot, error) {
	lot, err := s.lotRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	lot.Name = dto.Name
	lot.Address = dto.Address
	lot.Latitude = dto.Latitude
	lot.Longitude = dto.Longitude
	lot.TotalSpaces = dto.TotalSpaces
	lot.HourlyRate = dto.HourlyRate
	if dto.Status != "" {
		status := domain.LotStatus(dto.Status)
		if status != domain.LotActive && status != domain.LotInactive && status != domain.LotMaintenance {
			return nil, fmt.Errorf("%w: trạng thái bãi %q không tồn tại", ErrInvalidInput, dto.Status)
		}
		lot.Status = status
	}
	if dto.OwnerID != nil {
		lot.OwnerID = null.IntFrom(int64(*dto.OwnerID))
	}
	return s.lotRepo.Update(ctx, lot)
}

// DeleteLot từ chối xóa khi bãi còn chỗ đỗ để tránh xóa dây chuyền
// reservation đang sống.
func (s *ParkingService) DeleteLot(ctx context.Context, id int) error {
	spaces, err := s.spaceRepo.FindByLotID(ctx, id)
	if err != nil {
		return err
	}
	if len(spaces) > 0 {
		return ErrLotHasSpaces
	}
	return s.lotRepo.Delete(ctx, id)
}

// CreateSpace thêm chỗ đỗ vào bãi, chặn vượt quá total_spaces đã khai báo.
func (s *ParkingService) CreateSpace(ctx context.Context, dto domain.ParkingSpaceDTO) (*domain.ParkingSpace, error) {
	lot, err := s.lotRepo.FindByID(ctx, dto.LotID)
	if err != nil {
		return nil, err
	}
	existing, err := s.spaceRepo.FindByLotID(ctx, dto.LotID)
	if err != nil {
		return nil, err
	}
	if len(existing) >= lot.TotalSpaces {
		return nil, ErrLotFull
	}

	status := domain.SpaceAvailable
	if dto.Status != "" {
		status = domain.SpaceStatus(dto.Status)
		if status != domain.SpaceAvailable && status != domain.SpaceReserved && status != domain.SpaceOccupied {
			return nil, fmt.Errorf("%w: trạng thái chỗ đỗ %q không tồn tại", ErrInvalidInput, dto.Status)
		}
	}
	space := &domain.ParkingSpace{
		LotID:       dto.LotID,
		SpaceNumber: dto.SpaceNumber,
		Status:      status,
	}
	return s.spaceRepo.Create(ctx, space)
}

func (s *ParkingService) GetSpace(ctx context.Context, id int) (*domain.ParkingSpace, error) {
	return s.spaceRepo.FindByID(ctx, id)
}

func (s *ParkingService) ListSpaces(ctx context.Context, lotID int) ([]domain.ParkingSpace, error) {
	return s.spaceRepo.FindByLotID(ctx, lotID)
}

func (s *ParkingService) ListAvailableSpaces(ctx context.Context, lotID int) ([]domain.ParkingSpace, error) {
	return s.spaceRepo.FindAvailableByLotID(ctx, lotID)
}

func (s *ParkingService) UpdateSpace(ctx context.Context, id int, dto domain.ParkingSpaceDTO) (*domain.ParkingSpace, error) {
	space, err := s.spaceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	space.SpaceNumber = dto.SpaceNumber
	return s.spaceRepo.Update(ctx, space)
}

func (s *ParkingService) DeleteSpace(ctx context.Context, id int) error {
	space, err := s.spaceRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if space.Status.Unavailable() {
		return fmt.Errorf("%w: chỗ đỗ đang được giữ", repository.ErrInvalidState)
	}
	return s.spaceRepo.Delete(ctx, id)
}

// ReserveSpace/OccupySpace/VacateSpace đi cùng một đường transaction với
// reservation: trạng thái chỗ và counter của bãi luôn đổi cùng nhau.

func (s *ParkingService) ReserveSpace(ctx context.Context, spaceID int, userID int) (*domain.ParkingSpace, error) {
	if err := s.spaceRepo.Reserve(ctx, spaceID, userID); err != nil {
		return nil, err
	}
	return s.spaceRepo.FindByID(ctx, spaceID)
}

func (s *ParkingService) OccupySpace(ctx context.Context, spaceID int, userID int) (*domain.ParkingSpace, error) {
	if err := s.spaceRepo.Occupy(ctx, spaceID, userID); err != nil {
		return nil, err
	}
	return s.spaceRepo.FindByID(ctx, spaceID)
}

func (s *ParkingService) VacateSpace(ctx context.Context, spaceID int) (*domain.ParkingSpace, error) {
	if err := s.spaceRepo.Vacate(ctx, spaceID); err != nil {
		return nil, err
	}
	return s.spaceRepo.FindByID(ctx, spaceID)
}
