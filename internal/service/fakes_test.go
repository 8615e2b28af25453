package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository"
)

// Các fake in-memory dùng chung cho test ở tầng service.

type fakeLotRepo struct {
	lots map[int]*domain.ParkingLot
}

func newFakeLotRepo(lots ...*domain.ParkingLot) *fakeLotRepo {
	repo := &fakeLotRepo{lots: make(map[int]*domain.ParkingLot)}
	for _, lot := range lots {
		repo.lots[lot.ID] = lot
	}
	return repo
}

func (r *fakeLotRepo) Create(_ context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	lot.ID = len(r.lots) + 1
	r.lots[lot.ID] = lot
	return lot, nil
}

func (r *fakeLotRepo) FindByID(_ context.Context, id int) (*domain.ParkingLot, error) {
	lot, ok := r.lots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *lot
	return &copied, nil
}

func (r *fakeLotRepo) FindAll(_ context.Context) ([]domain.ParkingLot, error) {
	ids := make([]int, 0, len(r.lots))
	for id := range r.lots {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	lots := make([]domain.ParkingLot, 0, len(ids))
	for _, id := range ids {
		lots = append(lots, *r.lots[id])
	}
	return lots, nil
}

func (r *fakeLotRepo) Update(_ context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	if _, ok := r.lots[lot.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	r.lots[lot.ID] = lot
	return lot, nil
}

func (r *fakeLotRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.lots[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.lots, id)
	return nil
}

// fakeReservationRepo mô phỏng hành vi inventory của repository thật:
// tạo thì trừ counter của bãi, hủy/expire thì cộng lại.
type fakeReservationRepo struct {
	mu           sync.Mutex
	reservations map[int]*domain.Reservation
	nextID       int
	lots         *fakeLotRepo

	failCreate error // Nếu đặt, CreateWithInventory trả lỗi này
}

func newFakeReservationRepo(lots *fakeLotRepo) *fakeReservationRepo {
	return &fakeReservationRepo{
		reservations: make(map[int]*domain.Reservation),
		nextID:       1,
		lots:         lots,
	}
}

func (r *fakeReservationRepo) CreateWithInventory(_ context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return nil, r.failCreate
	}
	lot, ok := r.lots.lots[res.LotID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if lot.AvailableSpaces <= 0 {
		return nil, repository.ErrNoSpaceAvailable
	}
	lot.AvailableSpaces--

	copied := *res
	copied.ID = r.nextID
	r.nextID++
	if copied.SpaceID == 0 {
		copied.SpaceID = copied.ID + 100 // Chỗ tự gán
	}
	copied.CreatedAt = time.Now()
	r.reservations[copied.ID] = &copied
	out := copied
	return &out, nil
}

func (r *fakeReservationRepo) releaseLocked(res *domain.Reservation) {
	if lot, ok := r.lots.lots[res.LotID]; ok && lot.AvailableSpaces < lot.TotalSpaces {
		lot.AvailableSpaces++
	}
}

func (r *fakeReservationRepo) CancelWithInventory(_ context.Context, id int, userID int) (*domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[id]
	if !ok || (userID != 0 && res.UserID != userID) {
		return nil, repository.ErrNotFound
	}
	if !res.Status.CanTransitionTo(domain.ReservationCancelled) {
		return nil, fmt.Errorf("%w: %s -> cancelled", repository.ErrInvalidState, res.Status)
	}
	res.Status = domain.ReservationCancelled
	r.releaseLocked(res)
	out := *res
	return &out, nil
}

func (r *fakeReservationRepo) ExpireWithInventory(_ context.Context, id int) (*domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if res.Status != domain.ReservationActive {
		return nil, fmt.Errorf("%w: %s -> expired", repository.ErrInvalidState, res.Status)
	}
	res.Status = domain.ReservationExpired
	r.releaseLocked(res)
	out := *res
	return &out, nil
}

func (r *fakeReservationRepo) UpdateStatus(_ context.Context, id int, userID int, status domain.ReservationStatus) (*domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[id]
	if !ok || (userID != 0 && res.UserID != userID) {
		return nil, repository.ErrNotFound
	}
	if res.Status == status {
		out := *res
		return &out, nil
	}
	if !res.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", repository.ErrInvalidState, res.Status, status)
	}
	res.Status = status
	out := *res
	return &out, nil
}

func (r *fakeReservationRepo) FindByID(_ context.Context, id int) (*domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *res
	return &out, nil
}

func (r *fakeReservationRepo) FindByIDAndUser(_ context.Context, id int, userID int) (*domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[id]
	if !ok || res.UserID != userID {
		return nil, repository.ErrNotFound
	}
	out := *res
	return &out, nil
}

func (r *fakeReservationRepo) Find(_ context.Context, filter domain.ReservationFilterDTO) (*domain.PaginatedReservations, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.Reservation
	for _, res := range r.reservations {
		if filter.UserID != nil && res.UserID != *filter.UserID {
			continue
		}
		if filter.Status != "" && string(res.Status) != filter.Status {
			continue
		}
		matched = append(matched, *res)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	start := (filter.Page - 1) * filter.PageSize
	end := start + filter.PageSize
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}
	return &domain.PaginatedReservations{
		Count:    len(matched),
		Page:     filter.Page,
		PageSize: filter.PageSize,
		Results:  matched[start:end],
	}, nil
}

func (r *fakeReservationRepo) FindByUserAndStatus(_ context.Context, userID int, status domain.ReservationStatus, after *time.Time) ([]domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Reservation
	for _, res := range r.reservations {
		if res.UserID != userID || res.Status != status {
			continue
		}
		if after != nil {
			if status == domain.ReservationActive && !res.EndTime.After(*after) {
				continue
			}
			if status == domain.ReservationPending && !res.StartTime.After(*after) {
				continue
			}
		}
		out = append(out, *res)
	}
	return out, nil
}

func (r *fakeReservationRepo) FindExpiredActive(_ context.Context, now time.Time) ([]domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Reservation
	for _, res := range r.reservations {
		if res.Status == domain.ReservationActive && res.EndTime.Before(now) {
			out = append(out, *res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeReservationRepo) FindUpcomingPending(_ context.Context, now time.Time, window time.Duration) ([]domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	limit := now.Add(window)
	var out []domain.Reservation
	for _, res := range r.reservations {
		if res.Status == domain.ReservationPending && res.StartTime.After(now) && !res.StartTime.After(limit) {
			out = append(out, *res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeNotificationRepo struct {
	mu      sync.Mutex
	created []domain.Notification
	nextID  int
	failErr error
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{nextID: 1}
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *domain.Notification) (*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return nil, r.failErr
	}
	copied := *n
	copied.ID = r.nextID
	r.nextID++
	copied.CreatedAt = time.Now()
	r.created = append(r.created, copied)
	out := copied
	return &out, nil
}

func (r *fakeNotificationRepo) FindByUserID(_ context.Context, userID int, limit int) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notification
	for i := len(r.created) - 1; i >= 0; i-- {
		if r.created[i].UserID != userID {
			continue
		}
		out = append(out, r.created[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

type publishedEvent struct {
	userID int
	event  domain.NotificationEvent
}

type fakePublisher struct {
	mu      sync.Mutex
	events  []publishedEvent
	failErr error
}

func (p *fakePublisher) PublishToUser(userID int, event domain.NotificationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failErr != nil {
		return p.failErr
	}
	p.events = append(p.events, publishedEvent{userID: userID, event: event})
	return nil
}
