package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository"
)

func testClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestReservationService(lot *domain.ParkingLot) (*ReservationService, *fakeReservationRepo, *fakeNotificationRepo, *fakePublisher) {
	lots := newFakeLotRepo(lot)
	resRepo := newFakeReservationRepo(lots)
	notifRepo := newFakeNotificationRepo()
	publisher := &fakePublisher{}
	notifService := NewNotificationService(notifRepo, publisher)
	svc := NewReservationService(resRepo, lots, notifService)
	return svc, resRepo, notifRepo, publisher
}

func activeLot() *domain.ParkingLot {
	return &domain.ParkingLot{
		ID:              1,
		Name:            "Bãi A",
		TotalSpaces:     5,
		AvailableSpaces: 5,
		HourlyRate:      10.0,
		Status:          domain.LotActive,
	}
}

func TestCreateReservationFutureStartIsPending(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	svc, _, notifRepo, publisher := newTestReservationService(activeLot())
	svc.now = testClock(now)

	res, err := svc.Create(context.Background(), 7, domain.CreateReservationDTO{
		LotID:        1,
		VehiclePlate: "51A-123.45",
		StartTime:    now.Add(2 * time.Hour),
		EndTime:      now.Add(4 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.Status != domain.ReservationPending {
		t.Errorf("status = %s, muốn pending cho start trong tương lai", res.Status)
	}
	if res.HourlyRate != 10.0 {
		t.Errorf("hourly_rate = %v, phải lấy từ bãi", res.HourlyRate)
	}

	// Notification phải được lưu trước rồi mới push
	if len(notifRepo.created) != 1 || notifRepo.created[0].Type != domain.NotifNewReservation {
		t.Fatalf("muốn 1 notification new_reservation, có %d", len(notifRepo.created))
	}
	if len(publisher.events) != 1 {
		t.Fatalf("muốn 1 event push, có %d", len(publisher.events))
	}
	if publisher.events[0].event.Data["notification_id"] != notifRepo.created[0].ID {
		t.Error("event push phải mang notification_id của bản ghi đã lưu")
	}
}

func TestCreateReservationImmediateStartIsActive(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	svc, _, _, _ := newTestReservationService(activeLot())
	svc.now = testClock(now)

	res, err := svc.Create(context.Background(), 7, domain.CreateReservationDTO{
		LotID:        1,
		VehiclePlate: "51A-123.45",
		StartTime:    now,
		EndTime:      now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.Status != domain.ReservationActive {
		t.Errorf("status = %s, muốn active cho start ngay bây giờ", res.Status)
	}
}

func TestCreateReservationValidation(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	svc, _, _, _ := newTestReservationService(activeLot())
	svc.now = testClock(now)

	// end <= start
	_, err := svc.Create(context.Background(), 7, domain.CreateReservationDTO{
		LotID: 1, VehiclePlate: "51A-1", StartTime: now.Add(time.Hour), EndTime: now.Add(time.Hour),
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("end == start phải trả ErrInvalidInput, được %v", err)
	}

	// start trong quá khứ
	_, err = svc.Create(context.Background(), 7, domain.CreateReservationDTO{
		LotID: 1, VehiclePlate: "51A-1", StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour),
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("start trong quá khứ phải trả ErrInvalidInput, được %v", err)
	}
}

func TestCreateReservationInactiveLot(t *testing.T) {
	lot := activeLot()
	lot.Status = domain.LotMaintenance
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	svc, _, _, _ := newTestReservationService(lot)
	svc.now = testClock(now)

	_, err := svc.Create(context.Background(), 7, domain.CreateReservationDTO{
		LotID: 1, VehiclePlate: "51A-1", StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour),
	})
	if !errors.Is(err, ErrLotNotActive) {
		t.Errorf("bãi maintenance phải trả ErrLotNotActive, được %v", err)
	}
}

func TestCreateReservationCapacityExhausted(t *testing.T) {
	lot := activeLot()
	lot.AvailableSpaces = 0
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	svc, _, _, _ := newTestReservationService(lot)
	svc.now = testClock(now)

	_, err := svc.Create(context.Background(), 7, domain.CreateReservationDTO{
		LotID: 1, VehiclePlate: "51A-1", StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour),
	})
	if !errors.Is(err, repository.ErrNoSpaceAvailable) {
		t.Errorf("bãi hết chỗ phải trả ErrNoSpaceAvailable, được %v", err)
	}
}

func TestCancelRestoresInventory(t *testing.T) {
	lot := activeLot()
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	svc, _, notifRepo, _ := newTestReservationService(lot)
	svc.now = testClock(now)

	res, err := svc.Create(context.Background(), 7, domain.CreateReservationDTO{
		LotID: 1, VehiclePlate: "51A-1", StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if lot.AvailableSpaces != 4 {
		t.Fatalf("sau Create counter = %d, muốn 4", lot.AvailableSpaces)
	}

	cancelled, err := svc.Cancel(context.Background(), res.ID, 7)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != domain.ReservationCancelled {
		t.Errorf("status = %s, muốn cancelled", cancelled.Status)
	}
	if lot.AvailableSpaces != 5 {
		t.Errorf("sau Cancel counter = %d, muốn 5", lot.AvailableSpaces)
	}

	// new_reservation + reservation_cancelled
	if len(notifRepo.created) != 2 || notifRepo.created[1].Type != domain.NotifReservationCancelled {
		t.Errorf("muốn notification reservation_cancelled thứ hai, có %d bản ghi", len(notifRepo.created))
	}
}

func TestCancelAlreadyCancelledFails(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	svc, _, _, _ := newTestReservationService(activeLot())
	svc.now = testClock(now)

	res, _ := svc.Create(context.Background(), 7, domain.CreateReservationDTO{
		LotID: 1, VehiclePlate: "51A-1", StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour),
	})
	if _, err := svc.Cancel(context.Background(), res.ID, 7); err != nil {
		t.Fatalf("Cancel lần 1: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), res.ID, 7); !errors.Is(err, repository.ErrInvalidState) {
		t.Errorf("Cancel lần 2 phải trả ErrInvalidState, được %v", err)
	}
}

func TestCancelOtherUsersReservationLooksMissing(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	svc, _, _, _ := newTestReservationService(activeLot())
	svc.now = testClock(now)

	res, _ := svc.Create(context.Background(), 7, domain.CreateReservationDTO{
		LotID: 1, VehiclePlate: "51A-1", StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour),
	})
	if _, err := svc.Cancel(context.Background(), res.ID, 99); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("hủy reservation của người khác phải trả ErrNotFound, được %v", err)
	}
}

func TestCompleteDoesNotRestoreInventory(t *testing.T) {
	lot := activeLot()
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	svc, _, _, _ := newTestReservationService(lot)
	svc.now = testClock(now)

	res, _ := svc.Create(context.Background(), 7, domain.CreateReservationDTO{
		LotID: 1, VehiclePlate: "51A-1", StartTime: now, EndTime: now.Add(time.Hour),
	})

	completed, err := svc.Complete(context.Background(), res.ID, 7)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if completed.Status != domain.ReservationCompleted {
		t.Errorf("status = %s, muốn completed", completed.Status)
	}
	// Chỗ đỗ chỉ được giải phóng qua vacate, không qua complete
	if lot.AvailableSpaces != 4 {
		t.Errorf("sau Complete counter = %d, muốn vẫn là 4", lot.AvailableSpaces)
	}
}

func TestCompleteOnlyValidFromActive(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	svc, _, _, _ := newTestReservationService(activeLot())
	svc.now = testClock(now)

	res, _ := svc.Create(context.Background(), 7, domain.CreateReservationDTO{
		LotID: 1, VehiclePlate: "51A-1", StartTime: now, EndTime: now.Add(time.Hour),
	})
	if _, err := svc.Complete(context.Background(), res.ID, 7); err != nil {
		t.Fatalf("Complete lần 1: %v", err)
	}
	if _, err := svc.Complete(context.Background(), res.ID, 7); !errors.Is(err, repository.ErrInvalidState) {
		t.Errorf("Complete trên bản ghi đã completed phải trả ErrInvalidState, được %v", err)
	}

	pending, _ := svc.Create(context.Background(), 7, domain.CreateReservationDTO{
		LotID: 1, VehiclePlate: "51A-2", StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour),
	})
	if _, err := svc.Complete(context.Background(), pending.ID, 7); !errors.Is(err, repository.ErrInvalidState) {
		t.Errorf("Complete trên reservation pending phải trả ErrInvalidState, được %v", err)
	}
}

func TestTransitionStatusSameStatusIsNoop(t *testing.T) {
	lot := activeLot()
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	svc, _, notifRepo, _ := newTestReservationService(lot)
	svc.now = testClock(now)

	res, _ := svc.Create(context.Background(), 7, domain.CreateReservationDTO{
		LotID: 1, VehiclePlate: "51A-1", StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour),
	})
	if _, err := svc.Cancel(context.Background(), res.ID, 7); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	same, err := svc.TransitionStatus(context.Background(), res.ID, "cancelled")
	if err != nil {
		t.Fatalf("TransitionStatus về trạng thái hiện tại phải là no-op, nhận lỗi: %v", err)
	}
	if same.Status != domain.ReservationCancelled {
		t.Errorf("status = %s, muốn vẫn là cancelled", same.Status)
	}
	if lot.AvailableSpaces != 5 {
		t.Errorf("no-op không được đụng counter, counter = %d, muốn 5", lot.AvailableSpaces)
	}
	// new_reservation + reservation_cancelled, không có notification thứ ba
	if len(notifRepo.created) != 2 {
		t.Errorf("no-op không được tạo notification mới, có %d bản ghi", len(notifRepo.created))
	}
}

func TestTransitionStatusRejectsUnknown(t *testing.T) {
	svc, _, _, _ := newTestReservationService(activeLot())
	if _, err := svc.TransitionStatus(context.Background(), 1, "parked"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("trạng thái lạ phải trả ErrInvalidInput, được %v", err)
	}
}

func TestListScopesNonAdminToOwnReservations(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	svc, _, _, _ := newTestReservationService(activeLot())
	svc.now = testClock(now)

	for _, userID := range []int{7, 7, 8} {
		if _, err := svc.Create(context.Background(), userID, domain.CreateReservationDTO{
			LotID: 1, VehiclePlate: "51A-1", StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour),
		}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	page, err := svc.List(context.Background(), 7, domain.RoleUser, domain.ReservationFilterDTO{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Count != 2 {
		t.Errorf("user thường thấy %d reservation, muốn 2", page.Count)
	}

	adminPage, err := svc.List(context.Background(), 1, domain.RoleAdmin, domain.ReservationFilterDTO{})
	if err != nil {
		t.Fatalf("List admin: %v", err)
	}
	if adminPage.Count != 3 {
		t.Errorf("admin thấy %d reservation, muốn 3", adminPage.Count)
	}
}
