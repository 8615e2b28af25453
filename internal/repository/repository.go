package repository

import (
	"context"
	"errors"
	"time"

	"parking_reservation/internal/domain"
)

var ErrNotFound = errors.New("không tìm thấy bản ghi")
var ErrDuplicateEntry = errors.New("bản ghi đã tồn tại")
var ErrInvalidState = errors.New("trạng thái hiện tại không cho phép thao tác này")
var ErrNoSpaceAvailable = errors.New("không còn chỗ đỗ trống")
var ErrOverlappingReservation = errors.New("chỗ đỗ đã có reservation trùng khung giờ")

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int) (*domain.User, error)
	UpdateProfile(ctx context.Context, user *domain.User) (*domain.User, error)
	CountByRole(ctx context.Context) (map[domain.UserRole]int, error)
}

type ParkingLotRepository interface {
	Create(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error)
	FindByID(ctx context.Context, id int) (*domain.ParkingLot, error)
	FindAll(ctx context.Context) ([]domain.ParkingLot, error)
	Update(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error)
	Delete(ctx context.Context, id int) error
}

type ParkingSpaceRepository interface {
	Create(ctx context.Context, space *domain.ParkingSpace) (*domain.ParkingSpace, error)
	FindByID(ctx context.Context, id int) (*domain.ParkingSpace, error)
	FindByLotID(ctx context.Context, lotID int) ([]domain.ParkingSpace, error)
	FindAvailableByLotID(ctx context.Context, lotID int) ([]domain.ParkingSpace, error)
	Update(ctx context.Context, space *domain.ParkingSpace) (*domain.ParkingSpace, error)
	Delete(ctx context.Context, id int) error
	// Reserve/Occupy/Vacate đổi trạng thái chỗ đỗ và counter của bãi
	// trong cùng một transaction; counter luôn bị kẹp trong [0, total_spaces].
	Reserve(ctx context.Context, spaceID int, userID int) error
	Occupy(ctx context.Context, spaceID int, userID int) error
	Vacate(ctx context.Context, spaceID int) error
}

type ReservationRepository interface {
	// CreateWithInventory chèn reservation, chuyển chỗ đỗ sang reserved và
	// trừ counter của bãi trong một transaction duy nhất. spaceID = 0 nghĩa là
	// tự chọn chỗ trống đầu tiên của bãi (khóa hàng để hai request đồng thời
	// không cùng lấy một chỗ).
	CreateWithInventory(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error)
	// CancelWithInventory đặt status=cancelled, trả chỗ đỗ về available và
	// cộng lại counter, tất cả trong một transaction.
	CancelWithInventory(ctx context.Context, id int, userID int) (*domain.Reservation, error)
	// ExpireWithInventory như trên nhưng cho scanner: chỉ áp dụng khi status
	// vẫn là active, không kiểm tra chủ sở hữu.
	ExpireWithInventory(ctx context.Context, id int) (*domain.Reservation, error)
	UpdateStatus(ctx context.Context, id int, userID int, status domain.ReservationStatus) (*domain.Reservation, error)
	FindByID(ctx context.Context, id int) (*domain.Reservation, error)
	FindByIDAndUser(ctx context.Context, id int, userID int) (*domain.Reservation, error)
	Find(ctx context.Context, filter domain.ReservationFilterDTO) (*domain.PaginatedReservations, error)
	FindByUserAndStatus(ctx context.Context, userID int, status domain.ReservationStatus, after *time.Time) ([]domain.Reservation, error)
	// FindExpiredActive trả về reservation active có end_time < now.
	FindExpiredActive(ctx context.Context, now time.Time) ([]domain.Reservation, error)
	// FindUpcomingPending trả về reservation pending bắt đầu trong (now, now+window].
	FindUpcomingPending(ctx context.Context, now time.Time, window time.Duration) ([]domain.Reservation, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
	FindByUserID(ctx context.Context, userID int, limit int) ([]domain.Notification, error)
}

type ReportRepository interface {
	AggregateDaily(ctx context.Context, date time.Time) (*domain.ReservationAggregate, error)
	AggregateDailyForLot(ctx context.Context, lotID int, date time.Time) (*domain.ReservationAggregate, error)
	AggregateMonthly(ctx context.Context, year int, month time.Month) (*domain.ReservationAggregate, error)
	// AggregateHourly đếm reservation theo giờ bắt đầu trong một ngày,
	// chỉ trả các giờ có ít nhất một reservation.
	AggregateHourly(ctx context.Context, date time.Time) ([]domain.HourlyUsage, error)
	// AverageDailyOccupancy lấy trung bình occupancy_rate của các daily report
	// đã lưu trong tháng; báo cáo tháng vì vậy phụ thuộc báo cáo ngày chạy trước.
	AverageDailyOccupancy(ctx context.Context, year int, month time.Month) (float64, error)
	UpsertDaily(ctx context.Context, report *domain.DailyReport) (*domain.DailyReport, error)
	UpsertMonthly(ctx context.Context, report *domain.MonthlyReport) (*domain.MonthlyReport, error)
	UpsertLotReport(ctx context.Context, report *domain.ParkingLotReport) (*domain.ParkingLotReport, error)
	FindDailyByDate(ctx context.Context, date time.Time) (*domain.DailyReport, error)
	FindDailyRange(ctx context.Context, start, end time.Time) ([]domain.DailyReport, error)
	FindMonthlyRange(ctx context.Context, start, end time.Time) ([]domain.MonthlyReport, error)
}
