package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository"
)

var ErrInvalidDateRange = errors.New("khoảng ngày không hợp lệ")
var ErrInvalidReportType = errors.New("loại báo cáo không hợp lệ, chỉ nhận daily hoặc monthly")

// ReportService gộp số liệu phía database và upsert vào các bảng báo cáo.
// Gọi lại cùng một kỳ sẽ ghi đè bản ghi cũ thay vì tạo bản mới.
type ReportService struct {
	reportRepo repository.ReportRepository
	lotRepo    repository.ParkingLotRepository
	userRepo   repository.UserRepository

	now func() time.Time
}

func NewReportService(reportRepo repository.ReportRepository, lotRepo repository.ParkingLotRepository, userRepo repository.UserRepository) *ReportService {
	return &ReportService{reportRepo: reportRepo, lotRepo: lotRepo, userRepo: userRepo, now: time.Now}
}

// UserStats đếm người dùng theo vai trò cho dashboard admin.
func (s *ReportService) UserStats(ctx context.Context) (map[domain.UserRole]int, error) {
	counts, err := s.userRepo.CountByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("lỗi đếm người dùng: %w", err)
	}
	return counts, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// currentOccupancy tính occupancy trung bình từ snapshot hiện tại của các bãi.
func (s *ReportService) currentOccupancy(ctx context.Context) (float64, error) {
	lots, err := s.lotRepo.FindAll(ctx)
	if err != nil {
		return 0, err
	}
	if len(lots) == 0 {
		return 0, nil
	}
	var sum float64
	for i := range lots {
		sum += lots[i].OccupancyRate()
	}
	return sum / float64(len(lots)), nil
}

// GenerateDaily gộp reservation của một ngày và upsert báo cáo ngày.
func (s *ReportService) GenerateDaily(ctx context.Context, date time.Time) (*domain.DailyReport, error) {
	date = dateOnly(date)
	agg, err := s.reportRepo.AggregateDaily(ctx, date)
	if err != nil {
		return nil, err
	}
	occupancy, err := s.currentOccupancy(ctx)
	if err != nil {
		return nil, err
	}
	report := &domain.DailyReport{
		Date:              date,
		TotalRevenue:      agg.TotalRevenue,
		TotalReservations: agg.TotalReservations,
		AverageDuration:   agg.AverageDuration,
		PeakHour:          agg.PeakHour,
		OccupancyRate:     occupancy,
	}
	return s.reportRepo.UpsertDaily(ctx, report)
}

// GenerateForLot upsert báo cáo ngày của một bãi cụ thể.
func (s *ReportService) GenerateForLot(ctx context.Context, lotID int, date time.Time) (*domain.ParkingLotReport, error) {
	date = dateOnly(date)
	lot, err := s.lotRepo.FindByID(ctx, lotID)
	if err != nil {
		return nil, err
	}
	agg, err := s.reportRepo.AggregateDailyForLot(ctx, lotID, date)
	if err != nil {
		return nil, err
	}
	report := &domain.ParkingLotReport{
		LotID:             lotID,
		Date:              date,
		TotalRevenue:      agg.TotalRevenue,
		TotalReservations: agg.TotalReservations,
		AverageDuration:   agg.AverageDuration,
		OccupancyRate:     lot.OccupancyRate(),
	}
	return s.reportRepo.UpsertLotReport(ctx, report)
}

// GenerateMonthly upsert báo cáo tháng. average_occupancy_rate lấy từ các
// báo cáo ngày đã lưu trong tháng, nên báo cáo ngày cần chạy trước.
func (s *ReportService) GenerateMonthly(ctx context.Context, year int, month time.Month) (*domain.MonthlyReport, error) {
	agg, err := s.reportRepo.AggregateMonthly(ctx, year, month)
	if err != nil {
		return nil, err
	}
	avgOccupancy, err := s.reportRepo.AverageDailyOccupancy(ctx, year, month)
	if err != nil {
		return nil, err
	}
	report := &domain.MonthlyReport{
		Year:                 year,
		Month:                int(month),
		TotalRevenue:         agg.TotalRevenue,
		TotalReservations:    agg.TotalReservations,
		AverageDuration:      agg.AverageDuration,
		AverageOccupancyRate: avgOccupancy,
		PeakDay:              agg.PeakDay,
	}
	return s.reportRepo.UpsertMonthly(ctx, report)
}

// DailyReservations đếm reservation theo ngày trong 7 ngày gần nhất
// (tính cả hôm nay) cho biểu đồ dashboard; ngày không có reservation ra 0.
func (s *ReportService) DailyReservations(ctx context.Context) ([]domain.DailyReservationPoint, error) {
	end := dateOnly(s.now())
	start := end.AddDate(0, 0, -6)

	points := make([]domain.DailyReservationPoint, 0, 7)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		agg, err := s.reportRepo.AggregateDaily(ctx, d)
		if err != nil {
			return nil, err
		}
		points = append(points, domain.DailyReservationPoint{Date: d, Reservations: agg.TotalReservations})
	}
	return points, nil
}

// RevenueTrend trả doanh thu theo ngày trong 7 ngày gần nhất.
func (s *ReportService) RevenueTrend(ctx context.Context) ([]domain.RevenuePoint, error) {
	end := dateOnly(s.now())
	start := end.AddDate(0, 0, -6)

	points := make([]domain.RevenuePoint, 0, 7)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		agg, err := s.reportRepo.AggregateDaily(ctx, d)
		if err != nil {
			return nil, err
		}
		points = append(points, domain.RevenuePoint{Date: d, Revenue: agg.TotalRevenue})
	}
	return points, nil
}

// PeakHours trả số reservation theo giờ bắt đầu của hôm nay.
func (s *ReportService) PeakHours(ctx context.Context) ([]domain.HourlyUsage, error) {
	return s.reportRepo.AggregateHourly(ctx, dateOnly(s.now()))
}

// Summary so sánh số liệu hôm nay với hôm qua cho dashboard.
func (s *ReportService) Summary(ctx context.Context) (*domain.ReportSummary, error) {
	now := s.now()
	today := dateOnly(now)
	yesterday := today.AddDate(0, 0, -1)

	todayAgg, err := s.reportRepo.AggregateDaily(ctx, today)
	if err != nil {
		return nil, err
	}
	yesterdayAgg, err := s.reportRepo.AggregateDaily(ctx, yesterday)
	if err != nil {
		return nil, err
	}
	occupancy, err := s.currentOccupancy(ctx)
	if err != nil {
		return nil, err
	}

	var yesterdayOccupancy float64
	if prev, err := s.reportRepo.FindDailyByDate(ctx, yesterday); err == nil {
		yesterdayOccupancy = prev.OccupancyRate
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	return &domain.ReportSummary{
		TotalRevenue:       todayAgg.TotalRevenue,
		DailyReservations:  todayAgg.TotalReservations,
		ParkingUtilization: occupancy,
		AverageDuration:    todayAgg.AverageDuration,
		RevenueChange:      todayAgg.TotalRevenue - yesterdayAgg.TotalRevenue,
		ReservationChange:  todayAgg.TotalReservations - yesterdayAgg.TotalReservations,
		UtilizationChange:  occupancy - yesterdayOccupancy,
		DurationChange:     todayAgg.AverageDuration - yesterdayAgg.AverageDuration,
	}, nil
}

// DailyRange trả về các báo cáo ngày đã lưu trong [start, end].
func (s *ReportService) DailyRange(ctx context.Context, start, end time.Time) ([]domain.DailyReport, error) {
	start, end = dateOnly(start), dateOnly(end)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end_date trước start_date", ErrInvalidDateRange)
	}
	return s.reportRepo.FindDailyRange(ctx, start, end)
}

// ExportCSV ghi báo cáo daily hoặc monthly trong khoảng ngày ra CSV.
func (s *ReportService) ExportCSV(ctx context.Context, w io.Writer, reportType string, start, end time.Time) error {
	start, end = dateOnly(start), dateOnly(end)
	if end.Before(start) {
		return fmt.Errorf("%w: end_date trước start_date", ErrInvalidDateRange)
	}

	cw := csv.NewWriter(w)
	switch reportType {
	case "daily":
		reports, err := s.reportRepo.FindDailyRange(ctx, start, end)
		if err != nil {
			return err
		}
		if err := cw.Write([]string{"date", "total_revenue", "total_reservations", "average_duration", "peak_hour", "occupancy_rate"}); err != nil {
			return err
		}
		for _, r := range reports {
			peakHour := ""
			if r.PeakHour.Valid {
				peakHour = strconv.FormatInt(r.PeakHour.Int64, 10)
			}
			record := []string{
				r.Date.Format("2006-01-02"),
				strconv.FormatFloat(r.TotalRevenue, 'f', 2, 64),
				strconv.Itoa(r.TotalReservations),
				strconv.FormatFloat(r.AverageDuration, 'f', 2, 64),
				peakHour,
				strconv.FormatFloat(r.OccupancyRate, 'f', 2, 64),
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	case "monthly":
		reports, err := s.reportRepo.FindMonthlyRange(ctx, start, end)
		if err != nil {
			return err
		}
		if err := cw.Write([]string{"year", "month", "total_revenue", "total_reservations", "average_duration", "average_occupancy_rate", "peak_day"}); err != nil {
			return err
		}
		for _, r := range reports {
			peakDay := ""
			if r.PeakDay.Valid {
				peakDay = r.PeakDay.Time.Format("2006-01-02")
			}
			record := []string{
				strconv.Itoa(r.Year),
				strconv.Itoa(r.Month),
				strconv.FormatFloat(r.TotalRevenue, 'f', 2, 64),
				strconv.Itoa(r.TotalReservations),
				strconv.FormatFloat(r.AverageDuration, 'f', 2, 64),
				strconv.FormatFloat(r.AverageOccupancyRate, 'f', 2, 64),
				peakDay,
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidReportType, reportType)
	}
	cw.Flush()
	return cw.Error()
}
