package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository"
)

type pgReportRepository struct {
	db *sql.DB
}

func NewPgReportRepository(db *sql.DB) repository.ReportRepository {
	return &pgReportRepository{db: db}
}

// Chỉ reservation active/completed mới được tính vào báo cáo;
// doanh thu = thời lượng (giờ) x đơn giá của bãi. Gộp ngay trong database
// để không phải kéo toàn bộ hàng về bộ nhớ.
const aggregateSelect = `SELECT
	COALESCE(SUM(EXTRACT(EPOCH FROM (r.end_time - r.start_time)) / 3600 * l.hourly_rate), 0),
	COUNT(*),
	COALESCE(AVG(EXTRACT(EPOCH FROM (r.end_time - r.start_time)) / 3600), 0)
	FROM reservations r JOIN parking_lots l ON l.id = r.lot_id
	WHERE r.status IN ('active', 'completed')`

func (r *pgReportRepository) AggregateDaily(ctx context.Context, date time.Time) (*domain.ReservationAggregate, error) {
	agg := &domain.ReservationAggregate{}
	query := aggregateSelect + ` AND r.start_time::date = $1`
	err := r.db.QueryRowContext(ctx, query, date).
		Scan(&agg.TotalRevenue, &agg.TotalReservations, &agg.AverageDuration)
	if err != nil {
		return nil, fmt.Errorf("ReportRepository.AggregateDaily: %w", err)
	}

	// Giờ cao điểm: giờ có nhiều reservation nhất; hòa nhau thì giờ nhỏ hơn thắng.
	peakQuery := `SELECT EXTRACT(HOUR FROM r.start_time)::int AS hr, COUNT(*) AS cnt
	           FROM reservations r
	           WHERE r.status IN ('active', 'completed') AND r.start_time::date = $1
	           GROUP BY hr ORDER BY cnt DESC, hr ASC LIMIT 1`
	var hour int
	var cnt int
	err = r.db.QueryRowContext(ctx, peakQuery, date).Scan(&hour, &cnt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ReportRepository.AggregateDaily (peak hour): %w", err)
	}
	if err == nil {
		agg.PeakHour.SetValid(int64(hour))
	}
	return agg, nil
}

func (r *pgReportRepository) AggregateHourly(ctx context.Context, date time.Time) ([]domain.HourlyUsage, error) {
	query := `SELECT EXTRACT(HOUR FROM r.start_time)::int AS hr, COUNT(*) AS cnt
	           FROM reservations r
	           WHERE r.status IN ('active', 'completed') AND r.start_time::date = $1
	           GROUP BY hr ORDER BY hr ASC`
	rows, err := r.db.QueryContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("ReportRepository.AggregateHourly: %w", err)
	}
	defer rows.Close()

	var usages []domain.HourlyUsage
	for rows.Next() {
		var usage domain.HourlyUsage
		if err := rows.Scan(&usage.Hour, &usage.Usage); err != nil {
			return nil, fmt.Errorf("ReportRepository.AggregateHourly (scanning row): %w", err)
		}
		usages = append(usages, usage)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ReportRepository.AggregateHourly (rows error): %w", err)
	}
	return usages, nil
}

func (r *pgReportRepository) AggregateDailyForLot(ctx context.Context, lotID int, date time.Time) (*domain.ReservationAggregate, error) {
	agg := &domain.ReservationAggregate{}
	query := aggregateSelect + ` AND r.lot_id = $1 AND r.start_time::date = $2`
	err := r.db.QueryRowContext(ctx, query, lotID, date).
		Scan(&agg.TotalRevenue, &agg.TotalReservations, &agg.AverageDuration)
	if err != nil {
		return nil, fmt.Errorf("ReportRepository.AggregateDailyForLot: %w", err)
	}
	return agg, nil
}

func (r *pgReportRepository) AggregateMonthly(ctx context.Context, year int, month time.Month) (*domain.ReservationAggregate, error) {
	agg := &domain.ReservationAggregate{}
	query := aggregateSelect + ` AND EXTRACT(YEAR FROM r.start_time) = $1 AND EXTRACT(MONTH FROM r.start_time) = $2`
	err := r.db.QueryRowContext(ctx, query, year, int(month)).
		Scan(&agg.TotalRevenue, &agg.TotalReservations, &agg.AverageDuration)
	if err != nil {
		return nil, fmt.Errorf("ReportRepository.AggregateMonthly: %w", err)
	}

	// Ngày cao điểm của tháng; hòa nhau thì ngày sớm hơn thắng.
	peakQuery := `SELECT r.start_time::date AS d, COUNT(*) AS cnt
	           FROM reservations r
	           WHERE r.status IN ('active', 'completed')
	             AND EXTRACT(YEAR FROM r.start_time) = $1 AND EXTRACT(MONTH FROM r.start_time) = $2
	           GROUP BY d ORDER BY cnt DESC, d ASC LIMIT 1`
	var day time.Time
	var cnt int
	err = r.db.QueryRowContext(ctx, peakQuery, year, int(month)).Scan(&day, &cnt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ReportRepository.AggregateMonthly (peak day): %w", err)
	}
	if err == nil {
		agg.PeakDay.SetValid(day.In(time.UTC))
	}
	return agg, nil
}

func (r *pgReportRepository) AverageDailyOccupancy(ctx context.Context, year int, month time.Month) (float64, error) {
	var avg float64
	query := `SELECT COALESCE(AVG(occupancy_rate), 0) FROM daily_reports
	           WHERE EXTRACT(YEAR FROM date) = $1 AND EXTRACT(MONTH FROM date) = $2`
	err := r.db.QueryRowContext(ctx, query, year, int(month)).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("ReportRepository.AverageDailyOccupancy: %w", err)
	}
	return avg, nil
}

func (r *pgReportRepository) UpsertDaily(ctx context.Context, report *domain.DailyReport) (*domain.DailyReport, error) {
	// Key duy nhất theo ngày: chạy lại cho cùng ngày thì ghi đè số liệu cũ.
	query := `INSERT INTO daily_reports (date, total_revenue, total_reservations, average_duration, peak_hour, occupancy_rate, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           ON CONFLICT (date) DO UPDATE SET
	             total_revenue = EXCLUDED.total_revenue,
	             total_reservations = EXCLUDED.total_reservations,
	             average_duration = EXCLUDED.average_duration,
	             peak_hour = EXCLUDED.peak_hour,
	             occupancy_rate = EXCLUDED.occupancy_rate,
	             updated_at = CURRENT_TIMESTAMP
	           RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		report.Date, report.TotalRevenue, report.TotalReservations,
		report.AverageDuration, report.PeakHour, report.OccupancyRate,
	).Scan(&report.ID, &report.CreatedAt, &report.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("ReportRepository.UpsertDaily: %w", err)
	}
	report.CreatedAt = report.CreatedAt.In(time.UTC)
	report.UpdatedAt = report.UpdatedAt.In(time.UTC)
	return report, nil
}

func (r *pgReportRepository) UpsertMonthly(ctx context.Context, report *domain.MonthlyReport) (*domain.MonthlyReport, error) {
	query := `INSERT INTO monthly_reports (year, month, total_revenue, total_reservations, average_duration, average_occupancy_rate, peak_day, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           ON CONFLICT (year, month) DO UPDATE SET
	             total_revenue = EXCLUDED.total_revenue,
	             total_reservations = EXCLUDED.total_reservations,
	             average_duration = EXCLUDED.average_duration,
	             average_occupancy_rate = EXCLUDED.average_occupancy_rate,
	             peak_day = EXCLUDED.peak_day,
	             updated_at = CURRENT_TIMESTAMP
	           RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		report.Year, report.Month, report.TotalRevenue, report.TotalReservations,
		report.AverageDuration, report.AverageOccupancyRate, report.PeakDay,
	).Scan(&report.ID, &report.CreatedAt, &report.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("ReportRepository.UpsertMonthly: %w", err)
	}
	report.CreatedAt = report.CreatedAt.In(time.UTC)
	report.UpdatedAt = report.UpdatedAt.In(time.UTC)
	return report, nil
}

func (r *pgReportRepository) UpsertLotReport(ctx context.Context, report *domain.ParkingLotReport) (*domain.ParkingLotReport, error) {
	query := `INSERT INTO parking_lot_reports (lot_id, date, total_revenue, total_reservations, average_duration, occupancy_rate, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           ON CONFLICT (lot_id, date) DO UPDATE SET
	             total_revenue = EXCLUDED.total_revenue,
	             total_reservations = EXCLUDED.total_reservations,
	             average_duration = EXCLUDED.average_duration,
	             occupancy_rate = EXCLUDED.occupancy_rate,
	             updated_at = CURRENT_TIMESTAMP
	           RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		report.LotID, report.Date, report.TotalRevenue, report.TotalReservations,
		report.AverageDuration, report.OccupancyRate,
	).Scan(&report.ID, &report.CreatedAt, &report.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("ReportRepository.UpsertLotReport: %w", err)
	}
	report.CreatedAt = report.CreatedAt.In(time.UTC)
	report.UpdatedAt = report.UpdatedAt.In(time.UTC)
	return report, nil
}

const dailyReportColumns = `id, date, total_revenue, total_reservations, average_duration, peak_hour, occupancy_rate, created_at, updated_at`

func (r *pgReportRepository) FindDailyByDate(ctx context.Context, date time.Time) (*domain.DailyReport, error) {
	report := &domain.DailyReport{}
	query := `SELECT ` + dailyReportColumns + ` FROM daily_reports WHERE date = $1`
	err := r.db.QueryRowContext(ctx, query, date).Scan(
		&report.ID, &report.Date, &report.TotalRevenue, &report.TotalReservations,
		&report.AverageDuration, &report.PeakHour, &report.OccupancyRate,
		&report.CreatedAt, &report.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ReportRepository.FindDailyByDate: %w", err)
	}
	return report, nil
}

func (r *pgReportRepository) FindDailyRange(ctx context.Context, start, end time.Time) ([]domain.DailyReport, error) {
	query := `SELECT ` + dailyReportColumns + ` FROM daily_reports
	           WHERE date >= $1 AND date <= $2 ORDER BY date`
	rows, err := r.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("ReportRepository.FindDailyRange: %w", err)
	}
	defer rows.Close()

	var reports []domain.DailyReport
	for rows.Next() {
		var report domain.DailyReport
		if err := rows.Scan(
			&report.ID, &report.Date, &report.TotalRevenue, &report.TotalReservations,
			&report.AverageDuration, &report.PeakHour, &report.OccupancyRate,
			&report.CreatedAt, &report.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ReportRepository.FindDailyRange (scanning row): %w", err)
		}
		reports = append(reports, report)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ReportRepository.FindDailyRange (rows error): %w", err)
	}
	return reports, nil
}

func (r *pgReportRepository) FindMonthlyRange(ctx context.Context, start, end time.Time) ([]domain.MonthlyReport, error) {
	query := `SELECT id, year, month, total_revenue, total_reservations, average_duration, average_occupancy_rate, peak_day, created_at, updated_at
	           FROM monthly_reports
	           WHERE make_date(year, month, 1) >= make_date($1, $2, 1)
	             AND make_date(year, month, 1) <= make_date($3, $4, 1)
	           ORDER BY year, month`
	rows, err := r.db.QueryContext(ctx, query, start.Year(), int(start.Month()), end.Year(), int(end.Month()))
	if err != nil {
		return nil, fmt.Errorf("ReportRepository.FindMonthlyRange: %w", err)
	}
	defer rows.Close()

	var reports []domain.MonthlyReport
	for rows.Next() {
		var report domain.MonthlyReport
		if err := rows.Scan(
			&report.ID, &report.Year, &report.Month, &report.TotalRevenue, &report.TotalReservations,
			&report.AverageDuration, &report.AverageOccupancyRate, &report.PeakDay,
			&report.CreatedAt, &report.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ReportRepository.FindMonthlyRange (scanning row): %w", err)
		}
		reports = append(reports, report)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ReportRepository.FindMonthlyRange (rows error): %w", err)
	}
	return reports, nil
}
