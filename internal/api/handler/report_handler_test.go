package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository"
	"parking_reservation/internal/service"

	"github.com/gin-gonic/gin"
	"gopkg.in/guregu/null.v4"
)

// exportReportRepo chỉ phục vụ đường export; các phương thức gộp khác
// không được handler này chạm tới.
type exportReportRepo struct {
	daily    []domain.DailyReport
	rangeErr error
}

func (r *exportReportRepo) AggregateDaily(context.Context, time.Time) (*domain.ReservationAggregate, error) {
	return &domain.ReservationAggregate{}, nil
}

func (r *exportReportRepo) AggregateDailyForLot(context.Context, int, time.Time) (*domain.ReservationAggregate, error) {
	return &domain.ReservationAggregate{}, nil
}

func (r *exportReportRepo) AggregateMonthly(context.Context, int, time.Month) (*domain.ReservationAggregate, error) {
	return &domain.ReservationAggregate{}, nil
}

func (r *exportReportRepo) AggregateHourly(context.Context, time.Time) ([]domain.HourlyUsage, error) {
	return nil, nil
}

func (r *exportReportRepo) AverageDailyOccupancy(context.Context, int, time.Month) (float64, error) {
	return 0, nil
}

func (r *exportReportRepo) UpsertDaily(_ context.Context, report *domain.DailyReport) (*domain.DailyReport, error) {
	return report, nil
}

func (r *exportReportRepo) UpsertMonthly(_ context.Context, report *domain.MonthlyReport) (*domain.MonthlyReport, error) {
	return report, nil
}

func (r *exportReportRepo) UpsertLotReport(_ context.Context, report *domain.ParkingLotReport) (*domain.ParkingLotReport, error) {
	return report, nil
}

func (r *exportReportRepo) FindDailyByDate(context.Context, time.Time) (*domain.DailyReport, error) {
	return nil, repository.ErrNotFound
}

func (r *exportReportRepo) FindDailyRange(context.Context, time.Time, time.Time) ([]domain.DailyReport, error) {
	return r.daily, r.rangeErr
}

func (r *exportReportRepo) FindMonthlyRange(context.Context, time.Time, time.Time) ([]domain.MonthlyReport, error) {
	return nil, nil
}

func newExportRouter(repo *exportReportRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewReportHandler(service.NewReportService(repo, nil, nil))
	r := gin.New()
	r.GET("/reports/export", h.Export)
	return r
}

func TestExportWritesCSVAttachment(t *testing.T) {
	repo := &exportReportRepo{daily: []domain.DailyReport{{
		ID:   1,
		Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		TotalRevenue: 120.5, TotalReservations: 6, AverageDuration: 2.0,
		PeakHour: null.IntFrom(9), OccupancyRate: 55.0,
	}}}
	router := newExportRouter(repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/reports/export?type=daily&start_date=2025-06-01&end_date=2025-06-01", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, muốn 200, body: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q, muốn text/csv", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "daily_reports_2025-06-01_2025-06-01.csv") {
		t.Errorf("Content-Disposition = %q, thiếu tên file", cd)
	}
	if !strings.HasPrefix(w.Body.String(), "date,total_revenue") {
		t.Errorf("body không bắt đầu bằng header CSV: %q", w.Body.String())
	}
}

func TestExportFailureReturnsJSONWithoutCSVHeaders(t *testing.T) {
	repo := &exportReportRepo{rangeErr: errors.New("database không phản hồi")}
	router := newExportRouter(repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/reports/export?type=daily&start_date=2025-06-01&end_date=2025-06-02", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, muốn 500", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("lỗi phải trả JSON, Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != "" {
		t.Errorf("lỗi không được kèm Content-Disposition, có %q", cd)
	}
	if !strings.Contains(w.Body.String(), "Không thể xuất báo cáo") {
		t.Errorf("body lỗi sai: %q", w.Body.String())
	}
}
