package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"parking_reservation/internal/repository"
	"parking_reservation/internal/service"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService *service.ReportService
}

func NewReportHandler(rs *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: rs}
}

func parseDateParam(c *gin.Context, name string, fallback time.Time) (time.Time, bool) {
	value := c.Query(name)
	if value == "" {
		return fallback, true
	}
	date, err := time.Parse("2006-01-02", value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Tham số %s phải có dạng YYYY-MM-DD", name)})
		return time.Time{}, false
	}
	return date, true
}

// GET /reports/summary
func (h *ReportHandler) Summary(c *gin.Context) {
	summary, err := h.reportService.Summary(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi tính summary", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GET /reports/users — số người dùng theo vai trò.
func (h *ReportHandler) UserStats(c *gin.Context) {
	counts, err := h.reportService.UserStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi đếm người dùng", "details": err.Error()})
		return
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "by_role": counts})
}

// GET /reports/daily-reservations — số reservation theo ngày, 7 ngày gần nhất.
func (h *ReportHandler) DailyReservations(c *gin.Context) {
	points, err := h.reportService.DailyReservations(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi gộp số liệu reservation", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, points)
}

// GET /reports/revenue — doanh thu theo ngày, 7 ngày gần nhất.
func (h *ReportHandler) Revenue(c *gin.Context) {
	points, err := h.reportService.RevenueTrend(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi gộp doanh thu", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, points)
}

// GET /reports/peak-hours — số reservation theo giờ bắt đầu của hôm nay.
func (h *ReportHandler) PeakHours(c *gin.Context) {
	usages, err := h.reportService.PeakHours(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi gộp giờ cao điểm", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, usages)
}

// POST /reports/daily?date=YYYY-MM-DD
func (h *ReportHandler) GenerateDaily(c *gin.Context) {
	date, ok := parseDateParam(c, "date", time.Now())
	if !ok {
		return
	}

	report, err := h.reportService.GenerateDaily(c.Request.Context(), date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể tạo báo cáo ngày", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// POST /reports/monthly?year=YYYY&month=MM
func (h *ReportHandler) GenerateMonthly(c *gin.Context) {
	now := time.Now()
	year, err := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(now.Year())))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tham số year không hợp lệ"})
		return
	}
	month, err := strconv.Atoi(c.DefaultQuery("month", strconv.Itoa(int(now.Month()))))
	if err != nil || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tham số month phải trong khoảng 1-12"})
		return
	}

	report, err := h.reportService.GenerateMonthly(c.Request.Context(), year, time.Month(month))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể tạo báo cáo tháng", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// POST /reports/parking-lot/:id?date=YYYY-MM-DD
func (h *ReportHandler) GenerateForLot(c *gin.Context) {
	lotID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID bãi đỗ không hợp lệ"})
		return
	}
	date, ok := parseDateParam(c, "date", time.Now())
	if !ok {
		return
	}

	report, err := h.reportService.GenerateForLot(c.Request.Context(), lotID, date)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy bãi đỗ xe"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể tạo báo cáo bãi", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// GET /reports/date-range?start_date=...&end_date=...
func (h *ReportHandler) DateRange(c *gin.Context) {
	now := time.Now()
	start, ok := parseDateParam(c, "start_date", now.AddDate(0, 0, -30))
	if !ok {
		return
	}
	end, ok := parseDateParam(c, "end_date", now)
	if !ok {
		return
	}

	reports, err := h.reportService.DailyRange(c.Request.Context(), start, end)
	if err != nil {
		if errors.Is(err, service.ErrInvalidDateRange) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi lấy báo cáo", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, reports)
}

// GET /reports/export?type=daily|monthly&start_date=...&end_date=...
func (h *ReportHandler) Export(c *gin.Context) {
	now := time.Now()
	start, ok := parseDateParam(c, "start_date", now.AddDate(0, 0, -30))
	if !ok {
		return
	}
	end, ok := parseDateParam(c, "end_date", now)
	if !ok {
		return
	}
	reportType := c.DefaultQuery("type", "daily")
	if reportType != "daily" && reportType != "monthly" {
		c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrInvalidReportType.Error()})
		return
	}
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrInvalidDateRange.Error()})
		return
	}

	// Ghi ra buffer trước: lỗi giữa chừng còn trả được JSON thay vì
	// body CSV dở dang sau khi header đã gửi.
	var buf bytes.Buffer
	if err := h.reportService.ExportCSV(c.Request.Context(), &buf, reportType, start, end); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể xuất báo cáo", "details": err.Error()})
		return
	}

	filename := fmt.Sprintf("%s_reports_%s_%s.csv", reportType, start.Format("2006-01-02"), end.Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}
