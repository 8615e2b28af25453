package handler

import (
	"errors"
	"net/http"
	"strconv"

	"parking_reservation/internal/api/middleware"
	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository"
	"parking_reservation/internal/service"

	"github.com/gin-gonic/gin"
)

type ReservationHandler struct {
	reservationService *service.ReservationService
}

func NewReservationHandler(rs *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservationService: rs}
}

func reservationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy reservation"})
	case errors.Is(err, service.ErrLotNotActive),
		errors.Is(err, repository.ErrInvalidState),
		errors.Is(err, repository.ErrNoSpaceAvailable),
		errors.Is(err, repository.ErrOverlappingReservation):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi xử lý reservation", "details": err.Error()})
	}
}

// POST /reservations
func (h *ReservationHandler) CreateReservation(c *gin.Context) {
	var dto domain.CreateReservationDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, _ := middleware.CurrentUser(c)

	res, err := h.reservationService.Create(c.Request.Context(), userID, dto)
	if err != nil {
		reservationError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GET /reservations — admin thấy tất cả, user thường chỉ thấy của mình.
func (h *ReservationHandler) ListReservations(c *gin.Context) {
	var filter domain.ReservationFilterDTO
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, role := middleware.CurrentUser(c)

	page, err := h.reservationService.List(c.Request.Context(), userID, role, filter)
	if err != nil {
		reservationError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /reservations/:id
func (h *ReservationHandler) GetReservationByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID reservation không hợp lệ"})
		return
	}
	userID, role := middleware.CurrentUser(c)

	res, err := h.reservationService.GetByID(c.Request.Context(), id, userID, role)
	if err != nil {
		reservationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reservation": res,
		"total_cost":  res.TotalCost(),
	})
}

// POST /reservations/:id/cancel
func (h *ReservationHandler) CancelReservation(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID reservation không hợp lệ"})
		return
	}
	userID, role := middleware.CurrentUser(c)
	if role == domain.RoleAdmin {
		userID = 0 // Admin hủy được reservation của bất kỳ ai
	}

	res, err := h.reservationService.Cancel(c.Request.Context(), id, userID)
	if err != nil {
		reservationError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /reservations/:id/complete
func (h *ReservationHandler) CompleteReservation(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID reservation không hợp lệ"})
		return
	}
	userID, role := middleware.CurrentUser(c)
	if role == domain.RoleAdmin {
		userID = 0
	}

	res, err := h.reservationService.Complete(c.Request.Context(), id, userID)
	if err != nil {
		reservationError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// PUT /reservations/:id/status — admin đổi trạng thái trực tiếp.
func (h *ReservationHandler) UpdateReservationStatus(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID reservation không hợp lệ"})
		return
	}

	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.reservationService.TransitionStatus(c.Request.Context(), id, body.Status)
	if err != nil {
		reservationError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ReservationHandler) myList(c *gin.Context, fn func(ctx *gin.Context, userID int) ([]domain.Reservation, error)) {
	userID, _ := middleware.CurrentUser(c)
	reservations, err := fn(c, userID)
	if err != nil {
		reservationError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservations)
}

// GET /reservations/my/active
func (h *ReservationHandler) MyActive(c *gin.Context) {
	h.myList(c, func(c *gin.Context, userID int) ([]domain.Reservation, error) {
		return h.reservationService.MyActive(c.Request.Context(), userID)
	})
}

// GET /reservations/my/pending
func (h *ReservationHandler) MyPending(c *gin.Context) {
	h.myList(c, func(c *gin.Context, userID int) ([]domain.Reservation, error) {
		return h.reservationService.MyPending(c.Request.Context(), userID)
	})
}

// GET /reservations/my/expired
func (h *ReservationHandler) MyExpired(c *gin.Context) {
	h.myList(c, func(c *gin.Context, userID int) ([]domain.Reservation, error) {
		return h.reservationService.MyExpired(c.Request.Context(), userID)
	})
}

// GET /reservations/my/cancelled
func (h *ReservationHandler) MyCancelled(c *gin.Context) {
	h.myList(c, func(c *gin.Context, userID int) ([]domain.Reservation, error) {
		return h.reservationService.MyCancelled(c.Request.Context(), userID)
	})
}
