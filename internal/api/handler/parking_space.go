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

type ParkingSpaceHandler struct {
	parkingService *service.ParkingService
}

func NewParkingSpaceHandler(ps *service.ParkingService) *ParkingSpaceHandler {
	return &ParkingSpaceHandler{parkingService: ps}
}

// POST /parking-spaces
func (h *ParkingSpaceHandler) CreateParkingSpace(c *gin.Context) {
	var dto domain.ParkingSpaceDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	space, err := h.parkingService.CreateSpace(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy bãi đỗ xe"})
			return
		}
		if errors.Is(err, service.ErrLotFull) || errors.Is(err, repository.ErrDuplicateEntry) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể tạo chỗ đỗ", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, space)
}

// GET /parking-spaces/:id
func (h *ParkingSpaceHandler) GetParkingSpaceByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID chỗ đỗ không hợp lệ"})
		return
	}

	space, err := h.parkingService.GetSpace(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy chỗ đỗ"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi lấy thông tin chỗ đỗ"})
		return
	}
	c.JSON(http.StatusOK, space)
}

// GET /parking-lots/:id/spaces?available=true
func (h *ParkingSpaceHandler) GetSpacesByLot(c *gin.Context) {
	lotID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID bãi đỗ không hợp lệ"})
		return
	}

	var spaces []domain.ParkingSpace
	if c.Query("available") == "true" {
		spaces, err = h.parkingService.ListAvailableSpaces(c.Request.Context(), lotID)
	} else {
		spaces, err = h.parkingService.ListSpaces(c.Request.Context(), lotID)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi lấy danh sách chỗ đỗ"})
		return
	}
	c.JSON(http.StatusOK, spaces)
}

// GET /parking-lots/:id/available-spaces
func (h *ParkingSpaceHandler) GetAvailableSpacesByLot(c *gin.Context) {
	lotID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID bãi đỗ không hợp lệ"})
		return
	}

	spaces, err := h.parkingService.ListAvailableSpaces(c.Request.Context(), lotID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi lấy danh sách chỗ trống"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(spaces), "spaces": spaces})
}

// PUT /parking-spaces/:id
func (h *ParkingSpaceHandler) UpdateParkingSpace(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID chỗ đỗ không hợp lệ"})
		return
	}

	var dto domain.ParkingSpaceDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	space, err := h.parkingService.UpdateSpace(c.Request.Context(), id, dto)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy chỗ đỗ để cập nhật"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể cập nhật chỗ đỗ", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, space)
}

// DELETE /parking-spaces/:id
func (h *ParkingSpaceHandler) DeleteParkingSpace(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID chỗ đỗ không hợp lệ"})
		return
	}

	err = h.parkingService.DeleteSpace(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy chỗ đỗ để xóa"})
			return
		}
		if errors.Is(err, repository.ErrInvalidState) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể xóa chỗ đỗ", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Đã xóa chỗ đỗ"})
}

// transition xử lý chung cho reserve/occupy/vacate.
func (h *ParkingSpaceHandler) transition(c *gin.Context, fn func(spaceID, userID int) (*domain.ParkingSpace, error)) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID chỗ đỗ không hợp lệ"})
		return
	}
	userID, _ := middleware.CurrentUser(c)

	space, err := fn(id, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy chỗ đỗ"})
			return
		}
		if errors.Is(err, repository.ErrInvalidState) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể đổi trạng thái chỗ đỗ", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, space)
}

// POST /parking-spaces/:id/reserve
func (h *ParkingSpaceHandler) ReserveSpace(c *gin.Context) {
	h.transition(c, func(spaceID, userID int) (*domain.ParkingSpace, error) {
		return h.parkingService.ReserveSpace(c.Request.Context(), spaceID, userID)
	})
}

// POST /parking-spaces/:id/occupy
func (h *ParkingSpaceHandler) OccupySpace(c *gin.Context) {
	h.transition(c, func(spaceID, userID int) (*domain.ParkingSpace, error) {
		return h.parkingService.OccupySpace(c.Request.Context(), spaceID, userID)
	})
}

// POST /parking-spaces/:id/vacate
func (h *ParkingSpaceHandler) VacateSpace(c *gin.Context) {
	h.transition(c, func(spaceID, _ int) (*domain.ParkingSpace, error) {
		return h.parkingService.VacateSpace(c.Request.Context(), spaceID)
	})
}
