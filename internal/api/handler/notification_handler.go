package handler

import (
	"net/http"
	"strconv"

	"parking_reservation/internal/api/middleware"
	"parking_reservation/internal/service"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifService *service.NotificationService
}

func NewNotificationHandler(ns *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifService: ns}
}

// GET /notifications?limit=N — lịch sử notification của chính user.
func (h *NotificationHandler) ListMyNotifications(c *gin.Context) {
	userID, _ := middleware.CurrentUser(c)

	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Tham số limit không hợp lệ"})
			return
		}
		limit = parsed
	}

	notifications, err := h.notifService.ListForUser(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi lấy danh sách notification"})
		return
	}
	c.JSON(http.StatusOK, notifications)
}
