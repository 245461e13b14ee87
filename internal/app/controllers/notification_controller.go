package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/eventhub/internal/app/models/dto"
	"github.com/yigit/eventhub/internal/app/services"
	"github.com/yigit/eventhub/internal/middleware"
	"github.com/yigit/eventhub/internal/pkg/helpers"
)

// NotificationController serves the caller's notification inbox
type NotificationController struct {
	notificationService services.NotificationService
}

// NewNotificationController creates a new notification controller
func NewNotificationController(notificationService services.NotificationService) *NotificationController {
	return &NotificationController{notificationService: notificationService}
}

// ListNotifications returns a page of the caller's notifications, newest first
// @Summary List notifications
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param unread query bool false "Only unread notifications"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.NotificationListResponse}
// @Router /notifications [get]
func (c *NotificationController) ListNotifications(ctx *gin.Context) {
	page := helpers.ParsePaginationParams(ctx)
	unreadOnly, _ := strconv.ParseBool(ctx.DefaultQuery("unread", "false"))

	items, total, err := c.notificationService.List(ctx.Request.Context(), middleware.CallerFrom(ctx), unreadOnly, page)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NotificationListResponse{
		Notifications:  items,
		PaginationInfo: page.Info(total),
	}))
}

// UnreadCount returns the caller's unread counter
// @Summary Unread notification count
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.UnreadCountResponse}
// @Router /notifications/unread-count [get]
func (c *NotificationController) UnreadCount(ctx *gin.Context) {
	count, err := c.notificationService.UnreadCount(ctx.Request.Context(), middleware.CallerFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.UnreadCountResponse{Unread: count}))
}

// MarkRead flags one notification as read
// @Summary Mark notification read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 403 {object} dto.ErrorResponse "Notification belongs to another user"
// @Failure 404 {object} dto.ErrorResponse "Notification not found"
// @Router /notifications/{id}/read [put]
func (c *NotificationController) MarkRead(ctx *gin.Context) {
	id, err := middleware.PathID(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if err := c.notificationService.MarkRead(ctx.Request.Context(), middleware.CallerFrom(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Notification marked as read"}))
}

// MarkAllRead flags every notification of the caller as read
func (c *NotificationController) MarkAllRead(ctx *gin.Context) {
	updated, err := c.notificationService.MarkAllRead(ctx.Request.Context(), middleware.CallerFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.MarkAllReadResponse{Updated: updated}))
}

// DeleteNotification removes one of the caller's notifications
func (c *NotificationController) DeleteNotification(ctx *gin.Context) {
	id, err := middleware.PathID(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if err := c.notificationService.Delete(ctx.Request.Context(), middleware.CallerFrom(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Notification deleted"}))
}
