package dto

import "github.com/yigit/eventhub/internal/app/models"

// NotificationListResponse is a page of the caller's notifications
type NotificationListResponse struct {
	Notifications  []models.Notification `json:"notifications"`
	PaginationInfo PaginationInfo        `json:"paginationInfo"`
}

// UnreadCountResponse carries the caller's unread notification count
type UnreadCountResponse struct {
	Unread int64 `json:"unread"`
}

// MarkAllReadResponse reports how many notifications changed state
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}
