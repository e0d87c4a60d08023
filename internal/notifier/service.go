package notifier

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercadero/auction-engine/pkg/db/models"
	"github.com/mercadero/auction-engine/pkg/enums"
	pkgerrors "github.com/mercadero/auction-engine/pkg/errors"
)

// NotificationDTO is the API shape of a notification.
type NotificationDTO struct {
	ID        uuid.UUID              `json:"id"`
	Type      enums.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Link      *string                `json:"link,omitempty"`
	ReadAt    *time.Time             `json:"readAt,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

// NotificationsPageDTO is one cursor page of notifications.
type NotificationsPageDTO struct {
	Items      []NotificationDTO `json:"items"`
	NextCursor string            `json:"nextCursor,omitempty"`
}

func toNotificationDTO(notification models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        notification.ID,
		Type:      notification.Type,
		Title:     notification.Title,
		Message:   notification.Message,
		Link:      notification.Link,
		ReadAt:    notification.ReadAt,
		CreatedAt: notification.CreatedAt,
	}
}

// Service exposes the user-facing notification operations.
type Service interface {
	ListNotifications(ctx context.Context, userID uuid.UUID, cursor string, limit int) (*NotificationsPageDTO, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService builds a notification service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification repo is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListNotifications(ctx context.Context, userID uuid.UUID, cursor string, limit int) (*NotificationsPageDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, nextCursor, err := s.repo.ListByUser(ctx, userID, cursor, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	page := &NotificationsPageDTO{
		Items:      make([]NotificationDTO, 0, len(rows)),
		NextCursor: nextCursor,
	}
	for _, row := range rows {
		page.Items = append(page.Items, toNotificationDTO(row))
	}
	return page, nil
}

func (s *service) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	if id == uuid.Nil || userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id and user id are required")
	}
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "notification not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	return nil
}
