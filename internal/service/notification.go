package service

import (
	"context"

	"hireflow-backend/internal/domain"
	"hireflow-backend/internal/repository"
)

type notificationService struct {
	noteRepo repository.NotificationRepository
}

func NewNotificationService(noteRepo repository.NotificationRepository) NotificationService {
	return &notificationService{noteRepo: noteRepo}
}

func (s *notificationService) GetNotifications(ctx context.Context, rc domain.RequestContext, page, pageSize int32) ([]domain.Notification, int32, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize
	return s.noteRepo.List(ctx, rc.ActorID, pageSize, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, rc domain.RequestContext, notificationID int32) error {
	return s.noteRepo.MarkAsRead(ctx, notificationID, rc.ActorID)
}
