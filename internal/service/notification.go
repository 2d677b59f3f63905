package service

import (
	"context"
	"fmt"
	"html"

	"vehicle-risk-backend/internal/domain"
	"vehicle-risk-backend/internal/logger"
	"vehicle-risk-backend/internal/repository"
)

type notificationService struct {
	noteRepo    repository.NotificationRepository
	contactRepo repository.UserContactRepository
	email       EmailService
}

// NewNotificationService stores in-app notifications and mirrors them by email.
// contactRepo and email may be nil, in which case no email is sent.
func NewNotificationService(noteRepo repository.NotificationRepository, contactRepo repository.UserContactRepository, email EmailService) NotificationService {
	return &notificationService{noteRepo: noteRepo, contactRepo: contactRepo, email: email}
}

func (s *notificationService) Notify(ctx context.Context, note *domain.Notification) error {
	logger.EnterMethod("notificationService.Notify", "userID", note.UserID, "title", note.Title)

	if err := s.noteRepo.Create(ctx, note); err != nil {
		logger.ExitMethodWithError("notificationService.Notify", err, "userID", note.UserID)
		return fmt.Errorf("failed to store notification: %w", err)
	}

	if s.email != nil && s.contactRepo != nil {
		s.sendEmail(ctx, note)
	}

	logger.ExitMethod("notificationService.Notify", "notificationID", note.ID)
	return nil
}

func (s *notificationService) sendEmail(ctx context.Context, note *domain.Notification) {
	contact, err := s.contactRepo.GetContact(ctx, note.UserID)
	if err != nil {
		logger.Warn("No contact for notification email", "userID", note.UserID, "error", err)
		return
	}
	if contact.Email == "" {
		return
	}

	htmlBody := fmt.Sprintf("<p>Hello %s,</p><p>%s</p>", html.EscapeString(contact.Name), html.EscapeString(note.Message))
	if err := s.email.SendEmail(ctx, contact.Email, contact.Name, note.Title, note.Message, htmlBody); err != nil {
		logger.Warn("Notification email failed", "userID", note.UserID, "error", err)
	}
}

func (s *notificationService) GetNotifications(ctx context.Context, userID string, page, pageSize int32) ([]domain.Notification, int32, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize
	return s.noteRepo.List(ctx, userID, pageSize, offset)
}
