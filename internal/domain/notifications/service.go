package notifications

import (
	"context"
	"log/slog"
	"time"
)

type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type Service struct {
	store StoreAPI
}

func New(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) Create(ctx context.Context, userID, ntype, title, body string) error {
	return s.store.CreateNotification(ctx, Notification{UserID: userID, Type: ntype, Title: title, Body: body})
}

// Notify is Create for callers that must not fail because of the feed.
func (s *Service) Notify(ctx context.Context, userID, ntype, title, body string) {
	if s == nil || userID == "" {
		return
	}
	if err := s.Create(ctx, userID, ntype, title, body); err != nil {
		slog.Warn("notification create failed", "type", ntype, "user_id", userID, "err", err)
	}
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListNotifications(ctx, userID, limit, offset)
}

func (s *Service) CountUnread(ctx context.Context, userID string) (int, error) {
	return s.store.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.store.MarkRead(ctx, userID, notificationID)
}
