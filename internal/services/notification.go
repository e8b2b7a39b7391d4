package services

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/casefile-backend/internal/data/repos"
	types "github.com/yungbote/casefile-backend/internal/domain"
	"github.com/yungbote/casefile-backend/internal/domain/notification"
	"github.com/yungbote/casefile-backend/internal/platform/apierr"
	"github.com/yungbote/casefile-backend/internal/platform/ctxutil"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

// NotificationPage is one page of a user's inbox.
type NotificationPage struct {
	Items  []*types.Notification `json:"items"`
	Total  int64                 `json:"total"`
	Unread int64                 `json:"unread"`
}

type NotificationService interface {
	// Send stores one notification per recipient and publishes it. Inside a
	// transaction the publish is left to the caller via Publish.
	Send(dbc dbctx.Context, userIDs []uint, title, message, category string) ([]*types.Notification, error)
	Publish(rows []*types.Notification)
	List(dbc dbctx.Context, unreadOnly bool, page, perPage int) (*NotificationPage, error)
	MarkRead(dbc dbctx.Context, ids []uint) (int64, error)
}

type notificationService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.NotificationRepo
	pub  Publisher
}

func NewNotificationService(db *gorm.DB, baseLog *logger.Logger, repo repos.NotificationRepo, pub Publisher) NotificationService {
	return &notificationService{
		db:   db,
		log:  baseLog.With("service", "NotificationService"),
		repo: repo,
		pub:  pub,
	}
}

func (s *notificationService) Send(dbc dbctx.Context, userIDs []uint, title, message, category string) ([]*types.Notification, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apierr.Validation("missing_title", "notification title is required")
	}
	if category == "" {
		category = notification.CategoryUpdate
	}
	now := time.Now().UTC()
	seen := map[uint]bool{}
	rows := make([]*types.Notification, 0, len(userIDs))
	for _, id := range userIDs {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		rows = append(rows, &types.Notification{
			UserID:    id,
			Title:     title,
			Message:   message,
			Category:  category,
			CreatedAt: now,
		})
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if err := s.repo.Create(dbc, rows); err != nil {
		return nil, dbErr(err)
	}
	if dbc.Tx == nil {
		s.Publish(rows)
	}
	return rows, nil
}

func (s *notificationService) Publish(rows []*types.Notification) {
	for _, n := range rows {
		s.pub.Publish(context.Background(), n.UserID, EventNotification, n)
	}
}

func (s *notificationService) List(dbc dbctx.Context, unreadOnly bool, page, perPage int) (*NotificationPage, error) {
	userID := ctxutil.UserID(dbc.Ctx)
	if userID == 0 {
		return nil, errUnauthenticated
	}
	items, total, err := s.repo.ListForUser(dbc, userID, unreadOnly, page, perPage)
	if err != nil {
		return nil, dbErr(err)
	}
	unread, err := s.repo.CountUnread(dbc, userID)
	if err != nil {
		return nil, dbErr(err)
	}
	if items == nil {
		items = []*types.Notification{}
	}
	return &NotificationPage{Items: items, Total: total, Unread: unread}, nil
}

func (s *notificationService) MarkRead(dbc dbctx.Context, ids []uint) (int64, error) {
	userID := ctxutil.UserID(dbc.Ctx)
	if userID == 0 {
		return 0, errUnauthenticated
	}
	n, err := s.repo.MarkRead(dbc, userID, ids)
	return n, dbErr(err)
}
