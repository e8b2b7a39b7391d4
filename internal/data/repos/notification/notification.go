package notification

import (
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/casefile-backend/internal/domain"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

type NotificationRepo interface {
	Create(dbc dbctx.Context, rows []*types.Notification) error
	ListForUser(dbc dbctx.Context, userID uint, unreadOnly bool, page, perPage int) ([]*types.Notification, int64, error)
	CountUnread(dbc dbctx.Context, userID uint) (int64, error)
	MarkRead(dbc dbctx.Context, userID uint, ids []uint) (int64, error)
}

type notificationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNotificationRepo(db *gorm.DB, baseLog *logger.Logger) NotificationRepo {
	return &notificationRepo{db: db, log: baseLog.With("repo", "NotificationRepo")}
}

func (r *notificationRepo) Create(dbc dbctx.Context, rows []*types.Notification) error {
	if len(rows) == 0 {
		return nil
	}
	return dbc.DB(r.db).Create(&rows).Error
}

func (r *notificationRepo) ListForUser(dbc dbctx.Context, userID uint, unreadOnly bool, page, perPage int) ([]*types.Notification, int64, error) {
	q := dbc.DB(r.db).Model(&types.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("read_status = ?", false)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if perPage <= 0 || perPage > 100 {
		perPage = 20
	}
	if page < 1 {
		page = 1
	}
	var out []*types.Notification
	if err := q.Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *notificationRepo) CountUnread(dbc dbctx.Context, userID uint) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&types.Notification{}).
		Where("user_id = ? AND read_status = ?", userID, false).
		Count(&n).Error
	return n, err
}

// MarkRead marks ids (all unread when ids is empty) as read for userID only.
func (r *notificationRepo) MarkRead(dbc dbctx.Context, userID uint, ids []uint) (int64, error) {
	q := dbc.DB(r.db).Model(&types.Notification{}).
		Where("user_id = ? AND read_status = ?", userID, false)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	res := q.Updates(map[string]any{"read_status": true, "read_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}
