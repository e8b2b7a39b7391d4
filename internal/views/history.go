package views

import (
	"encoding/json"

	"github.com/yungbote/casefile-backend/internal/domain/history"
	"github.com/yungbote/casefile-backend/internal/domain/user"
)

// HistoryRow renders a revision. Without full access the snapshot is reduced
// to its comments and status.
func HistoryRow(rev *history.Revision, author *user.User, full bool, opts Options) M {
	m := M{
		"id":         rev.ID,
		"created_at": stamp(rev.CreatedAt),
		"updated_at": stamp(rev.CreatedAt),
		"user":       userBlock(author, rev.UserID, opts),
	}
	if full {
		m["data"] = rawJSON(rev.Data)
		return m
	}
	m["data"] = reduce(rev.Data)
	return m
}

func reduce(raw []byte) M {
	var snap struct {
		Comments any `json:"comments"`
		Status   any `json:"status"`
	}
	_ = json.Unmarshal(raw, &snap)
	return M{"comments": snap.Comments, "status": snap.Status}
}
