package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/yungbote/casefile-backend/internal/data/repos"
	entrepo "github.com/yungbote/casefile-backend/internal/data/repos/entities"
	"github.com/yungbote/casefile-backend/internal/domain/activity"
	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/platform/apierr"
	"github.com/yungbote/casefile-backend/internal/platform/cache"
	"github.com/yungbote/casefile-backend/internal/platform/config"
	"github.com/yungbote/casefile-backend/internal/platform/ctxutil"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
	"github.com/yungbote/casefile-backend/internal/platform/observability"
	"github.com/yungbote/casefile-backend/internal/search"
	"github.com/yungbote/casefile-backend/internal/views"
)

const countCacheTTL = 30 * time.Second

type SearchMeta struct {
	PerPage    int    `json:"per_page"`
	Page       int    `json:"page"`
	More       bool   `json:"more"`
	NextCursor string `json:"next_cursor,omitempty"`
}

type SearchResult struct {
	Items     []views.M  `json:"items"`
	Meta      SearchMeta `json:"meta"`
	Total     *int64     `json:"total,omitempty"`
	TotalType string     `json:"totalType,omitempty"`
}

type SearchService interface {
	Search(dbc dbctx.Context, kind entities.Kind, req search.Request) (*SearchResult, error)
}

type searchService struct {
	db       *gorm.DB
	log      *logger.Logger
	stores   EntityStores
	users    repos.UserRepo
	activity ActivityService
	counts   cache.Store
	cfg      *config.Manager
}

func NewSearchService(
	db *gorm.DB,
	baseLog *logger.Logger,
	stores EntityStores,
	users repos.UserRepo,
	act ActivityService,
	counts cache.Store,
	cfg *config.Manager,
) SearchService {
	return &searchService{
		db:       db,
		log:      baseLog.With("service", "SearchService"),
		stores:   stores,
		users:    users,
		activity: act,
		counts:   counts,
		cfg:      cfg,
	}
}

func (s *searchService) compiler(caller *Caller, kind entities.Kind) search.Compiler {
	return search.Compiler{Kind: kind, Subject: caller.Subject, Policy: policyOf(s.cfg)}
}

func (s *searchService) Search(dbc dbctx.Context, kind entities.Kind, req search.Request) (*SearchResult, error) {
	ctx, span := observability.StartSpan(ctxutil.Default(dbc.Ctx), "search."+string(kind),
		attribute.Int("search.groups", len(req.Q)),
		attribute.Bool("search.count", req.IncludeCount),
	)
	dbc.Ctx = ctx
	out, err := s.search(dbc, kind, req)
	observability.EndSpan(span, err)
	return out, err
}

func (s *searchService) search(dbc dbctx.Context, kind entities.Kind, req search.Request) (*SearchResult, error) {
	started := time.Now()
	caller, err := callerFromCtx(dbc, s.users)
	if err != nil {
		return nil, err
	}
	store, err := s.stores.For(kind)
	if err != nil {
		return nil, err
	}
	settings := s.cfg.Get()
	page, err := search.PageOf(req, settings.SearchPerPageMax)
	if err != nil {
		return nil, apierr.Validation("invalid_cursor", "%s", err.Error())
	}
	where := s.compiler(caller, kind).Where(req.Q)

	ids, err := store.SearchIDs(dbc, where, page)
	if err != nil {
		return nil, dbErr(err)
	}
	more := len(ids) > page.PerPage
	if more {
		ids = ids[:page.PerPage]
	}
	rows, err := store.GetMany(dbc, ids, entrepo.DepthFull)
	if err != nil {
		return nil, dbErr(err)
	}
	opts := caller.ViewOptions()
	items := make([]views.M, 0, len(rows))
	for _, e := range rows {
		items = append(items, views.Project(e, views.ModeCompact, opts))
	}
	out := &SearchResult{
		Items: items,
		Meta: SearchMeta{
			PerPage:    page.PerPage,
			Page:       page.Page,
			More:       more,
			NextCursor: search.NextCursor(ids, more),
		},
	}

	totalType := ""
	if req.IncludeCount {
		total, tt, err := s.count(dbc, caller, store, kind, req.Q, settings.SearchEstimateThreshold)
		if err != nil {
			return nil, err
		}
		out.Total = &total
		out.TotalType = tt
		totalType = tt
	}

	if err := s.activity.Record(dbc, ActivityEntry{
		UserID:  caller.ID(),
		Action:  activity.ActionSearch,
		Model:   kind.ModelName(),
		Details: queryDetails(req.Q),
	}); err != nil {
		s.log.Warn("record search activity failed", "kind", kind, "error", err)
	}
	observability.Current().ObserveSearch(string(kind), totalType, time.Since(started))
	return out, nil
}

// count returns the exact total, or the planner estimate when the estimate
// is above threshold. Totals are cached briefly per caller and query.
func (s *searchService) count(dbc dbctx.Context, caller *Caller, store EntityStore, kind entities.Kind, groups []search.Group, threshold int) (int64, string, error) {
	key := countKey(kind, caller.ID(), groups)
	if s.counts != nil && key != "" {
		if v, err := s.counts.Get(dbc.Ctx, key); err == nil {
			if total, tt, ok := parseCachedCount(v); ok {
				return total, tt, nil
			}
		} else if !errors.Is(err, cache.ErrMiss) {
			s.log.Debug("count cache read failed", "error", err)
		}
	}

	where := s.compiler(caller, kind).Where(groups)
	if threshold <= 0 {
		threshold = search.DefaultEstimateThreshold
	}
	var total int64
	tt := search.TotalExact
	est, err := store.EstimateCount(dbc, where)
	if err == nil && est > int64(threshold) {
		total, tt = est, search.TotalEstimated
	} else {
		total, err = store.Count(dbc, where)
		if err != nil {
			return 0, "", dbErr(err)
		}
	}
	if s.counts != nil && key != "" {
		if err := s.counts.Set(dbc.Ctx, key, strconv.FormatInt(total, 10)+"|"+tt, countCacheTTL); err != nil {
			s.log.Debug("count cache write failed", "error", err)
		}
	}
	return total, tt, nil
}

func countKey(kind entities.Kind, userID uint, groups []search.Group) string {
	b, err := json.Marshal(groups)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(append([]byte(string(kind)+"|"+strconv.FormatUint(uint64(userID), 10)+"|"), b...))
	return "casefile:count:" + hex.EncodeToString(sum[:16])
}

func parseCachedCount(v string) (int64, string, bool) {
	raw, tt, ok := strings.Cut(v, "|")
	if !ok {
		return 0, "", false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, "", false
	}
	return n, tt, true
}

func queryDetails(groups []search.Group) string {
	b, err := json.Marshal(groups)
	if err != nil {
		return ""
	}
	if len(b) > 2000 {
		b = b[:2000]
	}
	return string(b)
}
