package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"slices"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/casefile-backend/internal/data/repos"
	vocabrepo "github.com/yungbote/casefile-backend/internal/data/repos/vocab"
	types "github.com/yungbote/casefile-backend/internal/domain"
	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/domain/vocab"
	"github.com/yungbote/casefile-backend/internal/platform/apierr"
	"github.com/yungbote/casefile-backend/internal/platform/config"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

// Vocabulary names as they appear in URLs.
const (
	VocabLabels              = "labels"
	VocabSources             = "sources"
	VocabLocations           = "locations"
	VocabLocationAdminLevels = "location-admin-levels"
	VocabLocationTypes       = "location-types"
	VocabEventTypes          = "eventtypes"
	VocabCountries           = "countries"
	VocabEthnographies       = "ethnographies"
	VocabDialects            = "dialects"
	VocabPotentialViolations = "potentialviolations"
	VocabClaimedViolations   = "claimedviolations"
	VocabAtoaInfos           = "atoainfos"
	VocabAtobInfos           = "atobinfos"
	VocabBtobInfos           = "btobinfos"
	VocabItoaInfos           = "itoainfos"
	VocabItobInfos           = "itobinfos"
	VocabItoiInfos           = "itoiinfos"
	VocabRoles               = "roles"
)

const maxImportRows = 10000

type VocabQuery struct {
	Q       string
	Filter  string
	Type    string
	Page    int
	PerPage int
}

type VocabPage struct {
	Items   any   `json:"items"`
	Total   int64 `json:"total"`
	PerPage int   `json:"perPage,omitempty"`
}

type VocabService interface {
	Names() []string
	List(dbc dbctx.Context, name string, q VocabQuery) (*VocabPage, error)
	Get(dbc dbctx.Context, name string, id uint) (any, error)
	Create(dbc dbctx.Context, name string, raw []byte) (any, error)
	Update(dbc dbctx.Context, name string, id uint, raw []byte) (any, error)
	Delete(dbc dbctx.Context, name string, id uint) error
	// Import creates one row per CSV record. The first record is the header
	// and names the JSON fields. All rows commit together or not at all.
	Import(dbc dbctx.Context, name string, r io.Reader) (int, error)
	// RelationInfos returns every relation catalog keyed by edge name.
	RelationInfos(dbc dbctx.Context) (map[string]any, error)
	// RebuildIDTrees recomputes id_tree and full_location for every location.
	RebuildIDTrees(ctx context.Context, progress func(done int)) (int, error)
}

// catalog is one editable reference table.
type catalog interface {
	list(dbc dbctx.Context, q VocabQuery) (any, int64, error)
	get(dbc dbctx.Context, id uint) (any, error)
	save(dbc dbctx.Context, userID, id uint, raw []byte) (any, error)
	remove(dbc dbctx.Context, id uint) error
	isLocation() bool
}

type vocabService struct {
	db       *gorm.DB
	log      *logger.Logger
	reg      *repos.VocabRegistry
	users    repos.UserRepo
	roles    repos.RoleRepo
	history  HistoryService
	cfg      *config.Manager
	catalogs map[string]catalog
}

func NewVocabService(
	db *gorm.DB,
	baseLog *logger.Logger,
	reg *repos.VocabRegistry,
	users repos.UserRepo,
	roles repos.RoleRepo,
	history HistoryService,
	cfg *config.Manager,
) VocabService {
	s := &vocabService{
		db:      db,
		log:     baseLog.With("service", "VocabService"),
		reg:     reg,
		users:   users,
		roles:   roles,
		history: history,
		cfg:     cfg,
	}
	s.catalogs = s.buildCatalogs()
	return s
}

func (s *vocabService) Names() []string {
	out := make([]string, 0, len(s.catalogs))
	for name := range s.catalogs {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

func (s *vocabService) catalog(name string) (catalog, error) {
	c, ok := s.catalogs[name]
	if !ok {
		return nil, apierr.NotFound("unknown_vocabulary", "unknown vocabulary %q", name)
	}
	return c, nil
}

// editor resolves the caller and checks the edit gate for c.
func (s *vocabService) editor(dbc dbctx.Context, c catalog) (*Caller, error) {
	caller, err := callerFromCtx(dbc, s.users)
	if err != nil {
		return nil, err
	}
	if !policyOf(s.cfg).CanEditVocabulary(caller.Subject, c.isLocation()) {
		return nil, apierr.Denied("vocabulary_edit_not_permitted")
	}
	return caller, nil
}

func (s *vocabService) List(dbc dbctx.Context, name string, q VocabQuery) (*VocabPage, error) {
	c, err := s.catalog(name)
	if err != nil {
		return nil, err
	}
	if _, err := callerFromCtx(dbc, s.users); err != nil {
		return nil, err
	}
	if q.PerPage > 1000 {
		q.PerPage = 1000
	}
	items, total, err := c.list(dbc, q)
	if err != nil {
		return nil, dbErr(err)
	}
	return &VocabPage{Items: items, Total: total, PerPage: q.PerPage}, nil
}

func (s *vocabService) Get(dbc dbctx.Context, name string, id uint) (any, error) {
	c, err := s.catalog(name)
	if err != nil {
		return nil, err
	}
	if _, err := callerFromCtx(dbc, s.users); err != nil {
		return nil, err
	}
	return c.get(dbc, id)
}

func (s *vocabService) Create(dbc dbctx.Context, name string, raw []byte) (any, error) {
	return s.write(dbc, name, 0, raw)
}

func (s *vocabService) Update(dbc dbctx.Context, name string, id uint, raw []byte) (any, error) {
	if id == 0 {
		return nil, apierr.Validation("invalid_id", "id is required")
	}
	return s.write(dbc, name, id, raw)
}

func (s *vocabService) write(dbc dbctx.Context, name string, id uint, raw []byte) (any, error) {
	c, err := s.catalog(name)
	if err != nil {
		return nil, err
	}
	caller, err := s.editor(dbc, c)
	if err != nil {
		return nil, err
	}
	var out any
	err = s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = c.save(dbctx.Context{Ctx: dbc.Ctx, Tx: tx}, caller.ID(), id, raw)
		return err
	})
	if err != nil {
		return nil, dbErr(err)
	}
	s.log.Info("Vocabulary saved", "vocabulary", name, "id", id, "user_id", caller.ID())
	return out, nil
}

func (s *vocabService) Delete(dbc dbctx.Context, name string, id uint) error {
	c, err := s.catalog(name)
	if err != nil {
		return err
	}
	caller, err := s.editor(dbc, c)
	if err != nil {
		return err
	}
	if err := c.remove(dbc, id); err != nil {
		return dbErr(err)
	}
	s.log.Info("Vocabulary deleted", "vocabulary", name, "id", id, "user_id", caller.ID())
	return nil
}

func (s *vocabService) Import(dbc dbctx.Context, name string, r io.Reader) (int, error) {
	c, err := s.catalog(name)
	if err != nil {
		return 0, err
	}
	caller, err := s.editor(dbc, c)
	if err != nil {
		return 0, err
	}
	rows, err := csvObjects(r)
	if err != nil {
		return 0, err
	}
	err = s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		for i, raw := range rows {
			if _, err := c.save(inner, caller.ID(), 0, raw); err != nil {
				if e, ok := apierr.As(err); ok && e.Kind == apierr.KindValidation {
					return apierr.Validation(e.Code, "row %d: %s", i+2, e.Err.Error())
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, dbErr(err)
	}
	s.log.Info("Vocabulary imported", "vocabulary", name, "rows", len(rows), "user_id", caller.ID())
	return len(rows), nil
}

// csvObjects turns CSV records into JSON objects keyed by the header row.
func csvObjects(r io.Reader) ([][]byte, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, apierr.Validation("empty_csv", "csv has no header row")
	}
	if err != nil {
		return nil, apierr.Validation("invalid_csv", "%s", err.Error())
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}
	var out [][]byte
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apierr.Validation("invalid_csv", "%s", err.Error())
		}
		if len(out) >= maxImportRows {
			return nil, apierr.Validation("csv_too_large", "csv has more than %d rows", maxImportRows)
		}
		obj := make(map[string]any, len(header))
		for i, key := range header {
			if key == "" || key == "id" || i >= len(rec) {
				continue
			}
			v, ok, err := csvValue(key, strings.TrimSpace(rec[i]))
			if err != nil {
				return nil, apierr.Validation("invalid_csv", "row %d, %s: %s", len(out)+2, key, err.Error())
			}
			if ok {
				obj[key] = v
			}
		}
		b, err := json.Marshal(obj)
		if err != nil {
			return nil, apierr.Internal(err)
		}
		out = append(out, b)
	}
	return out, nil
}

func csvValue(key, v string) (any, bool, error) {
	switch {
	case strings.HasSuffix(key, "_id") || key == "order" || key == "code":
		if v == "" {
			return nil, false, nil
		}
		n, err := strconv.ParseUint(v, 10, 64)
		return n, err == nil, err
	case strings.HasPrefix(key, "for_") || key == "verified":
		if v == "" {
			return nil, false, nil
		}
		b, err := strconv.ParseBool(v)
		return b, err == nil, err
	case key == "lat" || key == "lng":
		if v == "" {
			return nil, false, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil, err
	case key == "tags":
		var tags []string
		for _, t := range strings.Split(v, "|") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
		return tags, true, nil
	}
	return v, true, nil
}

func (s *vocabService) RelationInfos(dbc dbctx.Context) (map[string]any, error) {
	if _, err := callerFromCtx(dbc, s.users); err != nil {
		return nil, err
	}
	out := map[string]any{}
	for _, name := range []string{VocabAtoaInfos, VocabAtobInfos, VocabBtobInfos, VocabItoaInfos, VocabItobInfos, VocabItoiInfos} {
		items, _, err := s.catalogs[name].list(dbc, VocabQuery{})
		if err != nil {
			return nil, dbErr(err)
		}
		out[strings.TrimSuffix(name, "infos")] = items
	}
	return out, nil
}

// =========================
// Locations
// =========================

// refreshLocations recomputes the derived columns of id and its subtree.
func (s *vocabService) refreshLocations(dbc dbctx.Context, id uint) error {
	subtree, err := s.reg.Locations.Subtree(dbc, id)
	if err != nil {
		return err
	}
	for _, l := range subtree {
		if err := s.refreshLocation(dbc, l.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *vocabService) refreshLocation(dbc dbctx.Context, id uint) error {
	chain, err := s.reg.Locations.Chain(dbc, id)
	if err != nil {
		return err
	}
	ids := make([]uint, 0, len(chain))
	for _, l := range chain {
		ids = append(ids, l.ID)
	}
	full := vocab.FullString(chain, true, s.cfg.Get().LocationsIncludePostalCode)
	return s.reg.Locations.UpdateDerived(dbc, id, vocab.BuildIDTree(ids), full)
}

func (s *vocabService) RebuildIDTrees(ctx context.Context, progress func(done int)) (int, error) {
	dbc := dbctx.Context{Ctx: ctx}
	done := 0
	var after uint
	for {
		batch, err := s.reg.Locations.Batch(dbc, after, 500)
		if err != nil {
			return done, err
		}
		if len(batch) == 0 {
			break
		}
		for _, l := range batch {
			if err := ctx.Err(); err != nil {
				return done, err
			}
			if err := s.refreshLocation(dbc, l.ID); err != nil {
				s.log.Warn("rebuild id_tree failed", "location_id", l.ID, "error", err)
				continue
			}
			done++
		}
		after = batch[len(batch)-1].ID
		if progress != nil {
			progress(done)
		}
	}
	s.log.Info("Location id trees rebuilt", "locations", done)
	return done, nil
}

func (s *vocabService) checkLocation(dbc dbctx.Context, l *vocab.Location) error {
	if strings.TrimSpace(l.Title) == "" {
		return apierr.Validation("missing_title", "title is required")
	}
	if l.Latitude != nil && (*l.Latitude < -90 || *l.Latitude > 90) {
		return apierr.Validation("invalid_latitude", "lat must be within -90..90")
	}
	if l.Longitude != nil && (*l.Longitude < -180 || *l.Longitude > 180) {
		return apierr.Validation("invalid_longitude", "lng must be within -180..180")
	}
	if err := checkParent(dbc, s.reg.Locations, l.ID, l.ParentID); err != nil {
		return err
	}
	checks := []struct {
		id   *uint
		miss func(dbctx.Context, []uint) ([]uint, error)
		code string
	}{
		{l.AdminLevelID, s.reg.AdminLevels.Missing, "unknown_admin_level"},
		{l.LocationTypeID, s.reg.LocationTypes.Missing, "unknown_location_type"},
		{l.CountryID, s.reg.Countries.Missing, "unknown_country"},
	}
	for _, c := range checks {
		if c.id == nil {
			continue
		}
		missing, err := c.miss(dbc, []uint{*c.id})
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return apierr.Validation(c.code, "unknown id %d", *c.id)
		}
	}
	return nil
}

func (s *vocabService) afterLocation(dbc dbctx.Context, userID uint, l *vocab.Location) error {
	if err := s.refreshLocations(dbc, l.ID); err != nil {
		return err
	}
	saved, err := s.reg.Locations.GetByID(dbc, l.ID, "AdminLevel", "LocationType", "Country")
	if err != nil {
		return err
	}
	b, err := json.Marshal(saved)
	if err != nil {
		return apierr.Internal(err)
	}
	return s.history.AppendRaw(dbc, userID, entities.KindLocation, l.ID, b)
}

// checkParent rejects a missing parent and any parent that would close a
// cycle through id.
func checkParent[T any](dbc dbctx.Context, tree vocabrepo.TreeRepo[T], id uint, parent *uint) error {
	if parent == nil {
		return nil
	}
	if *parent == id {
		return apierr.Validation("parent_cycle", "an item cannot be its own parent")
	}
	chain, err := tree.Ancestors(dbc, *parent)
	if err != nil {
		return err
	}
	if len(chain) == 0 {
		return apierr.Validation("unknown_parent", "parent %d does not exist", *parent)
	}
	if id != 0 && slices.Contains(chain, id) {
		return apierr.Validation("parent_cycle", "parent %d is a descendant of %d", *parent, id)
	}
	return nil
}

func requireTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return apierr.Validation("missing_title", "title is required")
	}
	return nil
}

func typeFilter(q VocabQuery, allowed ...string) clause.Expression {
	t := strings.ToLower(strings.TrimSpace(q.Type))
	if !slices.Contains(allowed, t) {
		return nil
	}
	return clause.Eq{Column: clause.Column{Name: "for_" + t}, Value: true}
}

func (s *vocabService) buildCatalogs() map[string]catalog {
	r := s.reg
	relInfo := func(ri *vocab.RelationInfo) error { return requireTitle(ri.Title) }
	return map[string]catalog{
		VocabLabels: &table[vocab.Label]{
			repo:       r.Labels,
			idOf:       func(v *vocab.Label) uint { return v.ID },
			setID:      func(v *vocab.Label, id uint) { v.ID = id },
			searchable: true,
			filter: func(q VocabQuery) []clause.Expression {
				var out []clause.Expression
				switch strings.ToLower(q.Filter) {
				case "verified":
					out = append(out, clause.Eq{Column: clause.Column{Name: "verified"}, Value: true})
				case "unverified":
					out = append(out, clause.Eq{Column: clause.Column{Name: "verified"}, Value: false})
				}
				if e := typeFilter(q, "actor", "bulletin", "incident", "offline"); e != nil {
					out = append(out, e)
				}
				return out
			},
			check: func(dbc dbctx.Context, v *vocab.Label) error {
				if err := requireTitle(v.Title); err != nil {
					return err
				}
				return checkParent(dbc, r.Labels, v.ID, v.ParentID)
			},
		},
		VocabSources: &table[vocab.Source]{
			repo:       r.Sources,
			idOf:       func(v *vocab.Source) uint { return v.ID },
			setID:      func(v *vocab.Source, id uint) { v.ID = id },
			searchable: true,
			check: func(dbc dbctx.Context, v *vocab.Source) error {
				if err := requireTitle(v.Title); err != nil {
					return err
				}
				return checkParent(dbc, r.Sources, v.ID, v.ParentID)
			},
		},
		VocabLocations: &table[vocab.Location]{
			repo:       r.Locations,
			idOf:       func(v *vocab.Location) uint { return v.ID },
			setID:      func(v *vocab.Location, id uint) { v.ID = id },
			searchable: true,
			preload:    []string{"AdminLevel", "LocationType", "Country"},
			location:   true,
			filter: func(q VocabQuery) []clause.Expression {
				if q.Type == "" {
					return nil
				}
				lvl, err := strconv.ParseUint(q.Type, 10, 64)
				if err != nil {
					return nil
				}
				return []clause.Expression{clause.Eq{Column: clause.Column{Name: "admin_level_id"}, Value: uint(lvl)}}
			},
			check: s.checkLocation,
			after: s.afterLocation,
			strip: func(v *vocab.Location) { v.IDTree, v.FullLocation = "", "" },
		},
		VocabLocationAdminLevels: &table[vocab.LocationAdminLevel]{
			repo:     r.AdminLevels,
			idOf:     func(v *vocab.LocationAdminLevel) uint { return v.ID },
			setID:    func(v *vocab.LocationAdminLevel, id uint) { v.ID = id },
			location: true,
			check: func(_ dbctx.Context, v *vocab.LocationAdminLevel) error {
				if v.Code <= 0 {
					return apierr.Validation("invalid_code", "code must be positive")
				}
				return requireTitle(v.Title)
			},
		},
		VocabLocationTypes: &table[vocab.LocationType]{
			repo:     r.LocationTypes,
			idOf:     func(v *vocab.LocationType) uint { return v.ID },
			setID:    func(v *vocab.LocationType, id uint) { v.ID = id },
			location: true,
			check:    func(_ dbctx.Context, v *vocab.LocationType) error { return requireTitle(v.Title) },
		},
		VocabEventTypes: &table[vocab.EventType]{
			repo:       r.EventTypes,
			idOf:       func(v *vocab.EventType) uint { return v.ID },
			setID:      func(v *vocab.EventType, id uint) { v.ID = id },
			searchable: true,
			filter: func(q VocabQuery) []clause.Expression {
				if e := typeFilter(q, "actor", "bulletin"); e != nil {
					return []clause.Expression{e}
				}
				return nil
			},
			check: func(_ dbctx.Context, v *vocab.EventType) error { return requireTitle(v.Title) },
		},
		VocabCountries: &table[vocab.Country]{
			repo:       r.Countries,
			idOf:       func(v *vocab.Country) uint { return v.ID },
			setID:      func(v *vocab.Country, id uint) { v.ID = id },
			searchable: true,
			check:      func(_ dbctx.Context, v *vocab.Country) error { return requireTitle(v.Title) },
		},
		VocabEthnographies: &table[vocab.Ethnography]{
			repo:       r.Ethnographies,
			idOf:       func(v *vocab.Ethnography) uint { return v.ID },
			setID:      func(v *vocab.Ethnography, id uint) { v.ID = id },
			searchable: true,
			check:      func(_ dbctx.Context, v *vocab.Ethnography) error { return requireTitle(v.Title) },
		},
		VocabDialects: &table[vocab.Dialect]{
			repo:       r.Dialects,
			idOf:       func(v *vocab.Dialect) uint { return v.ID },
			setID:      func(v *vocab.Dialect, id uint) { v.ID = id },
			searchable: true,
			check:      func(_ dbctx.Context, v *vocab.Dialect) error { return requireTitle(v.Title) },
		},
		VocabPotentialViolations: &table[vocab.PotentialViolation]{
			repo:       r.PotentialViolations,
			idOf:       func(v *vocab.PotentialViolation) uint { return v.ID },
			setID:      func(v *vocab.PotentialViolation, id uint) { v.ID = id },
			searchable: true,
			check:      func(_ dbctx.Context, v *vocab.PotentialViolation) error { return requireTitle(v.Title) },
		},
		VocabClaimedViolations: &table[vocab.ClaimedViolation]{
			repo:       r.ClaimedViolations,
			idOf:       func(v *vocab.ClaimedViolation) uint { return v.ID },
			setID:      func(v *vocab.ClaimedViolation, id uint) { v.ID = id },
			searchable: true,
			check:      func(_ dbctx.Context, v *vocab.ClaimedViolation) error { return requireTitle(v.Title) },
		},
		VocabAtoaInfos: &table[vocab.AtoaInfo]{
			repo:  r.AtoaInfos,
			idOf:  func(v *vocab.AtoaInfo) uint { return v.ID },
			setID: func(v *vocab.AtoaInfo, id uint) { v.ID = id },
			check: func(_ dbctx.Context, v *vocab.AtoaInfo) error { return relInfo(&v.RelationInfo) },
		},
		VocabAtobInfos: &table[vocab.AtobInfo]{
			repo:  r.AtobInfos,
			idOf:  func(v *vocab.AtobInfo) uint { return v.ID },
			setID: func(v *vocab.AtobInfo, id uint) { v.ID = id },
			check: func(_ dbctx.Context, v *vocab.AtobInfo) error { return relInfo(&v.RelationInfo) },
		},
		VocabBtobInfos: &table[vocab.BtobInfo]{
			repo:  r.BtobInfos,
			idOf:  func(v *vocab.BtobInfo) uint { return v.ID },
			setID: func(v *vocab.BtobInfo, id uint) { v.ID = id },
			check: func(_ dbctx.Context, v *vocab.BtobInfo) error { return relInfo(&v.RelationInfo) },
		},
		VocabItoaInfos: &table[vocab.ItoaInfo]{
			repo:  r.ItoaInfos,
			idOf:  func(v *vocab.ItoaInfo) uint { return v.ID },
			setID: func(v *vocab.ItoaInfo, id uint) { v.ID = id },
			check: func(_ dbctx.Context, v *vocab.ItoaInfo) error { return relInfo(&v.RelationInfo) },
		},
		VocabItobInfos: &table[vocab.ItobInfo]{
			repo:  r.ItobInfos,
			idOf:  func(v *vocab.ItobInfo) uint { return v.ID },
			setID: func(v *vocab.ItobInfo, id uint) { v.ID = id },
			check: func(_ dbctx.Context, v *vocab.ItobInfo) error { return relInfo(&v.RelationInfo) },
		},
		VocabItoiInfos: &table[vocab.ItoiInfo]{
			repo:  r.ItoiInfos,
			idOf:  func(v *vocab.ItoiInfo) uint { return v.ID },
			setID: func(v *vocab.ItoiInfo, id uint) { v.ID = id },
			check: func(_ dbctx.Context, v *vocab.ItoiInfo) error { return relInfo(&v.RelationInfo) },
		},
		VocabRoles: &table[types.Role]{
			repo:  roleCatalog{s.roles},
			idOf:  func(v *types.Role) uint { return v.ID },
			setID: func(v *types.Role, id uint) { v.ID = id },
			check: func(dbc dbctx.Context, v *types.Role) error {
				v.Name = strings.TrimSpace(v.Name)
				if v.Name == "" {
					return apierr.Validation("missing_name", "name is required")
				}
				return nil
			},
			guard: func(dbc dbctx.Context, v *types.Role) error {
				if v.IsSystem() {
					return apierr.Validation("system_role", "system role %q cannot be changed", v.Name)
				}
				used, err := s.roles.InUse(dbc, v.ID)
				if err != nil {
					return err
				}
				if used {
					return apierr.Conflict("role_in_use", errors.New("role is assigned to users or items"))
				}
				return nil
			},
		},
	}
}

// table adapts one vocabulary repo to the catalog contract.
type table[T any] struct {
	repo       vocabrepo.Repo[T]
	idOf       func(*T) uint
	setID      func(*T, uint)
	searchable bool
	location   bool
	preload    []string
	filter     func(VocabQuery) []clause.Expression
	check      func(dbctx.Context, *T) error
	after      func(dbctx.Context, uint, *T) error
	// strip clears derived columns a client must not set.
	strip func(*T)
	// guard runs before a delete.
	guard func(dbctx.Context, *T) error
}

func (t *table[T]) isLocation() bool { return t.location }

func (t *table[T]) list(dbc dbctx.Context, q VocabQuery) (any, int64, error) {
	opts := vocabrepo.ListOptions{Preload: t.preload, Page: q.Page, PerPage: q.PerPage}
	if t.searchable {
		opts.Title = q.Q
	}
	if t.filter != nil {
		if exprs := t.filter(q); len(exprs) > 0 {
			opts.Where = clause.And(exprs...)
		}
	}
	rows, total, err := t.repo.List(dbc, opts)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (t *table[T]) get(dbc dbctx.Context, id uint) (any, error) {
	row, err := t.repo.GetByID(dbc, id, t.preload...)
	if err != nil {
		return nil, dbErr(err)
	}
	if row == nil {
		return nil, apierr.NotFound("not_found", "item %d not found", id)
	}
	return row, nil
}

// save decodes raw over the stored row (or a new one when id is 0), so
// fields absent from the payload keep their values.
func (t *table[T]) save(dbc dbctx.Context, userID, id uint, raw []byte) (any, error) {
	row := new(T)
	if id != 0 {
		existing, err := t.repo.GetByID(dbc, id)
		if err != nil {
			return nil, dbErr(err)
		}
		if existing == nil {
			return nil, apierr.NotFound("not_found", "item %d not found", id)
		}
		row = existing
	}
	if err := decodePayload(raw, row); err != nil {
		return nil, err
	}
	t.setID(row, id)
	if t.strip != nil {
		t.strip(row)
	}
	if t.check != nil {
		if err := t.check(dbc, row); err != nil {
			return nil, err
		}
	}
	if id == 0 {
		if err := t.repo.Create(dbc, []*T{row}); err != nil {
			return nil, dbErr(err)
		}
	} else if err := t.repo.Save(dbc, row); err != nil {
		return nil, dbErr(err)
	}
	if t.after != nil {
		if err := t.after(dbc, userID, row); err != nil {
			return nil, err
		}
	}
	return t.get(dbc, t.idOf(row))
}

func (t *table[T]) remove(dbc dbctx.Context, id uint) error {
	row, err := t.repo.GetByID(dbc, id)
	if err != nil {
		return dbErr(err)
	}
	if row == nil {
		return apierr.NotFound("not_found", "item %d not found", id)
	}
	if t.guard != nil {
		if err := t.guard(dbc, row); err != nil {
			return err
		}
	}
	return dbErr(t.repo.Delete(dbc, id))
}

// roleCatalog exposes RoleRepo through the vocabulary repo contract.
type roleCatalog struct {
	roles repos.RoleRepo
}

func (r roleCatalog) List(dbc dbctx.Context, opts vocabrepo.ListOptions) ([]*types.Role, int64, error) {
	rows, err := r.roles.List(dbc)
	if err != nil {
		return nil, 0, err
	}
	return rows, int64(len(rows)), nil
}

func (r roleCatalog) GetByID(dbc dbctx.Context, id uint, _ ...string) (*types.Role, error) {
	rows, err := r.roles.GetByIDs(dbc, []uint{id})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r roleCatalog) GetByIDs(dbc dbctx.Context, ids []uint) ([]*types.Role, error) {
	return r.roles.GetByIDs(dbc, ids)
}

func (r roleCatalog) Missing(dbc dbctx.Context, ids []uint) ([]uint, error) {
	rows, err := r.roles.GetByIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	found := make(map[uint]bool, len(rows))
	for _, row := range rows {
		found[row.ID] = true
	}
	var out []uint
	for _, id := range ids {
		if !found[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r roleCatalog) Create(dbc dbctx.Context, rows []*types.Role) error {
	_, err := r.roles.Create(dbc, rows)
	return err
}

func (r roleCatalog) Save(dbc dbctx.Context, row *types.Role) error { return r.roles.Save(dbc, row) }

func (r roleCatalog) Delete(dbc dbctx.Context, id uint) error { return r.roles.Delete(dbc, id) }
