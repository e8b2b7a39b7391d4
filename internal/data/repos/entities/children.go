package entities

import (
	"slices"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/domain/vocab"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

// ChildRepo writes the rows an entity owns outright: events, geo markers,
// media and actor profiles.
type ChildRepo interface {
	// ReplaceEvents deletes the entity's current events and links evs.
	ReplaceEvents(dbc dbctx.Context, kind entities.Kind, id uint, evs []entities.Event) error
	ReplaceGeoLocations(dbc dbctx.Context, bulletinID uint, geos []entities.GeoLocation) error

	MediaByIDs(dbc dbctx.Context, ids []uint) ([]*entities.Media, error)
	CreateMedia(dbc dbctx.Context, m *entities.Media) error
	// SyncMedia attaches keep to the bulletin and soft-deletes every other
	// non-main media it held.
	SyncMedia(dbc dbctx.Context, bulletinID uint, keep []uint) error
	EtagExists(dbc dbctx.Context, etag string) (bool, error)

	// SaveProfile upserts p's scalars and replaces its source/label links.
	SaveProfile(dbc dbctx.Context, p *entities.ActorProfile) error
	ProfileIDs(dbc dbctx.Context, actorID uint) ([]uint, error)
	DeleteProfiles(dbc dbctx.Context, actorID uint, keep []uint) error
}

type childRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChildRepo(db *gorm.DB, baseLog *logger.Logger) ChildRepo {
	return &childRepo{db: db, log: baseLog.With("repo", "ChildRepo")}
}

func (r *childRepo) ReplaceEvents(dbc dbctx.Context, kind entities.Kind, id uint, evs []entities.Event) error {
	db := dbc.DB(r.db)
	table, fk := kind.JoinTable("events")
	var old []uint
	if err := db.Table(table).Where(fk+" = ?", id).Pluck("event_id", &old).Error; err != nil {
		return err
	}

	// items carrying the id of an event already linked here are updated in
	// place; everything else becomes a new row
	ids := make([]uint, 0, len(evs))
	for i := range evs {
		ev := &evs[i]
		if ev.ID != 0 && slices.Contains(old, ev.ID) {
			if err := db.Omit(clause.Associations, "created_at").Save(ev).Error; err != nil {
				return err
			}
		} else {
			ev.ID = 0
			if err := db.Omit(clause.Associations).Create(ev).Error; err != nil {
				return err
			}
		}
		ids = append(ids, ev.ID)
	}

	var drop []uint
	for _, o := range old {
		if !slices.Contains(ids, o) {
			drop = append(drop, o)
		}
	}
	if len(drop) > 0 {
		if err := db.Table(table).Where(fk+" = ? AND event_id IN ?", id, drop).Delete(nil).Error; err != nil {
			return err
		}
		if err := db.Where("id IN ?", drop).Delete(&entities.Event{}).Error; err != nil {
			return err
		}
	}
	var add []uint
	for _, n := range ids {
		if !slices.Contains(old, n) {
			add = append(add, n)
		}
	}
	if len(add) == 0 {
		return nil
	}
	return insertLinks(db, table, fk, "event_id", id, add)
}

func (r *childRepo) ReplaceGeoLocations(dbc dbctx.Context, bulletinID uint, geos []entities.GeoLocation) error {
	db := dbc.DB(r.db)
	if err := db.Where("bulletin_id = ?", bulletinID).Delete(&entities.GeoLocation{}).Error; err != nil {
		return err
	}
	if len(geos) == 0 {
		return nil
	}
	for i := range geos {
		geos[i].ID = 0
		geos[i].BulletinID = bulletinID
	}
	return db.Create(&geos).Error
}

func (r *childRepo) MediaByIDs(dbc dbctx.Context, ids []uint) ([]*entities.Media, error) {
	var out []*entities.Media
	if len(ids) == 0 {
		return out, nil
	}
	err := dbc.DB(r.db).Where("id IN ?", ids).Order("id").Find(&out).Error
	return out, err
}

func (r *childRepo) CreateMedia(dbc dbctx.Context, m *entities.Media) error {
	return dbc.DB(r.db).Create(m).Error
}

func (r *childRepo) SyncMedia(dbc dbctx.Context, bulletinID uint, keep []uint) error {
	db := dbc.DB(r.db)
	if len(keep) > 0 {
		if err := db.Model(&entities.Media{}).Where("id IN ?", keep).
			Updates(map[string]any{"bulletin_id": bulletinID, "deleted": false}).Error; err != nil {
			return err
		}
	}
	q := db.Model(&entities.Media{}).Where("bulletin_id = ? AND main = ? AND deleted = ?", bulletinID, false, false)
	if len(keep) > 0 {
		q = q.Where("id NOT IN ?", keep)
	}
	return q.Updates(map[string]any{
		"deleted":    true,
		"comments":   entities.MediaRemovedComment,
		"updated_at": time.Now().UTC(),
	}).Error
}

func (r *childRepo) EtagExists(dbc dbctx.Context, etag string) (bool, error) {
	if etag == "" {
		return false, nil
	}
	var n int64
	err := dbc.DB(r.db).Model(&entities.Media{}).Where("etag = ? AND deleted = ?", etag, false).Count(&n).Error
	return n > 0, err
}

func (r *childRepo) SaveProfile(dbc dbctx.Context, p *entities.ActorProfile) error {
	db := dbc.DB(r.db)
	q := db.Omit(clause.Associations)
	if p.ID != 0 {
		q = db.Omit(clause.Associations, "created_at")
	}
	if err := q.Save(p).Error; err != nil {
		return err
	}
	links := map[string][]uint{
		"sources":   sourceIDs(p),
		"labels":    labelIDs(p.Labels),
		"verlabels": labelIDs(p.VerLabels),
	}
	for _, assoc := range entities.ProfileAssocs {
		err := replaceLinks(db, "actor_profile_"+assoc, "actor_profile_id", entities.TargetColumn(assoc), p.ID, links[assoc])
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *childRepo) ProfileIDs(dbc dbctx.Context, actorID uint) ([]uint, error) {
	var out []uint
	err := dbc.DB(r.db).Model(&entities.ActorProfile{}).Where("actor_id = ?", actorID).Order("id").Pluck("id", &out).Error
	return out, err
}

func (r *childRepo) DeleteProfiles(dbc dbctx.Context, actorID uint, keep []uint) error {
	db := dbc.DB(r.db)
	q := db.Model(&entities.ActorProfile{}).Where("actor_id = ?", actorID)
	if len(keep) > 0 {
		q = q.Where("id NOT IN ?", keep)
	}
	var drop []uint
	if err := q.Pluck("id", &drop).Error; err != nil {
		return err
	}
	if len(drop) == 0 {
		return nil
	}
	for _, assoc := range entities.ProfileAssocs {
		if err := db.Table("actor_profile_"+assoc).Where("actor_profile_id IN ?", drop).Delete(nil).Error; err != nil {
			return err
		}
	}
	return db.Where("id IN ?", drop).Delete(&entities.ActorProfile{}).Error
}

func sourceIDs(p *entities.ActorProfile) []uint {
	out := make([]uint, 0, len(p.Sources))
	for _, s := range p.Sources {
		out = append(out, s.ID)
	}
	return out
}

func labelIDs(ls []vocab.Label) []uint {
	out := make([]uint, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.ID)
	}
	return out
}
