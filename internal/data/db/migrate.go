package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/casefile-backend/internal/domain"
	"github.com/yungbote/casefile-backend/internal/domain/relations"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.Models()...)
}

// Migrate runs AutoMigrate and the raw DDL gorm tags cannot express.
func Migrate(db *gorm.DB, log *logger.Logger) error {
	if err := EnsureExtensions(db, log); err != nil {
		return err
	}
	if err := AutoMigrateAll(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, step := range []func(*gorm.DB) error{
		EnsureEdgeConstraints,
		EnsureSearchTriggers,
		EnsureSearchIndexes,
		EnsureActivityIndexes,
	} {
		if err := step(db); err != nil {
			return err
		}
	}
	if err := EnsureGeoIndexes(db); err != nil {
		log.Warn("PostGIS indexes unavailable; geo filters will scan", "error", err)
	}
	return nil
}

// EnsureExtensions enables pg_trgm and, when installed, PostGIS.
func EnsureExtensions(db *gorm.DB, log *logger.Logger) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pg_trgm;`).Error; err != nil {
		return fmt.Errorf("enable pg_trgm: %w", err)
	}
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS postgis;`).Error; err != nil && log != nil {
		log.Warn("postgis extension not available", "error", err)
	}
	return nil
}

// EnsureEdgeConstraints adds the canonical-order checks to symmetric edge
// tables that predate them.
func EnsureEdgeConstraints(db *gorm.DB) error {
	for _, k := range relations.AllKinds {
		if !k.Symmetric {
			continue
		}
		name := k.Table + "_canonical"
		stmt := fmt.Sprintf(`
			DO $$
			BEGIN
				IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN
					ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s < %s);
				END IF;
			END $$;`, name, k.Table, name, k.LeftCol, k.RightCol)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
	}
	return nil
}

var searchColumns = map[string]string{
	"bulletin": `NEW.id::text, NEW.title, NEW.title_ar, NEW.sjac_title, NEW.sjac_title_ar,
		NEW.description, NEW.source_link, array_to_string(NEW.tags, ' ')`,
	"actor": `NEW.id::text, NEW.name, NEW.name_ar, NEW.first_name, NEW.first_name_ar,
		NEW.middle_name, NEW.middle_name_ar, NEW.last_name, NEW.last_name_ar,
		NEW.nickname, NEW.nickname_ar, NEW.father_name, NEW.father_name_ar,
		NEW.mother_name, NEW.mother_name_ar, NEW.occupation, NEW.position,
		NEW.comments, array_to_string(NEW.tags, ' ')`,
	"incident": `NEW.id::text, NEW.title, NEW.title_ar, NEW.description`,
}

// EnsureSearchTriggers keeps the derived search column current.
func EnsureSearchTriggers(db *gorm.DB) error {
	for table, cols := range searchColumns {
		fn := table + "_search_refresh"
		stmts := []string{
			fmt.Sprintf(`
				CREATE OR REPLACE FUNCTION %s() RETURNS trigger AS $$
				BEGIN
					NEW.search := concat_ws(' ', %s);
					RETURN NEW;
				END
				$$ LANGUAGE plpgsql;`, fn, cols),
			fmt.Sprintf(`DROP TRIGGER IF EXISTS %s ON %s;`, fn, table),
			fmt.Sprintf(`CREATE TRIGGER %s BEFORE INSERT OR UPDATE ON %s FOR EACH ROW EXECUTE FUNCTION %s();`, fn, table, fn),
		}
		for _, s := range stmts {
			if err := db.Exec(s).Error; err != nil {
				return fmt.Errorf("search trigger %s: %w", table, err)
			}
		}
	}
	return nil
}

func EnsureSearchIndexes(db *gorm.DB) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_bulletin_search_trgm ON bulletin USING GIN (search gin_trgm_ops);`,
		`CREATE INDEX IF NOT EXISTS idx_actor_search_trgm ON actor USING GIN (search gin_trgm_ops);`,
		`CREATE INDEX IF NOT EXISTS idx_incident_search_trgm ON incident USING GIN (search gin_trgm_ops);`,
		`CREATE INDEX IF NOT EXISTS idx_bulletin_tags ON bulletin USING GIN (tags);`,
		`CREATE INDEX IF NOT EXISTS idx_actor_tags ON actor USING GIN (tags);`,
		`CREATE INDEX IF NOT EXISTS idx_location_id_tree_trgm ON location USING GIN (id_tree gin_trgm_ops);`,
		`CREATE INDEX IF NOT EXISTS idx_btob_related_as ON btob USING GIN (related_as);`,
		`CREATE INDEX IF NOT EXISTS idx_atob_related_as ON atob USING GIN (related_as);`,
	}
	for _, s := range stmts {
		if err := db.Exec(s).Error; err != nil {
			return fmt.Errorf("search index: %w", err)
		}
	}
	return nil
}

func EnsureActivityIndexes(db *gorm.DB) error {
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_activity_user_created ON activity (user_id, created_at DESC);`).Error; err != nil {
		return fmt.Errorf("create idx_activity_user_created: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_job_run_dedup
		ON job_run (owner_user_id, job_type, dedup_key)
		WHERE dedup_key IS NOT NULL AND dedup_key <> '';
	`).Error; err != nil {
		return fmt.Errorf("create idx_job_run_dedup: %w", err)
	}
	return nil
}

// EnsureGeoIndexes needs PostGIS.
func EnsureGeoIndexes(db *gorm.DB) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_location_geog ON location USING GIST
			((ST_SetSRID(ST_MakePoint(longitude, latitude), 4326)::geography))
			WHERE latitude IS NOT NULL AND longitude IS NOT NULL;`,
		`CREATE INDEX IF NOT EXISTS idx_geo_location_geog ON geo_location USING GIST
			((ST_SetSRID(ST_MakePoint(longitude, latitude), 4326)::geography));`,
	}
	for _, s := range stmts {
		if err := db.Exec(s).Error; err != nil {
			return fmt.Errorf("geo index: %w", err)
		}
	}
	return nil
}
