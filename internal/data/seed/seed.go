// Package seed loads the built-in catalogs every deployment starts with.
package seed

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/yungbote/casefile-backend/internal/data/repos"
	vocabrepo "github.com/yungbote/casefile-backend/internal/data/repos/vocab"
	types "github.com/yungbote/casefile-backend/internal/domain"
	"github.com/yungbote/casefile-backend/internal/domain/vocab"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type roleRow struct {
	Name        string `yaml:"name"`
	Color       string `yaml:"color"`
	Description string `yaml:"description"`
}

type infoRow struct {
	Title          string `yaml:"title"`
	TitleTr        string `yaml:"title_tr"`
	ReverseTitle   string `yaml:"reverse_title"`
	ReverseTitleTr string `yaml:"reverse_title_tr"`
}

func (r infoRow) info() vocab.RelationInfo {
	return vocab.RelationInfo{Title: r.Title, TitleTr: r.TitleTr, ReverseTitle: r.ReverseTitle, ReverseTitleTr: r.ReverseTitleTr}
}

// Catalog is the decoded seed document.
type Catalog struct {
	Roles       []roleRow `yaml:"roles"`
	AdminLevels []struct {
		Code  int    `yaml:"code"`
		Title string `yaml:"title"`
	} `yaml:"location_admin_levels"`
	LocationTypes []struct {
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
	} `yaml:"location_types"`
	RelationInfos map[string][]infoRow `yaml:"relation_infos"`
}

// Defaults decodes the embedded catalog.
func Defaults() (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(defaultsYAML, &c); err != nil {
		return nil, fmt.Errorf("decode seed catalog: %w", err)
	}
	return &c, nil
}

// Report counts inserted rows per table.
type Report map[string]int

// Apply inserts missing roles by name and fills every other catalog only
// when its table is empty, all in one transaction. Running it twice is a no-op.
func Apply(db *gorm.DB, dbc dbctx.Context, log *logger.Logger, c *Catalog) (Report, error) {
	rep := Report{}
	err := db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbc.WithTx(tx)
		reg := repos.NewVocabRegistry(db, log)
		roles := repos.NewRoleRepo(db, log)

		for _, r := range c.Roles {
			existing, err := roles.GetByName(inner, r.Name)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}
			if _, err := roles.Create(inner, []*types.Role{{Name: r.Name, Color: r.Color, Description: r.Description}}); err != nil {
				return err
			}
			rep["role"]++
		}

		levels := make([]*vocab.LocationAdminLevel, 0, len(c.AdminLevels))
		for _, l := range c.AdminLevels {
			levels = append(levels, &vocab.LocationAdminLevel{Code: l.Code, Title: l.Title})
		}
		if err := fillEmpty(inner, reg.AdminLevels, levels, rep); err != nil {
			return err
		}
		locTypes := make([]*vocab.LocationType, 0, len(c.LocationTypes))
		for _, t := range c.LocationTypes {
			locTypes = append(locTypes, &vocab.LocationType{Title: t.Title, Description: t.Description})
		}
		if err := fillEmpty(inner, reg.LocationTypes, locTypes, rep); err != nil {
			return err
		}

		infos := c.RelationInfos
		steps := []error{
			fillEmpty(inner, reg.AtoaInfos, mapInfos(infos["atoa"], func(i vocab.RelationInfo) *vocab.AtoaInfo { return &vocab.AtoaInfo{RelationInfo: i} }), rep),
			fillEmpty(inner, reg.AtobInfos, mapInfos(infos["atob"], func(i vocab.RelationInfo) *vocab.AtobInfo { return &vocab.AtobInfo{RelationInfo: i} }), rep),
			fillEmpty(inner, reg.BtobInfos, mapInfos(infos["btob"], func(i vocab.RelationInfo) *vocab.BtobInfo { return &vocab.BtobInfo{RelationInfo: i} }), rep),
			fillEmpty(inner, reg.ItoaInfos, mapInfos(infos["itoa"], func(i vocab.RelationInfo) *vocab.ItoaInfo { return &vocab.ItoaInfo{RelationInfo: i} }), rep),
			fillEmpty(inner, reg.ItobInfos, mapInfos(infos["itob"], func(i vocab.RelationInfo) *vocab.ItobInfo { return &vocab.ItobInfo{RelationInfo: i} }), rep),
			fillEmpty(inner, reg.ItoiInfos, mapInfos(infos["itoi"], func(i vocab.RelationInfo) *vocab.ItoiInfo { return &vocab.ItoiInfo{RelationInfo: i} }), rep),
		}
		for _, err := range steps {
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info("seed applied", "inserted", map[string]int(rep))
	return rep, nil
}

func mapInfos[T any](rows []infoRow, wrap func(vocab.RelationInfo) *T) []*T {
	out := make([]*T, 0, len(rows))
	for _, r := range rows {
		out = append(out, wrap(r.info()))
	}
	return out
}

func fillEmpty[T any](dbc dbctx.Context, repo vocabrepo.Repo[T], rows []*T, rep Report) error {
	if len(rows) == 0 {
		return nil
	}
	_, total, err := repo.List(dbc, vocabrepo.ListOptions{Page: 1, PerPage: 1})
	if err != nil {
		return err
	}
	if total > 0 {
		return nil
	}
	if err := repo.Create(dbc, rows); err != nil {
		return err
	}
	rep[tableOf(rows[0])] += len(rows)
	return nil
}

func tableOf(row any) string {
	if t, ok := row.(interface{ TableName() string }); ok {
		return t.TableName()
	}
	return fmt.Sprintf("%T", row)
}
