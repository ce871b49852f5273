package postgres

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"catalog-search-api/internal/domain/entity"
	"catalog-search-api/internal/domain/repository"
)

// joinTable 多对多关联表
type joinTable struct {
	table string
	fk    string
	ref   string
	vocab string
}

// catalogSchema 单个具体类型在关系库中的表结构
type catalogSchema struct {
	table   string
	model   any
	columns map[entity.Field]string
	joins   map[entity.Field]joinTable
	load    func(db *gorm.DB) ([]*entity.CatalogRow, error)
}

type rowModel[T any] interface {
	*T
	ToRow() *entity.CatalogRow
}

// loadRows 查询并转换为统一视图
func loadRows[T any, P rowModel[T]](preload bool) func(db *gorm.DB) ([]*entity.CatalogRow, error) {
	return func(db *gorm.DB) ([]*entity.CatalogRow, error) {
		if preload {
			db = db.Preload("Genres", func(tx *gorm.DB) *gorm.DB { return tx.Order("name") }).
				Preload("Tags", func(tx *gorm.DB) *gorm.DB { return tx.Order("name") })
		}
		var models []T
		if err := db.Find(&models).Error; err != nil {
			return nil, err
		}
		rows := make([]*entity.CatalogRow, 0, len(models))
		for i := range models {
			rows = append(rows, P(&models[i]).ToRow())
		}
		return rows, nil
	}
}

func mediaColumns(table, yearColumn string, extra map[entity.Field]string) map[entity.Field]string {
	cols := map[entity.Field]string{
		entity.FieldID:           "id",
		entity.FieldTitle:        "title",
		entity.FieldTitleEnglish: "title_english",
		entity.FieldStatus:       "status",
		entity.FieldRating:       "rating",
		entity.FieldPopularity:   "popularity",
		entity.FieldAdult:        "adult",
		entity.FieldYear:         yearColumn,
		entity.FieldCreated:      "created_at",
		entity.FieldUpdated:      "updated_at",
	}
	for f, c := range extra {
		cols[f] = c
	}
	return qualify(table, cols)
}

func qualify(table string, cols map[entity.Field]string) map[entity.Field]string {
	out := make(map[entity.Field]string, len(cols))
	for f, c := range cols {
		out[f] = table + "." + c
	}
	return out
}

func vocabularyJoins(table, fk string) map[entity.Field]joinTable {
	return map[entity.Field]joinTable{
		entity.FieldGenres: {table: table + "_genres", fk: fk, ref: "genre_id", vocab: "genres"},
		entity.FieldTags:   {table: table + "_tags", fk: fk, ref: "tag_id", vocab: "tags"},
	}
}

var schemas = map[entity.ContentType]*catalogSchema{
	entity.ContentTypeAnime: {
		table: "anime",
		model: &entity.Anime{},
		columns: mediaColumns("anime", "start_date", map[entity.Field]string{
			entity.FieldTitleRomaji:   "title_romaji",
			entity.FieldTitleJapanese: "title_japanese",
			entity.FieldSynopsis:      "synopsis",
			entity.FieldEpisodes:      "episodes",
			entity.FieldDuration:      "duration",
		}),
		joins: vocabularyJoins("anime", "anime_id"),
		load:  loadRows[entity.Anime](true),
	},
	entity.ContentTypeManga: {
		table: "manga",
		model: &entity.Manga{},
		columns: mediaColumns("manga", "start_date", map[entity.Field]string{
			entity.FieldTitleRomaji:   "title_romaji",
			entity.FieldTitleJapanese: "title_japanese",
			entity.FieldSynopsis:      "synopsis",
		}),
		joins: vocabularyJoins("manga", "manga_id"),
		load:  loadRows[entity.Manga](true),
	},
	entity.ContentTypeNovels: {
		table: "novels",
		model: &entity.Novel{},
		columns: mediaColumns("novels", "published_at", map[entity.Field]string{
			entity.FieldDescription: "description",
		}),
		joins: vocabularyJoins("novel", "novel_id"),
		load:  loadRows[entity.Novel](true),
	},
	entity.ContentTypeCharacters: {
		table: "characters",
		model: &entity.Character{},
		columns: qualify("characters", map[entity.Field]string{
			entity.FieldID:            "id",
			entity.FieldTitle:         "name",
			entity.FieldTitleJapanese: "name_native",
			entity.FieldDescription:   "description",
			entity.FieldPopularity:    "favourites",
			entity.FieldCreated:       "created_at",
			entity.FieldUpdated:       "updated_at",
		}),
		load: loadRows[entity.Character](false),
	},
	entity.ContentTypeUsers: {
		table: "users",
		model: &entity.User{},
		columns: qualify("users", map[entity.Field]string{
			entity.FieldID:           "id",
			entity.FieldTitle:        "username",
			entity.FieldTitleEnglish: "display_name",
			entity.FieldDescription:  "bio",
			entity.FieldPopularity:   "followers",
			entity.FieldCreated:      "created_at",
			entity.FieldUpdated:      "updated_at",
		}),
		load: loadRows[entity.User](false),
	},
}

func schemaFor(t entity.ContentType) (*catalogSchema, error) {
	s, ok := schemas[t]
	if !ok {
		return nil, fmt.Errorf("no table for content type %q", t)
	}
	return s, nil
}

// clause 一段 WHERE 条件及其参数
type clause struct {
	sql  string
	args []any
}

// where 把谓词编译为 WHERE 条件，谓词之间按 AND 组合
func (s *catalogSchema) where(preds []repository.Predicate) ([]clause, error) {
	out := make([]clause, 0, len(preds))
	for _, p := range preds {
		c, err := s.predicate(p)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *catalogSchema) predicate(p repository.Predicate) (clause, error) {
	if len(p.Fields) == 0 {
		return clause{}, fmt.Errorf("predicate %s on %s has no fields", p.Op, s.table)
	}

	switch p.Op {
	case repository.OpContains, repository.OpPrefix:
		text, ok := p.Value.(string)
		if !ok {
			return clause{}, fmt.Errorf("predicate %s expects a string, got %T", p.Op, p.Value)
		}
		pattern := escapeLike(text) + "%"
		if p.Op == repository.OpContains {
			pattern = "%" + pattern
		}
		parts := make([]string, 0, len(p.Fields))
		args := make([]any, 0, len(p.Fields))
		for _, f := range p.Fields {
			col, err := s.column(f)
			if err != nil {
				return clause{}, err
			}
			parts = append(parts, col+" ILIKE ?")
			args = append(args, pattern)
		}
		if len(parts) == 1 {
			return clause{sql: parts[0], args: args}, nil
		}
		return clause{sql: "(" + strings.Join(parts, " OR ") + ")", args: args}, nil

	case repository.OpAnyOf:
		j, ok := s.joins[p.Fields[0]]
		if !ok {
			return clause{}, fmt.Errorf("%s has no %s association", s.table, p.Fields[0])
		}
		sql := fmt.Sprintf(
			"EXISTS (SELECT 1 FROM %s j JOIN %s v ON v.id = j.%s WHERE j.%s = %s.id AND v.name = ANY(?))",
			j.table, j.vocab, j.ref, j.fk, s.table,
		)
		return clause{sql: sql, args: []any{pq.Array(p.Values)}}, nil

	case repository.OpEq, repository.OpGte, repository.OpLte, repository.OpLt:
		col, err := s.column(p.Fields[0])
		if err != nil {
			return clause{}, err
		}
		return clause{sql: col + " " + comparators[p.Op] + " ?", args: []any{p.Value}}, nil
	}
	return clause{}, fmt.Errorf("unsupported predicate %q", p.Op)
}

var comparators = map[repository.PredicateOp]string{
	repository.OpEq:  "=",
	repository.OpGte: ">=",
	repository.OpLte: "<=",
	repository.OpLt:  "<",
}

func (s *catalogSchema) column(f entity.Field) (string, error) {
	col, ok := s.columns[f]
	if !ok {
		return "", fmt.Errorf("%s has no column for field %q", s.table, f)
	}
	return col, nil
}

// orderBy 生成 ORDER BY，缺失值总是排在最后；类型不具备的排序字段被忽略
func (s *catalogSchema) orderBy(keys []repository.SortKey) string {
	parts := make([]string, 0, len(keys)+1)
	hasID := false
	for _, k := range keys {
		col, ok := s.columns[k.Field]
		if !ok {
			continue
		}
		dir := "DESC"
		if k.Order == repository.SortOrderAsc {
			dir = "ASC"
		}
		parts = append(parts, col+" "+dir+" NULLS LAST")
		hasID = hasID || k.Field == entity.FieldID
	}
	if !hasID {
		parts = append(parts, s.columns[entity.FieldID]+" ASC")
	}
	return strings.Join(parts, ", ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
