package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"

	"catalog-search-api/internal/domain/entity"
	"catalog-search-api/internal/domain/repository"
)

func TestSchemas_CoverConcreteTypes(t *testing.T) {
	for _, ct := range entity.ConcreteTypes() {
		s, err := schemaFor(ct)
		if err != nil {
			t.Fatalf("schemaFor(%s) error = %v", ct, err)
		}
		for _, f := range ct.TextFields() {
			if _, err := s.column(f); err != nil {
				t.Errorf("%s: text field %s unmapped: %v", ct, f, err)
			}
		}
		for _, f := range ct.PrefixFields() {
			if _, err := s.column(f); err != nil {
				t.Errorf("%s: prefix field %s unmapped: %v", ct, f, err)
			}
		}
		if ct.Supports(entity.FieldGenres) {
			if _, ok := s.joins[entity.FieldGenres]; !ok {
				t.Errorf("%s: genres association missing", ct)
			}
		}
	}
	if _, err := schemaFor(entity.ContentTypeAll); err == nil {
		t.Error("schemaFor(all) must fail")
	}
}

func TestCatalogSchema_Predicate(t *testing.T) {
	anime := schemas[entity.ContentTypeAnime]
	novels := schemas[entity.ContentTypeNovels]
	jan := time.Date(2002, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		schema   *catalogSchema
		pred     repository.Predicate
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "contains over several fields",
			schema:   anime,
			pred:     repository.Predicate{Op: repository.OpContains, Fields: []entity.Field{entity.FieldTitle, entity.FieldSynopsis}, Value: "50%_off"},
			wantSQL:  "(anime.title ILIKE ? OR anime.synopsis ILIKE ?)",
			wantArgs: []any{`%50\%\_off%`, `%50\%\_off%`},
		},
		{
			name:     "prefix",
			schema:   anime,
			pred:     repository.Predicate{Op: repository.OpPrefix, Fields: []entity.Field{entity.FieldTitle}, Value: "nar"},
			wantSQL:  "anime.title ILIKE ?",
			wantArgs: []any{"nar%"},
		},
		{
			name:     "year uses the release date column",
			schema:   novels,
			pred:     repository.Predicate{Op: repository.OpGte, Fields: []entity.Field{entity.FieldYear}, Value: jan},
			wantSQL:  "novels.published_at >= ?",
			wantArgs: []any{jan},
		},
		{
			name:     "status equality",
			schema:   anime,
			pred:     repository.Predicate{Op: repository.OpEq, Fields: []entity.Field{entity.FieldStatus}, Value: "finished"},
			wantSQL:  "anime.status = ?",
			wantArgs: []any{"finished"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := tt.schema.predicate(tt.pred)
			if err != nil {
				t.Fatalf("predicate() error = %v", err)
			}
			if c.sql != tt.wantSQL {
				t.Errorf("sql = %q, want %q", c.sql, tt.wantSQL)
			}
			if len(c.args) != len(tt.wantArgs) {
				t.Fatalf("args = %v, want %v", c.args, tt.wantArgs)
			}
			for i := range c.args {
				if c.args[i] != tt.wantArgs[i] {
					t.Errorf("args[%d] = %v, want %v", i, c.args[i], tt.wantArgs[i])
				}
			}
		})
	}
}

func TestCatalogSchema_AnyOf(t *testing.T) {
	c, err := schemas[entity.ContentTypeNovels].predicate(repository.Predicate{
		Op:     repository.OpAnyOf,
		Fields: []entity.Field{entity.FieldGenres},
		Values: []string{"Fantasy", "Isekai"},
	})
	if err != nil {
		t.Fatalf("predicate() error = %v", err)
	}
	want := "EXISTS (SELECT 1 FROM novel_genres j JOIN genres v ON v.id = j.genre_id WHERE j.novel_id = novels.id AND v.name = ANY(?))"
	if c.sql != want {
		t.Errorf("sql = %q", c.sql)
	}
	arr, ok := c.args[0].(*pq.StringArray)
	if !ok || len(*arr) != 2 {
		t.Errorf("args = %#v, want a string array", c.args)
	}
}

func TestCatalogSchema_PredicateErrors(t *testing.T) {
	chars := schemas[entity.ContentTypeCharacters]
	tests := []struct {
		name string
		pred repository.Predicate
	}{
		{"unknown column", repository.Predicate{Op: repository.OpEq, Fields: []entity.Field{entity.FieldStatus}, Value: "x"}},
		{"no association", repository.Predicate{Op: repository.OpAnyOf, Fields: []entity.Field{entity.FieldGenres}, Values: []string{"a"}}},
		{"no fields", repository.Predicate{Op: repository.OpContains, Value: "x"}},
		{"non-string text", repository.Predicate{Op: repository.OpContains, Fields: []entity.Field{entity.FieldTitle}, Value: 3}},
		{"unknown op", repository.Predicate{Op: "near", Fields: []entity.Field{entity.FieldTitle}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := chars.predicate(tt.pred); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCatalogSchema_OrderBy(t *testing.T) {
	got := schemas[entity.ContentTypeCharacters].orderBy([]repository.SortKey{
		{Field: entity.FieldRating, Order: repository.SortOrderAsc},
		{Field: entity.FieldPopularity, Order: repository.SortOrderDesc},
	})
	want := "characters.favourites DESC NULLS LAST, characters.id ASC"
	if got != want {
		t.Errorf("orderBy() = %q, want %q", got, want)
	}

	got = schemas[entity.ContentTypeAnime].orderBy([]repository.SortKey{
		{Field: entity.FieldRating, Order: repository.SortOrderAsc},
		{Field: entity.FieldID, Order: repository.SortOrderAsc},
	})
	if got != "anime.rating ASC NULLS LAST, anime.id ASC NULLS LAST" {
		t.Errorf("orderBy() = %q", got)
	}
}

func TestYearRangeSQL(t *testing.T) {
	q := yearRangeSQL()
	for _, frag := range []string{
		"EXTRACT(YEAR FROM start_date) AS y FROM anime WHERE start_date IS NOT NULL",
		"FROM manga",
		"EXTRACT(YEAR FROM published_at) AS y FROM novels",
		"MIN(y)::int AS min_year",
	} {
		if !strings.Contains(q, frag) {
			t.Errorf("yearRangeSQL() missing %q:\n%s", frag, q)
		}
	}
}
