package search

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"catalog-search-api/internal/domain/entity"
)

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v (%T), want *ValidationError", err, err)
	}
	names := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		names = append(names, f.Field)
	}
	return names
}

func TestNormalizer_Global_Defaults(t *testing.T) {
	n := NewNormalizer(DefaultLimits)
	req, err := n.Global(RawSearchParams{Query: "  naruto "})
	if err != nil {
		t.Fatalf("Global() error = %v", err)
	}
	if req.Text != "naruto" || req.Type != entity.ContentTypeAll || req.Page != 1 || req.Limit != 20 {
		t.Errorf("req = %+v", req)
	}
	if req.Sort != DefaultSort {
		t.Errorf("Sort = %+v, want relevance/desc", req.Sort)
	}
}

func TestNormalizer_Global_ListsEveryViolation(t *testing.T) {
	n := NewNormalizer(DefaultLimits)
	_, err := n.Global(RawSearchParams{
		Query:     "",
		Type:      "movies",
		Page:      "0",
		Limit:     "51",
		SortBy:    "score",
		SortOrder: "sideways",
		Year:      "abc",
		RatingMin: "11",
		Adult:     "maybe",
	})
	got := fieldNames(t, err)
	want := []string{"query", "type", "page", "limit", "sortBy", "sortOrder", "filters[year]", "filters[ratingMin]", "filters[adult]"}
	if !slices.Equal(got, want) {
		t.Errorf("fields = %v, want %v", got, want)
	}
}

func TestNormalizer_Global_Bounds(t *testing.T) {
	n := NewNormalizer(DefaultLimits)
	tests := []struct {
		name  string
		raw   RawSearchParams
		valid bool
	}{
		{"limit lower bound", RawSearchParams{Query: "a", Limit: "1"}, true},
		{"limit upper bound", RawSearchParams{Query: "a", Limit: "50"}, true},
		{"limit zero", RawSearchParams{Query: "a", Limit: "0"}, false},
		{"limit not a number", RawSearchParams{Query: "a", Limit: "ten"}, false},
		{"negative page", RawSearchParams{Query: "a", Page: "-1"}, false},
		{"whitespace query", RawSearchParams{Query: "   "}, false},
		{"query too long", RawSearchParams{Query: strings.Repeat("x", 201)}, false},
		{"status for type", RawSearchParams{Query: "a", Type: "anime", Status: "airing"}, true},
		{"status foreign to type", RawSearchParams{Query: "a", Type: "anime", Status: "publishing"}, false},
		{"status on users", RawSearchParams{Query: "a", Type: "users", Status: "airing"}, false},
		{"rating inverted", RawSearchParams{Query: "a", RatingMin: "8", RatingMax: "3"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := n.Global(tt.raw)
			if tt.valid {
				if err != nil {
					t.Fatalf("Global() error = %v", err)
				}
				if req.Limit < 1 || req.Limit > 50 || req.Page < 1 {
					t.Errorf("bounds violated: %+v", req)
				}
				return
			}
			if err == nil {
				t.Fatalf("Global() accepted %+v", tt.raw)
			}
		})
	}
}

func TestNormalizer_Global_Filters(t *testing.T) {
	n := NewNormalizer(DefaultLimits)
	req, err := n.Global(RawSearchParams{
		Query:     "ninja",
		Type:      "Anime",
		Genres:    []string{"Action, Drama", "Action"},
		Year:      "2002",
		RatingMin: "7.5",
		Adult:     "false",
		SortBy:    "popularity",
		SortOrder: "ASC",
	})
	if err != nil {
		t.Fatalf("Global() error = %v", err)
	}
	if !slices.Equal(req.Filters.Genres, []string{"Action", "Drama"}) {
		t.Errorf("Genres = %v", req.Filters.Genres)
	}
	if *req.Filters.YearFrom != 2002 || *req.Filters.YearTo != 2002 {
		t.Errorf("year = %d..%d", *req.Filters.YearFrom, *req.Filters.YearTo)
	}
	if req.Filters.Rating == nil || *req.Filters.Rating.Min != 7.5 || req.Filters.Rating.Max != nil {
		t.Errorf("Rating = %+v", req.Filters.Rating)
	}
	if req.Filters.Adult == nil || *req.Filters.Adult {
		t.Errorf("Adult = %v", req.Filters.Adult)
	}
	if req.Sort != (SortSpec{Field: SortPopularity, Order: SortAsc}) {
		t.Errorf("Sort = %+v", req.Sort)
	}
	if req.Type != entity.ContentTypeAnime {
		t.Errorf("Type = %s", req.Type)
	}
}

func TestNormalizer_Advanced(t *testing.T) {
	n := NewNormalizer(DefaultLimits)

	req, err := n.Advanced(RawAdvancedParams{YearFrom: ptr(2020), YearTo: ptr(2020)})
	if err != nil {
		t.Fatalf("filter-only Advanced() error = %v", err)
	}
	if req.HasText() || *req.Filters.YearFrom != 2020 || req.Page != 1 || req.Limit != 20 {
		t.Errorf("req = %+v", req)
	}

	_, err = n.Advanced(RawAdvancedParams{
		YearFrom:    ptr(2021),
		YearTo:      ptr(2020),
		RatingMin:   ptr(-1.0),
		EpisodesMin: ptr(24),
		EpisodesMax: ptr(12),
		DurationMax: ptr(-5),
		Page:        ptr(0),
		Limit:       ptr(100),
	})
	got := fieldNames(t, err)
	want := []string{"page", "limit", "year", "rating.min", "episodes", "duration.max"}
	if !slices.Equal(got, want) {
		t.Errorf("fields = %v, want %v", got, want)
	}
}

func TestNormalizer_Suggest(t *testing.T) {
	n := NewNormalizer(DefaultLimits)

	req, err := n.Suggest(RawSuggestParams{Query: "nar"})
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if req.Limit != 5 || req.Type != entity.ContentTypeAll {
		t.Errorf("req = %+v", req)
	}

	_, err = n.Suggest(RawSuggestParams{Query: "", Limit: "11"})
	if got := fieldNames(t, err); !slices.Equal(got, []string{"query", "limit"}) {
		t.Errorf("fields = %v", got)
	}
}

func TestNormalizer_Trending(t *testing.T) {
	n := NewNormalizer(DefaultLimits)

	req, err := n.Trending(RawTrendingParams{})
	if err != nil {
		t.Fatalf("Trending() error = %v", err)
	}
	if req.Period != PeriodWeek || req.Limit != 10 {
		t.Errorf("req = %+v", req)
	}

	_, err = n.Trending(RawTrendingParams{Period: "year", Limit: "0"})
	if got := fieldNames(t, err); !slices.Equal(got, []string{"period", "limit"}) {
		t.Errorf("fields = %v", got)
	}
}

func TestNormalizer_Filters(t *testing.T) {
	n := NewNormalizer(Limits{})
	if typ, err := n.Filters(""); err != nil || typ != entity.ContentTypeAll {
		t.Errorf("Filters(\"\") = %s, %v", typ, err)
	}
	if _, err := n.Filters("games"); err == nil {
		t.Error("Filters(games) accepted")
	}
}
