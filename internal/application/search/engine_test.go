package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"catalog-search-api/internal/domain/entity"
)

func seedNaruto(catalog *fakeCatalog) {
	catalog.add(
		newRow(entity.ContentTypeAnime, "1", "Naruto", 900),
		newRow(entity.ContentTypeAnime, "2", "Naruto Shippuden", 800),
		newRow(entity.ContentTypeAnime, "3", "Boruto: NARUTO Next Generations", 500),
		newRow(entity.ContentTypeAnime, "4", "Bleach", 700),
		newRow(entity.ContentTypeAnime, "5", "One Piece", 1000),
	)
}

func TestEngine_Search_FallbackWhenIndexDown(t *testing.T) {
	catalog := newFakeCatalog()
	seedNaruto(catalog)
	backend := newFakeIndex()
	backend.pingErr = errBackendDown
	engine := newTestEngine(backend, catalog, Options{})

	page, err := engine.Search(context.Background(), &SearchRequest{
		Text: "Naruto", Type: entity.ContentTypeAnime, Sort: DefaultSort, Page: 1, Limit: 10,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if page.SearchMethod != MethodFallback {
		t.Errorf("SearchMethod = %s, want fallback", page.SearchMethod)
	}
	if len(page.Results) != 3 || page.Total != 3 || page.TotalPages != 1 || page.HasNext || page.HasPrev {
		t.Fatalf("page = %+v, want 3 results on a single page", page)
	}
	// relevance 在关系库中降级为热度降序
	wantIDs := []string{"1", "2", "3"}
	for i, r := range page.Results {
		if r.ID != wantIDs[i] {
			t.Errorf("Results[%d].ID = %s, want %s", i, r.ID, wantIDs[i])
		}
	}
	if page.Approximate {
		t.Error("single type fallback must not be approximate")
	}
}

func TestEngine_Search_NoBackend(t *testing.T) {
	catalog := newFakeCatalog()
	seedNaruto(catalog)
	engine := newTestEngine(nil, catalog, Options{})

	page, err := engine.Search(context.Background(), &SearchRequest{
		Text: "bleach", Type: entity.ContentTypeAnime, Sort: DefaultSort, Page: 1, Limit: 10,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if page.SearchMethod != MethodFallback || len(page.Results) != 1 {
		t.Fatalf("page = %+v, want one fallback result", page)
	}
}

func TestEngine_Search_IndexPath(t *testing.T) {
	catalog := newFakeCatalog()
	backend := newFakeIndex()
	backend.add("catalog_anime",
		newRow(entity.ContentTypeAnime, "1", "Naruto", 900),
		newRow(entity.ContentTypeAnime, "2", "Bleach", 700),
	)
	engine := newTestEngine(backend, catalog, Options{})

	page, err := engine.Search(context.Background(), &SearchRequest{
		Text: "naruto", Type: entity.ContentTypeAnime, Sort: DefaultSort, Page: 1, Limit: 10,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if page.SearchMethod != MethodIndex {
		t.Fatalf("SearchMethod = %s, want index", page.SearchMethod)
	}
	if len(page.Results) != 1 || page.Results[0].ID != "1" || page.Results[0].Type != entity.ContentTypeAnime {
		t.Fatalf("Results = %+v", page.Results)
	}
	if page.Results[0].Score <= 0 {
		t.Errorf("index results carry a score, got %v", page.Results[0].Score)
	}
	if len(catalog.listed) != 0 {
		t.Errorf("relational store queried %d times on index path", len(catalog.listed))
	}
}

func TestEngine_Search_QueryErrorFallsBack(t *testing.T) {
	catalog := newFakeCatalog()
	seedNaruto(catalog)
	backend := newFakeIndex()
	backend.searchErr["catalog_anime"] = errors.New("search_phase_execution_exception")
	engine := newTestEngine(backend, catalog, Options{})

	page, err := engine.Search(context.Background(), &SearchRequest{
		Text: "naruto", Type: entity.ContentTypeAnime, Sort: DefaultSort, Page: 1, Limit: 10,
	})
	if err != nil {
		t.Fatalf("query errors must not surface on global search: %v", err)
	}
	if page.SearchMethod != MethodFallback || len(page.Results) != 3 {
		t.Fatalf("page = %+v, want 3 fallback results", page)
	}
}

func TestEngine_Search_FallbackErrorSurfaces(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.err = errors.New("db down")
	engine := newTestEngine(nil, catalog, Options{})

	_, err := engine.Search(context.Background(), &SearchRequest{
		Text: "x", Type: entity.ContentTypeAnime, Sort: DefaultSort, Page: 1, Limit: 10,
	})
	if err == nil {
		t.Fatal("expected error when both paths fail")
	}
}

func seedAllIndices(backend *fakeIndex, perType int) {
	for _, ct := range entity.ConcreteTypes() {
		for i := 0; i < perType; i++ {
			title := fmt.Sprintf("%s hero %d", ct, i)
			backend.add("catalog_"+string(ct), newRow(ct, fmt.Sprintf("%s-%d", ct, i), title, int64(i)))
		}
	}
}

func TestEngine_FanOut_MergesAndSumsTotals(t *testing.T) {
	backend := newFakeIndex()
	seedAllIndices(backend, 4)
	engine := newTestEngine(backend, newFakeCatalog(), Options{})

	page, err := engine.Search(context.Background(), &SearchRequest{
		Text: "hero", Type: entity.ContentTypeAll, Sort: DefaultSort, Page: 1, Limit: 7,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if page.SearchMethod != MethodIndex {
		t.Fatalf("SearchMethod = %s, want index", page.SearchMethod)
	}
	if len(page.Results) != 7 {
		t.Errorf("len(Results) = %d, want 7", len(page.Results))
	}
	if page.Total != 20 {
		t.Errorf("Total = %d, want sum of sub-totals 20", page.Total)
	}
	if !page.Approximate {
		t.Error("fan-out totals are approximate")
	}
	for i := 1; i < len(page.Results); i++ {
		if page.Results[i-1].Score < page.Results[i].Score {
			t.Fatalf("results not sorted by score at %d", i)
		}
	}

	// 每个子查询的 size 为 ceil(limit/5)
	for _, q := range backend.queries {
		if q.Size != 2 || q.From != 0 {
			t.Errorf("sub-search from/size = %d/%d, want 0/2", q.From, q.Size)
		}
	}
}

func TestEngine_FanOut_FailFast(t *testing.T) {
	backend := newFakeIndex()
	seedAllIndices(backend, 2)
	backend.searchErr["catalog_users"] = errors.New("shard failure")

	catalog := newFakeCatalog()
	catalog.add(newRow(entity.ContentTypeManga, "m1", "hero manga", 10))
	engine := newTestEngine(backend, catalog, Options{})

	page, err := engine.Search(context.Background(), &SearchRequest{
		Text: "hero", Type: entity.ContentTypeAll, Sort: DefaultSort, Page: 1, Limit: 10,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if page.SearchMethod != MethodFallback {
		t.Fatalf("SearchMethod = %s, partial index results must never surface", page.SearchMethod)
	}
	if len(page.Results) != 1 || page.Results[0].ID != "m1" {
		t.Errorf("Results = %+v, want only the relational row", page.Results)
	}
}

func TestEngine_FanOut_TimeoutFallsBack(t *testing.T) {
	backend := newFakeIndex()
	seedAllIndices(backend, 2)
	backend.block["catalog_novels"] = true
	engine := newTestEngine(backend, newFakeCatalog(), Options{SubSearchTimeout: 20 * time.Millisecond})

	start := time.Now()
	page, err := engine.Search(context.Background(), &SearchRequest{
		Text: "hero", Type: entity.ContentTypeAll, Sort: DefaultSort, Page: 1, Limit: 10,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if page.SearchMethod != MethodFallback {
		t.Errorf("SearchMethod = %s, want fallback after timeout", page.SearchMethod)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timed out sub-search held the request for %v", elapsed)
	}
}

func TestEngine_Fallback_AllTypes(t *testing.T) {
	catalog := newFakeCatalog()
	for _, ct := range entity.ConcreteTypes() {
		for i := 0; i < 8; i++ {
			catalog.add(newRow(ct, fmt.Sprintf("%s-%d", ct, i), fmt.Sprintf("star %s %d", ct, i), int64(i*10)))
		}
	}
	engine := newTestEngine(nil, catalog, Options{})

	page, err := engine.Search(context.Background(), &SearchRequest{
		Text: "star", Type: entity.ContentTypeAll, Sort: DefaultSort, Page: 1, Limit: 20,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if page.Total != 40 {
		t.Errorf("Total = %d, want sum of per-type counts 40", page.Total)
	}
	if !page.Approximate {
		t.Error("combined fallback totals are approximate")
	}
	if len(page.Results) != 20 {
		t.Fatalf("len(Results) = %d, want 20", len(page.Results))
	}
	for i := 1; i < len(page.Results); i++ {
		if *page.Results[i-1].Popularity < *page.Results[i].Popularity {
			t.Fatalf("merged fallback results not ordered by popularity at %d", i)
		}
	}
	for _, q := range catalog.listed {
		if q.Offset != 0 || q.Limit != 20 {
			t.Errorf("%s offset/limit = %d/%d, want 0/20", q.Type, q.Offset, q.Limit)
		}
	}
}

func TestEngine_Pagination_Invariants(t *testing.T) {
	catalog := newFakeCatalog()
	for i := 0; i < 23; i++ {
		catalog.add(newRow(entity.ContentTypeManga, fmt.Sprintf("m%02d", i), fmt.Sprintf("Manga %d", i), int64(i)))
	}
	engine := newTestEngine(nil, catalog, Options{})

	for _, limit := range []int{1, 5, 10, 23, 50} {
		for page := 1; page <= 6; page++ {
			res, err := engine.Search(context.Background(), &SearchRequest{
				Text: "manga", Type: entity.ContentTypeManga, Sort: DefaultSort, Page: page, Limit: limit,
			})
			if err != nil {
				t.Fatalf("Search(page=%d, limit=%d) error = %v", page, limit, err)
			}
			if res.Total < int64(len(res.Results)) {
				t.Errorf("total %d < len(results) %d", res.Total, len(res.Results))
			}
			if res.HasNext != (int64(page*limit) < res.Total) {
				t.Errorf("page=%d limit=%d: hasNext = %v", page, limit, res.HasNext)
			}
			if res.HasPrev != (page > 1) {
				t.Errorf("page=%d: hasPrev = %v", page, res.HasPrev)
			}
			if want := int((res.Total + int64(limit) - 1) / int64(limit)); res.TotalPages != want {
				t.Errorf("totalPages = %d, want %d", res.TotalPages, want)
			}
		}
	}
}

func TestEngine_Advanced_FilterOnlyYear(t *testing.T) {
	backend := newFakeIndex()
	for i := 0; i < 50; i++ {
		r := newRow(entity.ContentTypeAnime, fmt.Sprintf("other-%d", i), fmt.Sprintf("Other %d", i), int64(i))
		r.Year = ptr(2000 + i%19)
		backend.add("catalog_anime", r)
	}
	for i := 0; i < 2; i++ {
		r := newRow(entity.ContentTypeAnime, fmt.Sprintf("y2020-%d", i), fmt.Sprintf("Twenty %d", i), 100)
		r.Year = ptr(2020)
		backend.add("catalog_anime", r)
	}
	engine := newTestEngine(backend, newFakeCatalog(), Options{})

	page, err := engine.Advanced(context.Background(), &SearchRequest{
		Type:    entity.ContentTypeAnime,
		Filters: FilterSet{YearFrom: ptr(2020), YearTo: ptr(2020)},
		Sort:    DefaultSort,
		Page:    1,
		Limit:   20,
	})
	if err != nil {
		t.Fatalf("Advanced() error = %v", err)
	}
	if page.SearchMethod != MethodIndex || len(page.Results) != 2 || page.Total != 2 {
		t.Fatalf("page = %+v, want exactly the 2 docs from 2020", page.ResultPage)
	}
	if page.Aggregations == nil {
		t.Error("index path must return aggregations")
	}
	q := backend.queries[len(backend.queries)-1]
	if len(q.Must) != 0 || !q.Aggregations {
		t.Errorf("query = %+v, want match-all with aggregations", q)
	}
}

func TestEngine_Advanced_IndexDownIsSurfaced(t *testing.T) {
	backend := newFakeIndex()
	backend.pingErr = errBackendDown
	catalog := newFakeCatalog()
	seedNaruto(catalog)
	engine := newTestEngine(backend, catalog, Options{})

	_, err := engine.Advanced(context.Background(), &SearchRequest{
		Title: "naruto", Type: entity.ContentTypeAnime, Sort: DefaultSort, Page: 1, Limit: 10,
	})
	if !errors.Is(err, ErrAggregationsUnavailable) {
		t.Fatalf("Advanced() error = %v, want ErrAggregationsUnavailable", err)
	}
	var unavailable *IndexUnavailableError
	if !errors.As(err, &unavailable) {
		t.Errorf("error should wrap IndexUnavailableError, got %v", err)
	}
}

func TestEngine_Advanced_QueryErrorIsSurfaced(t *testing.T) {
	backend := newFakeIndex()
	backend.searchErr["catalog_anime"] = errors.New("parse_exception")
	engine := newTestEngine(backend, newFakeCatalog(), Options{})

	_, err := engine.Advanced(context.Background(), &SearchRequest{
		Type: entity.ContentTypeAnime, Sort: DefaultSort, Page: 1, Limit: 10,
	})
	var qe *IndexQueryError
	if !errors.Is(err, ErrAggregationsUnavailable) || !errors.As(err, &qe) {
		t.Fatalf("Advanced() error = %v, want aggregations error wrapping IndexQueryError", err)
	}
	if qe.Index != "catalog_anime" {
		t.Errorf("IndexQueryError.Index = %s", qe.Index)
	}
}

func TestEngine_Advanced_ConfiguredFallback(t *testing.T) {
	catalog := newFakeCatalog()
	seedNaruto(catalog)
	engine := newTestEngine(nil, catalog, Options{AdvancedFallbackOnIndexError: true})

	page, err := engine.Advanced(context.Background(), &SearchRequest{
		Title: "naruto", Type: entity.ContentTypeAnime, Sort: DefaultSort, Page: 1, Limit: 10,
	})
	if err != nil {
		t.Fatalf("Advanced() error = %v", err)
	}
	if page.SearchMethod != MethodFallback || page.Aggregations != nil || len(page.Results) != 3 {
		t.Fatalf("page = %+v, want fallback results without aggregations", page)
	}
}

func TestEngine_Advanced_AllTypesDecodesIndex(t *testing.T) {
	backend := newFakeIndex()
	backend.add("catalog_manga", newRow(entity.ContentTypeManga, "m1", "Berserk", 10))
	backend.add("catalog_novels", newRow(entity.ContentTypeNovels, "n1", "Berserk Novel", 5))
	backend.aggs = map[string]json.RawMessage{
		"types": json.RawMessage(`{"buckets":[{"key":"catalog_manga","doc_count":1},{"key":"catalog_novels","doc_count":1}]}`),
	}
	engine := newTestEngine(backend, newFakeCatalog(), Options{})

	page, err := engine.Advanced(context.Background(), &SearchRequest{
		Title: "berserk", Type: entity.ContentTypeAll, Sort: DefaultSort, Page: 1, Limit: 10,
	})
	if err != nil {
		t.Fatalf("Advanced() error = %v", err)
	}
	if len(page.Results) != 2 {
		t.Fatalf("len(Results) = %d, want 2", len(page.Results))
	}
	types := map[entity.ContentType]bool{}
	for _, r := range page.Results {
		types[r.Type] = true
	}
	if !types[entity.ContentTypeManga] || !types[entity.ContentTypeNovels] {
		t.Errorf("result types = %v", types)
	}
	if len(page.Aggregations.Types) != 2 || page.Aggregations.Types[0].Key != "manga" {
		t.Errorf("type buckets = %+v", page.Aggregations.Types)
	}
}

func collectIDs(results []SearchResult) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestEngine_Fallback_AllTypes_EveryRowReachable(t *testing.T) {
	catalog := newFakeCatalog()
	for i := 0; i < 6; i++ {
		catalog.add(newRow(entity.ContentTypeAnime, fmt.Sprintf("a%d", i), "Naruto", int64(60-10*i)))
	}
	for i := 0; i < 3; i++ {
		catalog.add(newRow(entity.ContentTypeManga, fmt.Sprintf("m%d", i), "Naruto", int64(55-10*i)))
	}
	engine := newTestEngine(nil, catalog, Options{})

	var got []string
	for page := 1; ; page++ {
		res, err := engine.Search(context.Background(), &SearchRequest{
			Text: "naruto", Type: entity.ContentTypeAll, Sort: DefaultSort, Page: page, Limit: 2,
		})
		if err != nil {
			t.Fatalf("Search(page %d) error = %v", page, err)
		}
		if res.Total != 9 || res.TotalPages != 5 {
			t.Fatalf("page %d: total/pages = %d/%d, want 9/5", page, res.Total, res.TotalPages)
		}
		got = append(got, collectIDs(res.Results)...)
		if !res.HasNext {
			break
		}
		if page > res.TotalPages {
			t.Fatal("HasNext never turned false")
		}
	}

	want := []string{"a0", "m0", "a1", "m1", "a2", "m2", "a3", "a4", "a5"}
	if !slices.Equal(got, want) {
		t.Errorf("paged ids = %v, want %v", got, want)
	}
}

func TestEngine_Search_Idempotent(t *testing.T) {
	seed := func(add func(t entity.ContentType, rows ...*entity.CatalogRow)) {
		for _, ct := range []entity.ContentType{entity.ContentTypeAnime, entity.ContentTypeManga, entity.ContentTypeNovels} {
			add(ct,
				newRow(ct, string(ct)+"-2", "Frieren", 100),
				newRow(ct, string(ct)+"-1", "Frieren", 100),
				newRow(ct, string(ct)+"-3", "Frieren Extra", 100),
			)
		}
	}

	tests := []struct {
		name   string
		method Method
		build  func() *Engine
	}{
		{"index", MethodIndex, func() *Engine {
			backend := newFakeIndex()
			names := NewIndexNames("catalog")
			seed(func(ct entity.ContentType, rows ...*entity.CatalogRow) { backend.add(names.For(ct), rows...) })
			return newTestEngine(backend, newFakeCatalog(), Options{})
		}},
		{"fallback", MethodFallback, func() *Engine {
			catalog := newFakeCatalog()
			seed(func(_ entity.ContentType, rows ...*entity.CatalogRow) { catalog.add(rows...) })
			backend := newFakeIndex()
			backend.pingErr = errBackendDown
			return newTestEngine(backend, catalog, Options{})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := tt.build()
			for _, typ := range []entity.ContentType{entity.ContentTypeAll, entity.ContentTypeManga} {
				for page := 1; page <= 2; page++ {
					req := SearchRequest{Text: "frieren", Type: typ, Sort: DefaultSort, Page: page, Limit: 4}

					first, err := engine.Search(context.Background(), &req)
					if err != nil {
						t.Fatalf("Search() error = %v", err)
					}
					again := req
					second, err := engine.Search(context.Background(), &again)
					if err != nil {
						t.Fatalf("Search() error = %v", err)
					}

					if first.SearchMethod != tt.method {
						t.Fatalf("SearchMethod = %s, want %s", first.SearchMethod, tt.method)
					}
					if len(first.Results) == 0 && page == 1 {
						t.Fatalf("%s page %d returned nothing", typ, page)
					}
					if a, b := collectIDs(first.Results), collectIDs(second.Results); !slices.Equal(a, b) {
						t.Errorf("%s page %d: results %v then %v", typ, page, a, b)
					}
					if first.Total != second.Total {
						t.Errorf("%s page %d: total %d then %d", typ, page, first.Total, second.Total)
					}
				}
			}
		})
	}
}
