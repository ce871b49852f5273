package search

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"catalog-search-api/internal/domain/entity"
	"catalog-search-api/internal/domain/repository"
)

var errBackendDown = errors.New("connection refused")

// fakeIndex 内存索引，按 IndexQuery 的语义做朴素求值
type fakeIndex struct {
	mu   sync.Mutex
	docs map[string][]*Document

	pingErr    error
	pings      int
	searchErr  map[string]error
	block      map[string]bool
	suggest    map[string][]SuggestOption
	suggestErr error
	aggs       map[string]json.RawMessage

	queries []*IndexQuery
	indexed map[string]*Document
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		docs:      make(map[string][]*Document),
		searchErr: make(map[string]error),
		block:     make(map[string]bool),
		suggest:   make(map[string][]SuggestOption),
		indexed:   make(map[string]*Document),
	}
}

func (f *fakeIndex) add(index string, rows ...*entity.CatalogRow) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range rows {
		f.docs[index] = append(f.docs[index], DocumentFromRow(row))
	}
}

func (f *fakeIndex) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	return f.pingErr
}

func (f *fakeIndex) Search(ctx context.Context, indices []string, q *IndexQuery) (*IndexResponse, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	var (
		blocked bool
		err     error
	)
	for _, idx := range indices {
		blocked = blocked || f.block[idx]
		if e := f.searchErr[idx]; e != nil {
			err = e
		}
	}
	f.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var hits []IndexHit
	for _, idx := range indices {
		for _, doc := range f.docs[idx] {
			score, ok := matchDoc(doc, q)
			if !ok {
				continue
			}
			src, _ := json.Marshal(doc)
			hits = append(hits, IndexHit{Index: idx, ID: doc.ID, Score: score, Source: src})
		}
	}
	if len(q.Sort) > 0 && q.Sort[0].Field == "_score" {
		slices.SortStableFunc(hits, func(a, b IndexHit) int {
			switch {
			case a.Score > b.Score:
				return -1
			case a.Score < b.Score:
				return 1
			}
			return 0
		})
	}

	total := int64(len(hits))
	from := min(q.From, len(hits))
	to := min(from+q.Size, len(hits))
	return &IndexResponse{Total: total, Hits: hits[from:to], Aggregations: f.aggs}, nil
}

func (f *fakeIndex) Suggest(ctx context.Context, index string, q *SuggestQuery) ([]SuggestOption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.suggestErr != nil {
		return nil, f.suggestErr
	}
	opts := f.suggest[index]
	if len(opts) > q.Size {
		opts = opts[:q.Size]
	}
	return opts, nil
}

func (f *fakeIndex) IndexDocument(ctx context.Context, index, id string, doc *Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e := f.searchErr[index]; e != nil {
		return e
	}
	f.indexed[index+"/"+id] = doc
	return nil
}

func matchDoc(doc *Document, q *IndexQuery) (float64, bool) {
	score := 1.0
	for _, m := range q.Must {
		text := strings.ToLower(m.Text)
		if strings.Contains(strings.ToLower(doc.Title), text) {
			score += 2
			continue
		}
		haystack := strings.ToLower(strings.Join([]string{doc.TitleEnglish, doc.Synopsis, doc.Description}, " "))
		if !strings.Contains(haystack, text) {
			return 0, false
		}
	}
	for _, c := range q.Filters {
		if !matchFilter(doc, c) {
			return 0, false
		}
	}
	return score, true
}

func matchFilter(doc *Document, c FilterClause) bool {
	switch c.Kind {
	case FilterTerms:
		values := doc.Genres
		if c.Field == "tags" {
			values = doc.Tags
		}
		for _, v := range c.Values {
			if slices.Contains(values, v) {
				return true
			}
		}
		return false
	case FilterTerm:
		switch c.Field {
		case "status":
			return doc.Status == c.Value
		case "adult":
			return doc.Adult == c.Value
		}
		return false
	case FilterRange:
		var v float64
		switch c.Field {
		case "year":
			if doc.Year == nil {
				return false
			}
			v = float64(*doc.Year)
		case "rating":
			if doc.Rating == nil {
				return false
			}
			v = *doc.Rating
		case "episodes":
			if doc.Episodes == nil {
				return false
			}
			v = float64(*doc.Episodes)
		case "duration":
			if doc.Duration == nil {
				return false
			}
			v = float64(*doc.Duration)
		}
		if c.Gte != nil && v < toFloat(c.Gte) {
			return false
		}
		if c.Lte != nil && v > toFloat(c.Lte) {
			return false
		}
		return true
	}
	return false
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

// fakeCatalog 内存关系库，按谓词朴素求值
type fakeCatalog struct {
	mu    sync.Mutex
	rows  map[entity.ContentType][]*entity.CatalogRow
	err   error
	years *entity.YearRange

	listed []*repository.CatalogQuery
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{rows: make(map[entity.ContentType][]*entity.CatalogRow)}
}

func (c *fakeCatalog) add(rows ...*entity.CatalogRow) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, row := range rows {
		c.rows[row.Type] = append(c.rows[row.Type], row)
	}
}

func (c *fakeCatalog) GetByID(ctx context.Context, t entity.ContentType, id string) (*entity.CatalogRow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	for _, row := range c.rows[t] {
		if row.ID == id {
			return row, nil
		}
	}
	return nil, nil
}

func (c *fakeCatalog) List(ctx context.Context, q *repository.CatalogQuery) ([]*entity.CatalogRow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listed = append(c.listed, q)
	if c.err != nil {
		return nil, c.err
	}
	matched := c.filter(q)
	sortRows(matched, q.Sort)
	from := min(q.Offset, len(matched))
	to := len(matched)
	if q.Limit > 0 {
		to = min(from+q.Limit, len(matched))
	}
	return matched[from:to], nil
}

func (c *fakeCatalog) Count(ctx context.Context, q *repository.CatalogQuery) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	return int64(len(c.filter(q))), nil
}

func (c *fakeCatalog) YearRange(ctx context.Context) (*entity.YearRange, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.years, nil
}

func (c *fakeCatalog) filter(q *repository.CatalogQuery) []*entity.CatalogRow {
	var out []*entity.CatalogRow
	for _, row := range c.rows[q.Type] {
		ok := true
		for _, p := range q.Predicates {
			if !matchPredicate(row, p) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, row)
		}
	}
	return out
}

func matchPredicate(row *entity.CatalogRow, p repository.Predicate) bool {
	switch p.Op {
	case repository.OpContains, repository.OpPrefix:
		needle := strings.ToLower(p.Value.(string))
		for _, f := range p.Fields {
			v := strings.ToLower(rowText(row, f))
			if p.Op == repository.OpContains && strings.Contains(v, needle) {
				return true
			}
			if p.Op == repository.OpPrefix && strings.HasPrefix(v, needle) {
				return true
			}
		}
		return false
	case repository.OpAnyOf:
		values := row.Genres
		if p.Fields[0] == entity.FieldTags {
			values = row.Tags
		}
		for _, v := range p.Values {
			if slices.Contains(values, v) {
				return true
			}
		}
		return false
	case repository.OpEq:
		switch p.Fields[0] {
		case entity.FieldStatus:
			return row.Status == p.Value
		case entity.FieldAdult:
			return row.Adult == p.Value
		}
		return false
	}

	// 区间谓词
	field := p.Fields[0]
	if field == entity.FieldYear || field == entity.FieldUpdated || field == entity.FieldCreated {
		var at time.Time
		switch field {
		case entity.FieldYear:
			if row.Year == nil {
				return false
			}
			at = time.Date(*row.Year, time.June, 1, 0, 0, 0, 0, time.UTC)
		case entity.FieldUpdated:
			at = row.UpdatedAt
		case entity.FieldCreated:
			at = row.CreatedAt
		}
		bound := p.Value.(time.Time)
		switch p.Op {
		case repository.OpGte:
			return !at.Before(bound)
		case repository.OpLt:
			return at.Before(bound)
		case repository.OpLte:
			return !at.After(bound)
		}
		return false
	}

	var v float64
	switch field {
	case entity.FieldRating:
		if row.Rating == nil {
			return false
		}
		v = *row.Rating
	case entity.FieldEpisodes:
		if row.Episodes == nil {
			return false
		}
		v = float64(*row.Episodes)
	case entity.FieldDuration:
		if row.Duration == nil {
			return false
		}
		v = float64(*row.Duration)
	}
	bound := toFloat(p.Value)
	switch p.Op {
	case repository.OpGte:
		return v >= bound
	case repository.OpLte:
		return v <= bound
	case repository.OpLt:
		return v < bound
	}
	return false
}

func rowText(row *entity.CatalogRow, f entity.Field) string {
	switch f {
	case entity.FieldTitle:
		return row.Title
	case entity.FieldTitleEnglish:
		return row.TitleEnglish
	case entity.FieldTitleRomaji:
		return row.TitleRomaji
	case entity.FieldTitleJapanese:
		return row.TitleJapanese
	case entity.FieldSynopsis:
		return row.Synopsis
	case entity.FieldDescription:
		return row.Description
	}
	return ""
}

type fakeVocabulary struct {
	genres []*entity.Genre
	tags   []*entity.Tag
	err    error
}

func (v *fakeVocabulary) ListGenres(ctx context.Context) ([]*entity.Genre, error) {
	return v.genres, v.err
}

func (v *fakeVocabulary) ListTags(ctx context.Context) ([]*entity.Tag, error) {
	return v.tags, v.err
}

// fakeCache 进程内的 GetOrLoadSafe 实现
type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	loads   int
	err     error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() (interface{}, error)) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	if data, ok := c.entries[key]; ok {
		return data, nil
	}
	c.loads++
	v, err := loader()
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	c.entries[key] = data
	return data, nil
}

type fakePublisher struct {
	mu   sync.Mutex
	jobs []ReindexJob
	err  error
}

func (p *fakePublisher) PublishReindex(ctx context.Context, job ReindexJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, job)
	return nil
}

func ptr[T any](v T) *T {
	return &v
}

func newRow(t entity.ContentType, id, title string, popularity int64) *entity.CatalogRow {
	now := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	return &entity.CatalogRow{
		Type:       t,
		ID:         id,
		Title:      title,
		Popularity: ptr(popularity),
		Genres:     []string{},
		Tags:       []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// newTestEngine 组装引擎，backend 为 nil 时只走关系路径
func newTestEngine(backend IndexBackend, catalog *fakeCatalog, opts Options) *Engine {
	prober := NewProber(backend, ProberConfig{Timeout: time.Second, TTL: time.Minute, FailureTTL: time.Second})
	return NewEngine(backend, prober, catalog, NewIndexNames("catalog"), opts)
}
