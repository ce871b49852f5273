package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"catalog-search-api/internal/domain/entity"
)

func newTestIndexer(backend IndexBackend, catalog *fakeCatalog, publisher ReindexPublisher) *Indexer {
	prober := NewProber(backend, ProberConfig{Timeout: time.Second, TTL: time.Minute, FailureTTL: time.Second})
	return NewIndexer(backend, prober, catalog, NewIndexNames("catalog"), publisher)
}

func TestAuthorizeReindex(t *testing.T) {
	tests := []struct {
		role    string
		allowed bool
	}{
		{"super_admin", true},
		{"admin", true},
		{"moderator", false},
		{"user", false},
		{"", false},
	}
	for _, tt := range tests {
		err := AuthorizeReindex(tt.role)
		if (err == nil) != tt.allowed {
			t.Errorf("AuthorizeReindex(%q) = %v, allowed %v", tt.role, err, tt.allowed)
		}
		var authErr *AuthorizationError
		if err != nil && !errors.As(err, &authErr) {
			t.Errorf("AuthorizeReindex(%q) returned %T", tt.role, err)
		}
	}
}

func TestIndexer_Reindex(t *testing.T) {
	backend := newFakeIndex()
	catalog := newFakeCatalog()
	r := newRow(entity.ContentTypeAnime, "a1", "Frieren", 500)
	r.TitleEnglish = "Frieren: Beyond Journey's End"
	catalog.add(r)
	indexer := newTestIndexer(backend, catalog, nil)

	doc, err := indexer.Reindex(context.Background(), entity.ContentTypeAnime, "a1")
	if err != nil {
		t.Fatalf("Reindex() error = %v", err)
	}
	stored, ok := backend.indexed["catalog_anime/a1"]
	if !ok {
		t.Fatal("document was not written under its entity id")
	}
	if stored != doc || doc.Suggest == nil || len(doc.Suggest.Input) != 2 || doc.Suggest.Weight != 500 {
		t.Errorf("doc = %+v", doc)
	}

	// 按 ID 覆盖写入，重复执行保持单份文档
	if _, err := indexer.Reindex(context.Background(), entity.ContentTypeAnime, "a1"); err != nil {
		t.Fatalf("second Reindex() error = %v", err)
	}
	if len(backend.indexed) != 1 {
		t.Errorf("indexed %d documents, want 1", len(backend.indexed))
	}
}

func TestIndexer_Reindex_Errors(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.add(newRow(entity.ContentTypeManga, "m1", "Vagabond", 1))

	down := newFakeIndex()
	down.pingErr = errBackendDown
	failing := newFakeIndex()
	failing.searchErr["catalog_manga"] = errors.New("mapper_parsing_exception")

	tests := []struct {
		name    string
		backend IndexBackend
		t       entity.ContentType
		id      string
		check   func(error) bool
	}{
		{"invalid type", newFakeIndex(), entity.ContentTypeAll, "m1", func(err error) bool {
			var v *ValidationError
			return errors.As(err, &v)
		}},
		{"blank id", newFakeIndex(), entity.ContentTypeManga, "  ", func(err error) bool {
			var v *ValidationError
			return errors.As(err, &v)
		}},
		{"unknown id", newFakeIndex(), entity.ContentTypeManga, "missing", func(err error) bool {
			var nf *EntityNotFoundError
			return errors.As(err, &nf)
		}},
		{"index down", down, entity.ContentTypeManga, "m1", func(err error) bool {
			var u *IndexUnavailableError
			return errors.As(err, &u)
		}},
		{"no backend", nil, entity.ContentTypeManga, "m1", func(err error) bool {
			var u *IndexUnavailableError
			return errors.As(err, &u)
		}},
		{"write failure", failing, entity.ContentTypeManga, "m1", func(err error) bool {
			var q *IndexQueryError
			return errors.As(err, &q)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestIndexer(tt.backend, catalog, nil).Reindex(context.Background(), tt.t, tt.id)
			if err == nil || !tt.check(err) {
				t.Errorf("Reindex() error = %v (%T)", err, err)
			}
		})
	}
}

func TestIndexer_Enqueue(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.add(newRow(entity.ContentTypeNovels, "n1", "Mushoku Tensei", 1))
	publisher := &fakePublisher{}
	indexer := newTestIndexer(nil, catalog, publisher)

	job := ReindexJob{Type: entity.ContentTypeNovels, ID: "n1", RequestedBy: "admin-1"}
	if err := indexer.Enqueue(context.Background(), job); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if len(publisher.jobs) != 1 || publisher.jobs[0] != job {
		t.Errorf("jobs = %+v", publisher.jobs)
	}

	err := indexer.Enqueue(context.Background(), ReindexJob{Type: entity.ContentTypeNovels, ID: "nope"})
	var nf *EntityNotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("Enqueue(unknown) error = %v", err)
	}

	if err := newTestIndexer(nil, catalog, nil).Enqueue(context.Background(), job); !errors.Is(err, ErrReindexQueueDisabled) {
		t.Errorf("Enqueue without publisher = %v", err)
	}
}

func TestIndexer_Backfill(t *testing.T) {
	catalog := newFakeCatalog()
	for _, id := range []string{"a3", "a1", "a5", "a2", "a4"} {
		catalog.add(newRow(entity.ContentTypeAnime, id, "Title "+id, 1))
	}
	catalog.add(newRow(entity.ContentTypeManga, "m1", "Other", 1))
	backend := newFakeIndex()

	res, err := newTestIndexer(backend, catalog, nil).Backfill(context.Background(), entity.ContentTypeAnime, 2)
	if err != nil {
		t.Fatalf("Backfill() error = %v", err)
	}
	if res.Indexed != 5 || res.Failed != 0 {
		t.Errorf("result = %+v", res)
	}
	for _, id := range []string{"a1", "a2", "a3", "a4", "a5"} {
		if _, ok := backend.indexed["catalog_anime/"+id]; !ok {
			t.Errorf("%s not indexed", id)
		}
	}
	if _, ok := backend.indexed["catalog_manga/m1"]; ok {
		t.Error("backfill leaked into another type")
	}
}

func TestIndexer_Backfill_Rejects(t *testing.T) {
	catalog := newFakeCatalog()
	down := newFakeIndex()
	down.pingErr = errBackendDown

	var u *IndexUnavailableError
	if _, err := newTestIndexer(down, catalog, nil).Backfill(context.Background(), entity.ContentTypeAnime, 10); !errors.As(err, &u) {
		t.Errorf("Backfill(index down) = %v", err)
	}
	var v *ValidationError
	if _, err := newTestIndexer(newFakeIndex(), catalog, nil).Backfill(context.Background(), entity.ContentTypeAll, 10); !errors.As(err, &v) {
		t.Errorf("Backfill(all) = %v", err)
	}
}
