package search

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"catalog-search-api/internal/domain/entity"
	"catalog-search-api/internal/domain/repository"
)

// FromHit 将索引命中映射为统一结果
func FromHit(t entity.ContentType, hit IndexHit) (SearchResult, error) {
	var doc Document
	if err := json.Unmarshal(hit.Source, &doc); err != nil {
		return SearchResult{}, fmt.Errorf("failed to decode %s hit %s: %w", t, hit.ID, err)
	}

	id := hit.ID
	if id == "" {
		id = doc.ID
	}
	return SearchResult{
		Type:         t,
		ID:           id,
		Title:        doc.Title,
		TitleEnglish: doc.TitleEnglish,
		Synopsis:     firstNonEmpty(doc.Synopsis, doc.Description),
		CoverImage:   doc.CoverImage,
		Rating:       copyFloat(doc.Rating),
		Popularity:   copyInt64(doc.Popularity),
		Genres:       copyStrings(doc.Genres),
		Score:        hit.Score,
		Highlight:    copyHighlight(hit.Highlight),
	}, nil
}

// FromRow 将关系记录映射为统一结果，关系库没有相关度，分数恒为 0
func FromRow(row *entity.CatalogRow) SearchResult {
	return SearchResult{
		Type:         row.Type,
		ID:           row.ID,
		Title:        row.Title,
		TitleEnglish: row.TitleEnglish,
		Synopsis:     firstNonEmpty(row.Synopsis, row.Description),
		CoverImage:   row.CoverImage,
		Rating:       copyFloat(row.Rating),
		Popularity:   copyInt64(row.Popularity),
		Genres:       copyStrings(row.Genres),
	}
}

// SuggestionFromOption 将补全候选映射为联想条目
func SuggestionFromOption(t entity.ContentType, opt SuggestOption) (SuggestionItem, error) {
	var doc Document
	if len(opt.Source) > 0 {
		if err := json.Unmarshal(opt.Source, &doc); err != nil {
			return SuggestionItem{}, fmt.Errorf("failed to decode %s suggestion %s: %w", t, opt.ID, err)
		}
	}
	return SuggestionItem{
		Type:         t,
		ID:           opt.ID,
		Title:        firstNonEmpty(doc.Title, opt.Text),
		TitleEnglish: doc.TitleEnglish,
		CoverImage:   doc.CoverImage,
		MediaType:    doc.MediaType,
	}, nil
}

// SuggestionFromRow 将关系记录映射为联想条目
func SuggestionFromRow(row *entity.CatalogRow) SuggestionItem {
	return SuggestionItem{
		Type:         row.Type,
		ID:           row.ID,
		Title:        row.Title,
		TitleEnglish: row.TitleEnglish,
		CoverImage:   row.CoverImage,
		MediaType:    row.MediaType,
	}
}

// sortRows 按排序键对跨类型记录做稳定排序
func sortRows(rows []*entity.CatalogRow, keys []repository.SortKey) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			// 缺失值无论升降序都排在最后
			mi, mj := isMissing(rows[i], k.Field), isMissing(rows[j], k.Field)
			if mi != mj {
				return mj
			}
			c := compareRows(rows[i], rows[j], k.Field)
			if c == 0 {
				continue
			}
			if k.Order == repository.SortOrderAsc {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func isMissing(r *entity.CatalogRow, f entity.Field) bool {
	switch f {
	case entity.FieldPopularity:
		return r.Popularity == nil
	case entity.FieldRating:
		return r.Rating == nil
	}
	return false
}

func compareRows(a, b *entity.CatalogRow, f entity.Field) int {
	switch f {
	case entity.FieldPopularity:
		return compareInt64Ptr(a.Popularity, b.Popularity)
	case entity.FieldRating:
		return compareFloatPtr(a.Rating, b.Rating)
	case entity.FieldCreated:
		return a.CreatedAt.Compare(b.CreatedAt)
	case entity.FieldUpdated:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case entity.FieldTitle:
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case entity.FieldID:
		return strings.Compare(a.ID, b.ID)
	}
	return 0
}

func compareInt64Ptr(a, b *int64) int {
	switch {
	case a == nil || b == nil:
		return 0
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}

func compareFloatPtr(a, b *float64) int {
	switch {
	case a == nil || b == nil:
		return 0
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func copyStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyHighlight(h map[string][]string) map[string][]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string][]string, len(h))
	for k, v := range h {
		out[k] = copyStrings(v)
	}
	return out
}
