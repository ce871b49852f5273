package search

import (
	"math"
	"strings"
	"time"

	"catalog-search-api/internal/domain/entity"
)

// Document 索引文档，所有类型共用同一结构
type Document struct {
	Type          entity.ContentType `json:"type"`
	ID            string             `json:"id"`
	Title         string             `json:"title"`
	TitleEnglish  string             `json:"titleEnglish,omitempty"`
	TitleRomaji   string             `json:"titleRomaji,omitempty"`
	TitleJapanese string             `json:"titleJapanese,omitempty"`
	Synopsis      string             `json:"synopsis,omitempty"`
	Description   string             `json:"description,omitempty"`
	CoverImage    string             `json:"coverImage,omitempty"`
	MediaType     string             `json:"mediaType,omitempty"`
	Status        string             `json:"status,omitempty"`
	Rating        *float64           `json:"rating,omitempty"`
	Popularity    *int64             `json:"popularity,omitempty"`
	Genres        []string           `json:"genres"`
	Tags          []string           `json:"tags"`
	Year          *int               `json:"year,omitempty"`
	Adult         bool               `json:"adult"`
	Episodes      *int               `json:"episodes,omitempty"`
	Duration      *int               `json:"duration,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
	Suggest       *Completion        `json:"suggest,omitempty"`
}

// Completion completion 类型字段
type Completion struct {
	Input  []string `json:"input"`
	Weight int      `json:"weight,omitempty"`
}

// suggestibleTypes 拥有补全字段的类型，用户资料没有对应的联想器
var suggestibleTypes = []entity.ContentType{
	entity.ContentTypeAnime,
	entity.ContentTypeManga,
	entity.ContentTypeCharacters,
	entity.ContentTypeNovels,
}

func hasSuggester(t entity.ContentType) bool {
	for _, s := range suggestibleTypes {
		if s == t {
			return true
		}
	}
	return false
}

// DocumentFromRow 由关系记录构造索引文档
func DocumentFromRow(row *entity.CatalogRow) *Document {
	doc := &Document{
		Type:          row.Type,
		ID:            row.ID,
		Title:         row.Title,
		TitleEnglish:  row.TitleEnglish,
		TitleRomaji:   row.TitleRomaji,
		TitleJapanese: row.TitleJapanese,
		Synopsis:      row.Synopsis,
		Description:   row.Description,
		CoverImage:    row.CoverImage,
		MediaType:     row.MediaType,
		Status:        row.Status,
		Rating:        row.Rating,
		Popularity:    row.Popularity,
		Genres:        nonNil(row.Genres),
		Tags:          nonNil(row.Tags),
		Year:          row.Year,
		Adult:         row.Adult,
		Episodes:      row.Episodes,
		Duration:      row.Duration,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}

	if hasSuggester(row.Type) {
		doc.Suggest = &Completion{
			Input:  suggestInputs(row),
			Weight: suggestWeight(row.Popularity),
		}
	}
	return doc
}

func suggestInputs(row *entity.CatalogRow) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range []string{row.Title, row.TitleEnglish, row.TitleRomaji, row.TitleJapanese} {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

// suggestWeight completion 权重必须是非负 int32
func suggestWeight(popularity *int64) int {
	if popularity == nil || *popularity <= 0 {
		return 0
	}
	if *popularity > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(*popularity)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
