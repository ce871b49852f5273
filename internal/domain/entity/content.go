// Package entity 定义领域实体
package entity

import (
	"time"
)

// ContentType 目录内容类型
type ContentType string

const (
	ContentTypeAll        ContentType = "all"
	ContentTypeAnime      ContentType = "anime"
	ContentTypeManga      ContentType = "manga"
	ContentTypeCharacters ContentType = "characters"
	ContentTypeUsers      ContentType = "users"
	ContentTypeNovels     ContentType = "novels"
)

// concreteTypes 具体类型的固定顺序，合并结果时按此顺序拼接
var concreteTypes = []ContentType{
	ContentTypeAnime,
	ContentTypeManga,
	ContentTypeCharacters,
	ContentTypeUsers,
	ContentTypeNovels,
}

// ConcreteTypes 返回全部具体类型（不含 all）
func ConcreteTypes() []ContentType {
	out := make([]ContentType, len(concreteTypes))
	copy(out, concreteTypes)
	return out
}

// IsValid 检查类型是否合法
func (t ContentType) IsValid() bool {
	return t == ContentTypeAll || t.IsConcrete()
}

// IsConcrete 检查是否为具体类型
func (t ContentType) IsConcrete() bool {
	for _, c := range concreteTypes {
		if c == t {
			return true
		}
	}
	return false
}

// Expand 将 all 展开为全部具体类型
func (t ContentType) Expand() []ContentType {
	if t == ContentTypeAll {
		return ConcreteTypes()
	}
	return []ContentType{t}
}

// Field 逻辑字段名，与索引文档字段一致
type Field string

const (
	FieldTitle         Field = "title"
	FieldTitleEnglish  Field = "titleEnglish"
	FieldTitleRomaji   Field = "titleRomaji"
	FieldTitleJapanese Field = "titleJapanese"
	FieldSynopsis      Field = "synopsis"
	FieldDescription   Field = "description"
	FieldGenres        Field = "genres"
	FieldTags          Field = "tags"
	FieldYear          Field = "year"
	FieldStatus        Field = "status"
	FieldRating        Field = "rating"
	FieldPopularity    Field = "popularity"
	FieldAdult         Field = "adult"
	FieldEpisodes      Field = "episodes"
	FieldDuration      Field = "duration"
	FieldCreated       Field = "createdAt"
	FieldUpdated       Field = "updatedAt"
	FieldID            Field = "id"
)

// mediaFields 番剧/漫画/小说共有的字段
var mediaFields = []Field{
	FieldID, FieldTitle, FieldTitleEnglish, FieldGenres, FieldTags, FieldYear,
	FieldStatus, FieldRating, FieldPopularity, FieldAdult, FieldCreated, FieldUpdated,
}

var typeFields = map[ContentType][]Field{
	ContentTypeAnime: append([]Field{FieldTitleRomaji, FieldTitleJapanese, FieldSynopsis, FieldEpisodes, FieldDuration}, mediaFields...),
	ContentTypeManga: append([]Field{FieldTitleRomaji, FieldTitleJapanese, FieldSynopsis}, mediaFields...),
	ContentTypeNovels: append([]Field{FieldDescription}, mediaFields...),
	ContentTypeCharacters: {
		FieldID, FieldTitle, FieldTitleJapanese, FieldDescription, FieldPopularity, FieldCreated, FieldUpdated,
	},
	ContentTypeUsers: {
		FieldID, FieldTitle, FieldTitleEnglish, FieldDescription, FieldPopularity, FieldCreated, FieldUpdated,
	},
}

// textFields 子串匹配使用的文本字段
var textFields = map[ContentType][]Field{
	ContentTypeAnime:      {FieldTitle, FieldTitleEnglish, FieldTitleRomaji, FieldTitleJapanese, FieldSynopsis},
	ContentTypeManga:      {FieldTitle, FieldTitleEnglish, FieldTitleRomaji, FieldTitleJapanese, FieldSynopsis},
	ContentTypeNovels:     {FieldTitle, FieldTitleEnglish, FieldDescription},
	ContentTypeCharacters: {FieldTitle, FieldTitleJapanese, FieldDescription},
	ContentTypeUsers:      {FieldTitle, FieldTitleEnglish, FieldDescription},
}

// Supports 检查该类型是否存在指定字段
func (t ContentType) Supports(f Field) bool {
	for _, have := range typeFields[t] {
		if have == f {
			return true
		}
	}
	return false
}

// TextFields 返回该类型参与全文子串匹配的字段
func (t ContentType) TextFields() []Field {
	return textFields[t]
}

// PrefixFields 返回该类型联想前缀匹配的字段
func (t ContentType) PrefixFields() []Field {
	if t.Supports(FieldTitleEnglish) {
		return []Field{FieldTitle, FieldTitleEnglish}
	}
	return []Field{FieldTitle}
}

// statuses 每种类型的状态枚举
var statuses = map[ContentType][]string{
	ContentTypeAnime:  {"airing", "finished", "not_yet_aired", "cancelled", "hiatus"},
	ContentTypeManga:  {"publishing", "finished", "not_yet_published", "cancelled", "hiatus"},
	ContentTypeNovels: {"ongoing", "completed", "hiatus", "dropped"},
}

// Statuses 返回类型的状态枚举；all 返回并集
func (t ContentType) Statuses() []string {
	if t != ContentTypeAll {
		return append([]string(nil), statuses[t]...)
	}
	seen := make(map[string]struct{})
	var out []string
	for _, ct := range concreteTypes {
		for _, s := range statuses[ct] {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// 评分区间
const (
	RatingMin = 0.0
	RatingMax = 10.0
)

// CatalogRow 关系库中一条目录记录的统一视图
type CatalogRow struct {
	Type          ContentType
	ID            string
	Title         string
	TitleEnglish  string
	TitleRomaji   string
	TitleJapanese string
	Synopsis      string
	Description   string
	CoverImage    string
	MediaType     string
	Status        string
	Rating        *float64
	Popularity    *int64
	Genres        []string
	Tags          []string
	Year          *int
	Adult         bool
	Episodes      *int
	Duration      *int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// YearRange 跨类型的年份范围
type YearRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}
