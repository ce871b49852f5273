// Package entity 定义领域实体
package entity

import (
	"time"
)

// Genre 类型词表
type Genre struct {
	ID   int64  `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	Slug string `json:"slug" gorm:"type:varchar(100);uniqueIndex;not null"`
}

// TableName 指定表名
func (Genre) TableName() string {
	return "genres"
}

// Tag 标签词表
type Tag struct {
	ID       int64  `json:"id" gorm:"primaryKey"`
	Name     string `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	Category string `json:"category,omitempty" gorm:"type:varchar(100)"`
	Adult    bool   `json:"adult" gorm:"default:false"`
}

// TableName 指定表名
func (Tag) TableName() string {
	return "tags"
}

// Anime 番剧
type Anime struct {
	ID            string     `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title         string     `json:"title" gorm:"type:varchar(255);not null"`
	TitleEnglish  string     `json:"title_english,omitempty" gorm:"type:varchar(255)"`
	TitleRomaji   string     `json:"title_romaji,omitempty" gorm:"type:varchar(255)"`
	TitleJapanese string     `json:"title_japanese,omitempty" gorm:"type:varchar(255)"`
	Synopsis      string     `json:"synopsis,omitempty" gorm:"type:text"`
	CoverImage    string     `json:"cover_image,omitempty" gorm:"type:text"`
	MediaType     string     `json:"media_type,omitempty" gorm:"type:varchar(50)"`
	Status        string     `json:"status,omitempty" gorm:"type:varchar(50);index"`
	Rating        *float64   `json:"rating,omitempty" gorm:"type:numeric(4,2)"`
	Popularity    int64      `json:"popularity" gorm:"default:0;index"`
	Episodes      *int       `json:"episodes,omitempty"`
	Duration      *int       `json:"duration,omitempty"`
	StartDate     *time.Time `json:"start_date,omitempty" gorm:"type:date;index"`
	Adult         bool       `json:"adult" gorm:"default:false"`
	Genres        []Genre    `json:"genres,omitempty" gorm:"many2many:anime_genres"`
	Tags          []Tag      `json:"tags,omitempty" gorm:"many2many:anime_tags"`
	CreatedAt     time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Anime) TableName() string {
	return "anime"
}

// ToRow 转换为统一目录视图
func (a *Anime) ToRow() *CatalogRow {
	return &CatalogRow{
		Type:          ContentTypeAnime,
		ID:            a.ID,
		Title:         a.Title,
		TitleEnglish:  a.TitleEnglish,
		TitleRomaji:   a.TitleRomaji,
		TitleJapanese: a.TitleJapanese,
		Synopsis:      a.Synopsis,
		CoverImage:    a.CoverImage,
		MediaType:     a.MediaType,
		Status:        a.Status,
		Rating:        a.Rating,
		Popularity:    int64Ptr(a.Popularity),
		Genres:        genreNames(a.Genres),
		Tags:          tagNames(a.Tags),
		Year:          yearOf(a.StartDate),
		Adult:         a.Adult,
		Episodes:      a.Episodes,
		Duration:      a.Duration,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// Manga 漫画
type Manga struct {
	ID            string     `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title         string     `json:"title" gorm:"type:varchar(255);not null"`
	TitleEnglish  string     `json:"title_english,omitempty" gorm:"type:varchar(255)"`
	TitleRomaji   string     `json:"title_romaji,omitempty" gorm:"type:varchar(255)"`
	TitleJapanese string     `json:"title_japanese,omitempty" gorm:"type:varchar(255)"`
	Synopsis      string     `json:"synopsis,omitempty" gorm:"type:text"`
	CoverImage    string     `json:"cover_image,omitempty" gorm:"type:text"`
	MediaType     string     `json:"media_type,omitempty" gorm:"type:varchar(50)"`
	Status        string     `json:"status,omitempty" gorm:"type:varchar(50);index"`
	Rating        *float64   `json:"rating,omitempty" gorm:"type:numeric(4,2)"`
	Popularity    int64      `json:"popularity" gorm:"default:0;index"`
	Chapters      *int       `json:"chapters,omitempty"`
	Volumes       *int       `json:"volumes,omitempty"`
	StartDate     *time.Time `json:"start_date,omitempty" gorm:"type:date;index"`
	Adult         bool       `json:"adult" gorm:"default:false"`
	Genres        []Genre    `json:"genres,omitempty" gorm:"many2many:manga_genres"`
	Tags          []Tag      `json:"tags,omitempty" gorm:"many2many:manga_tags"`
	CreatedAt     time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Manga) TableName() string {
	return "manga"
}

// ToRow 转换为统一目录视图
func (m *Manga) ToRow() *CatalogRow {
	return &CatalogRow{
		Type:          ContentTypeManga,
		ID:            m.ID,
		Title:         m.Title,
		TitleEnglish:  m.TitleEnglish,
		TitleRomaji:   m.TitleRomaji,
		TitleJapanese: m.TitleJapanese,
		Synopsis:      m.Synopsis,
		CoverImage:    m.CoverImage,
		MediaType:     m.MediaType,
		Status:        m.Status,
		Rating:        m.Rating,
		Popularity:    int64Ptr(m.Popularity),
		Genres:        genreNames(m.Genres),
		Tags:          tagNames(m.Tags),
		Year:          yearOf(m.StartDate),
		Adult:         m.Adult,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// Novel 轻小说/网文
type Novel struct {
	ID           string     `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title        string     `json:"title" gorm:"type:varchar(255);not null"`
	TitleEnglish string     `json:"title_english,omitempty" gorm:"type:varchar(255)"`
	Description  string     `json:"description,omitempty" gorm:"type:text"`
	CoverImage   string     `json:"cover_image,omitempty" gorm:"type:text"`
	Status       string     `json:"status,omitempty" gorm:"type:varchar(50);index"`
	Rating       *float64   `json:"rating,omitempty" gorm:"type:numeric(4,2)"`
	Popularity   int64      `json:"popularity" gorm:"default:0;index"`
	Chapters     *int       `json:"chapters,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty" gorm:"type:date;index"`
	Adult        bool       `json:"adult" gorm:"default:false"`
	Genres       []Genre    `json:"genres,omitempty" gorm:"many2many:novel_genres"`
	Tags         []Tag      `json:"tags,omitempty" gorm:"many2many:novel_tags"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Novel) TableName() string {
	return "novels"
}

// ToRow 转换为统一目录视图
func (n *Novel) ToRow() *CatalogRow {
	return &CatalogRow{
		Type:         ContentTypeNovels,
		ID:           n.ID,
		Title:        n.Title,
		TitleEnglish: n.TitleEnglish,
		Description:  n.Description,
		CoverImage:   n.CoverImage,
		MediaType:    "novel",
		Status:       n.Status,
		Rating:       n.Rating,
		Popularity:   int64Ptr(n.Popularity),
		Genres:       genreNames(n.Genres),
		Tags:         tagNames(n.Tags),
		Year:         yearOf(n.PublishedAt),
		Adult:        n.Adult,
		CreatedAt:    n.CreatedAt,
		UpdatedAt:    n.UpdatedAt,
	}
}

// Character 角色
type Character struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	NameNative  string    `json:"name_native,omitempty" gorm:"type:varchar(255)"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	Image       string    `json:"image,omitempty" gorm:"type:text"`
	Favourites  int64     `json:"favourites" gorm:"default:0;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Character) TableName() string {
	return "characters"
}

// ToRow 转换为统一目录视图
func (c *Character) ToRow() *CatalogRow {
	return &CatalogRow{
		Type:          ContentTypeCharacters,
		ID:            c.ID,
		Title:         c.Name,
		TitleJapanese: c.NameNative,
		Description:   c.Description,
		CoverImage:    c.Image,
		Popularity:    int64Ptr(c.Favourites),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func int64Ptr(v int64) *int64 {
	return &v
}

func yearOf(t *time.Time) *int {
	if t == nil || t.IsZero() {
		return nil
	}
	y := t.Year()
	return &y
}

func genreNames(genres []Genre) []string {
	out := make([]string, 0, len(genres))
	for _, g := range genres {
		out = append(out, g.Name)
	}
	return out
}

func tagNames(tags []Tag) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.Name)
	}
	return out
}
