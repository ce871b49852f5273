package search

import (
	"strings"

	"catalog-search-api/internal/domain/entity"
)

// IndexNames 类型与索引名之间的映射，索引名形如 <prefix>_<type>
type IndexNames struct {
	prefix string
}

// NewIndexNames 创建索引名映射
func NewIndexNames(prefix string) IndexNames {
	return IndexNames{prefix: strings.Trim(strings.TrimSpace(prefix), "_")}
}

// For 返回具体类型的索引名
func (n IndexNames) For(t entity.ContentType) string {
	if n.prefix == "" {
		return string(t)
	}
	return n.prefix + "_" + string(t)
}

// ForAll 返回一组类型的索引名
func (n IndexNames) ForAll(types []entity.ContentType) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, n.For(t))
	}
	return out
}

// TypeOf 由索引名反查类型，兼容带版本后缀的实际索引名（如 catalog_anime_v2）
func (n IndexNames) TypeOf(index string) (entity.ContentType, bool) {
	for _, t := range entity.ConcreteTypes() {
		name := n.For(t)
		if index == name || strings.HasPrefix(index, name+"_") {
			return t, true
		}
	}
	return "", false
}
