package search

import (
	"errors"
	"fmt"
	"strings"

	"catalog-search-api/internal/domain/entity"
)

// ErrAggregationsUnavailable 高级搜索的聚合无法由关系查询等价复现
var ErrAggregationsUnavailable = errors.New("search aggregations require the index backend")

// FieldError 单个字段的校验错误
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError 汇总全部字段错误
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add 追加字段错误
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil 没有字段错误时返回 nil
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// IndexUnavailableError 索引后端不可用（探测失败或未配置）
type IndexUnavailableError struct {
	Err error
}

func (e *IndexUnavailableError) Error() string {
	if e.Err != nil {
		return "search index unavailable: " + e.Err.Error()
	}
	return "search index unavailable"
}

func (e *IndexUnavailableError) Unwrap() error {
	return e.Err
}

// IndexQueryError 索引后端执行查询时出错
type IndexQueryError struct {
	Index  string
	Clause string
	Err    error
}

func (e *IndexQueryError) Error() string {
	return fmt.Sprintf("index query on %s failed [%s]: %v", e.Index, e.Clause, e.Err)
}

func (e *IndexQueryError) Unwrap() error {
	return e.Err
}

// EntityNotFoundError 目录实体不存在
type EntityNotFoundError struct {
	Type entity.ContentType
	ID   string
}

func (e *EntityNotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Type, e.ID)
}

// AuthorizationError 调用方角色无权执行操作
type AuthorizationError struct {
	Role   string
	Action string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("role %q is not allowed to %s", e.Role, e.Action)
}
