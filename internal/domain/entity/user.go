// Package entity 定义领域实体
package entity

import (
	"time"
)

// UserRole 用户角色，由上游认证服务写入 JWT
type UserRole string

const (
	UserRoleSuperAdmin UserRole = "super_admin"
	UserRoleAdmin      UserRole = "admin"
	UserRoleModerator  UserRole = "moderator"
	UserRoleUser       UserRole = "user"
)

// CanReindex 检查角色是否可以手动重建索引
func (r UserRole) CanReindex() bool {
	return r == UserRoleAdmin || r == UserRoleSuperAdmin
}

// User 可被搜索的公开用户资料
type User struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Username    string    `json:"username" gorm:"type:varchar(64);uniqueIndex;not null"`
	DisplayName string    `json:"display_name,omitempty" gorm:"type:varchar(255)"`
	Bio         string    `json:"bio,omitempty" gorm:"type:text"`
	AvatarURL   string    `json:"avatar_url,omitempty" gorm:"type:text"`
	Role        UserRole  `json:"role" gorm:"type:varchar(32);default:'user'"`
	Followers   int64     `json:"followers" gorm:"default:0;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// ToRow 转换为统一目录视图
func (u *User) ToRow() *CatalogRow {
	return &CatalogRow{
		Type:         ContentTypeUsers,
		ID:           u.ID,
		Title:        u.Username,
		TitleEnglish: u.DisplayName,
		Description:  u.Bio,
		CoverImage:   u.AvatarURL,
		Popularity:   int64Ptr(u.Followers),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
