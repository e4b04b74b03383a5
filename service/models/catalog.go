/*
 * @module service/models/catalog
 * @description 数据目录模型定义，数据集作为质量规则与敏感访问日志的挂载对象
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/model.md
 * @stateFlow 数据集注册 -> 规则挂载 -> 质量检测 -> 下线
 * @rules 数据集名称即底层物理表名，敏感级别决定是否记录访问日志
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs quality.go, audit.go
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 数据集敏感级别
const (
	SensitivityPublic    = "PUBLIC"
	SensitivityInternal  = "INTERNAL"
	SensitivitySensitive = "SENSITIVE"
	SensitivityPII       = "PII"
	SensitivityPHI       = "PHI"
)

// Dataset 数据集模型，目录中的一张受管物理表
type Dataset struct {
	ID              string           `gorm:"type:uuid;primary_key" json:"id"`
	Name            string           `gorm:"not null;uniqueIndex;size:100" json:"name"` // 底层物理表名
	DisplayName     string           `gorm:"size:200" json:"display_name"`
	Description     string           `gorm:"type:text" json:"description"`
	Domain          string           `gorm:"size:100" json:"domain"` // 业务域，如 clinical/community/billing
	Sensitivity     string           `gorm:"not null;default:'INTERNAL';size:20" json:"sensitivity"`
	OwnerTeam       string           `gorm:"size:100" json:"owner_team"`
	RetentionPolicy string           `gorm:"size:200" json:"retention_policy"`
	Tags            JSONBStringArray `gorm:"type:jsonb" json:"tags"`
	// 不能带列默认值：gorm建插入语句时会跳过零值字段，显式的false会被默认值吞掉
	IsActive        bool             `gorm:"not null" json:"is_active"`
	CreatedAt       time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy       string           `gorm:"not null;default:'system';size:100" json:"created_by"`
	UpdatedAt       time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy       string           `gorm:"not null;default:'system';size:100" json:"updated_by"`
}

// BeforeCreate 创建前钩子
func (d *Dataset) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.Sensitivity == "" {
		d.Sensitivity = SensitivityInternal
	}
	if d.CreatedBy == "" {
		d.CreatedBy = "system"
	}
	if d.UpdatedBy == "" {
		d.UpdatedBy = "system"
	}
	return nil
}

// BeforeUpdate 更新前钩子
func (d *Dataset) BeforeUpdate(tx *gorm.DB) error {
	if d.UpdatedBy == "" {
		d.UpdatedBy = "system"
	}
	return nil
}

// IsProtected 判断数据集是否属于受保护的敏感级别（PII/PHI），读取时必须留痕
func (d *Dataset) IsProtected() bool {
	return d.Sensitivity == SensitivityPII || d.Sensitivity == SensitivityPHI
}

// TableName 指定表名
func (Dataset) TableName() string {
	return "datasets"
}
