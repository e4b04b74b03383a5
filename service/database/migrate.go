/*
 * @module service/database/migrate
 * @description 数据库迁移模块，负责创建和更新数据库表结构
 * @architecture 数据访问层 - 迁移管理
 * @documentReference ai_docs/model.md
 * @stateFlow 应用启动时执行数据库迁移
 * @rules 确保数据库结构与模型定义保持一致
 * @dependencies datagov-service/service/models, gorm.io/gorm
 * @refs ai_docs/backend_requirements.md
 */

package database

import (
	"log"

	"datagov-service/service/models"

	"gorm.io/gorm"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB) error {
	log.Println("开始数据库迁移...")

	// 数据目录相关表
	if err := db.AutoMigrate(
		&models.Dataset{},
		&models.LineageEdge{},
	); err != nil {
		return err
	}

	// 数据质量相关表
	if err := db.AutoMigrate(
		&models.QualityRule{},
		&models.QualityRuleExecution{},
	); err != nil {
		return err
	}

	// 审计相关表
	if err := db.AutoMigrate(
		&models.SensitiveAccessLog{},
	); err != nil {
		return err
	}

	log.Println("数据库迁移完成")
	return nil
}
