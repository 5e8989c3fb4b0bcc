/*
 * @module service/database/migrate
 * @description 数据库迁移模块，负责创建和更新数仓各层表结构
 * @architecture 数据访问层 - 迁移管理
 * @documentReference dev_docs/model.md
 * @stateFlow 应用启动时执行数据库迁移
 * @rules 确保数据库结构与模型定义保持一致
 * @dependencies cricketdw-service/service/models, gorm.io/gorm
 * @refs service/init.go
 */

package database

import (
	"log"

	"cricketdw-service/service/models"

	"gorm.io/gorm"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB) error {
	log.Println("开始数据库迁移...")

	// 原始层与变更跟踪表
	err := db.AutoMigrate(
		&models.RawMatchRecord{},
		&models.IngestCursor{},
	)
	if err != nil {
		return err
	}

	// 清洗层表
	err = db.AutoMigrate(
		&models.CleanMatchDetail{},
		&models.CleanPlayerRoster{},
		&models.CleanDeliveryEvent{},
	)
	if err != nil {
		return err
	}

	// 消费层维度表
	err = db.AutoMigrate(
		&models.DimTeam{},
		&models.DimPlayer{},
		&models.DimVenue{},
		&models.DimMatchType{},
		&models.DimDate{},
	)
	if err != nil {
		return err
	}

	// 消费层事实表
	err = db.AutoMigrate(
		&models.FactMatch{},
		&models.FactDelivery{},
	)
	if err != nil {
		return err
	}

	// 管道调度表
	err = db.AutoMigrate(
		&models.PipelineStage{},
		&models.StageRun{},
	)
	if err != nil {
		return err
	}

	log.Println("数据库迁移完成")
	return nil
}
