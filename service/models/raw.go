/*
 * @module service/models/raw
 * @description 原始层数据模型，保存入湖的半结构化比赛文档及其血缘信息
 * @architecture 分层数仓 - 原始层
 * @documentReference dev_docs/model.md
 * @stateFlow 落地文件解析成功 -> 追加写入原始表 -> 下游增量消费，永不更新或删除
 * @rules 原始记录不可变，自增主键同时作为变更跟踪的偏移量
 * @dependencies gorm.io/gorm
 * @refs service/ingest, service/tracker
 */

package models

import (
	"time"
)

// RawMatchRecord 原始比赛记录，一条对应一个成功解析的落地文件
type RawMatchRecord struct {
	ID          uint              `json:"id" gorm:"primaryKey;autoIncrement"`
	MatchID     string            `json:"match_id" gorm:"not null;size:128;index" example:"1448347"`
	Meta        JSONB             `json:"meta" gorm:"type:jsonb"`
	Info        JSONB             `json:"info" gorm:"type:jsonb"`
	Innings     JSONBGenericArray `json:"innings" gorm:"type:jsonb"`
	SourceFile  string            `json:"source_file" gorm:"not null;size:512;index" example:"1448347.json"`
	RowNumber   int               `json:"row_number" gorm:"not null"`
	ContentHash string            `json:"content_hash" gorm:"not null;size:64;uniqueIndex" example:"9f86d081884c7d65..."`
	IngestedAt  time.Time         `json:"ingested_at" gorm:"not null"`
}

// TableName 指定表名
func (RawMatchRecord) TableName() string {
	return "raw_match_records"
}

// IngestCursor 变更跟踪游标，记录每个下游消费者已消费到的原始层偏移
type IngestCursor struct {
	ConsumerID  string    `json:"consumer_id" gorm:"primaryKey;size:64" example:"clean_match"`
	SourceTable string    `json:"source_table" gorm:"not null;size:64" example:"raw_match_records"`
	LastRowID   uint      `json:"last_row_id" gorm:"not null;default:0"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (IngestCursor) TableName() string {
	return "ingest_cursors"
}
