/*
 * @module service/models/pipeline
 * @description 管道调度模型，阶段配置状态与每次执行的运行记录
 * @architecture 依赖图调度 - 阶段实体
 * @documentReference dev_docs/model.md
 * @stateFlow 阶段创建(挂起) -> 激活(已调度) -> 执行中 -> 成功/失败 -> 挂起
 * @rules 激活必须先下游后上游；失败不自动重试，等待下一个调度周期
 * @dependencies gorm.io/gorm
 * @refs service/scheduler
 */

package models

import (
	"time"

	"cricketdw-service/service/meta"
)

// PipelineStage 管道阶段，一个依赖图节点的持久化状态
type PipelineStage struct {
	StageName     string           `json:"stage_name" gorm:"primaryKey;size:64" example:"clean_delivery"`
	CronExpr      string           `json:"cron_expr" gorm:"not null;size:64" example:"0 */5 * * * *"`
	DependsOn     JSONBStringArray `json:"depends_on" gorm:"type:jsonb"`
	Status        string           `json:"status" gorm:"not null;size:16;default:suspended" example:"scheduled"`
	LastRunAt     *time.Time       `json:"last_run_at,omitempty"`
	LastSuccessAt *time.Time       `json:"last_success_at,omitempty"`
	LastError     string           `json:"last_error" gorm:"type:text"`
	RunCount      int64            `json:"run_count" gorm:"not null;default:0"`
	FailCount     int64            `json:"fail_count" gorm:"not null;default:0"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// TableName 指定表名
func (PipelineStage) TableName() string {
	return "pipeline_stages"
}

// IsActive 阶段是否已激活（非挂起即视为参与调度）
func (s *PipelineStage) IsActive() bool {
	return s.Status != meta.StageStatusSuspended
}

// CanRun 阶段当前是否允许触发执行
func (s *PipelineStage) CanRun() bool {
	switch s.Status {
	case meta.StageStatusScheduled, meta.StageStatusSucceeded, meta.StageStatusFailed:
		return true
	default:
		return false
	}
}

// StageRun 阶段运行记录，保存单次执行的行数统计与逐记录错误列表
type StageRun struct {
	ID            string           `json:"id" gorm:"primaryKey;type:varchar(36)" example:"550e8400-e29b-41d4-a716-446655440000"`
	StageName     string           `json:"stage_name" gorm:"not null;size:64;index"`
	Status        string           `json:"status" gorm:"not null;size:16" example:"succeeded"`
	StartedAt     time.Time        `json:"started_at" gorm:"not null"`
	FinishedAt    *time.Time       `json:"finished_at,omitempty"`
	ProcessedRows int64            `json:"processed_rows" gorm:"not null;default:0"`
	Message       string           `json:"message" gorm:"type:text"`
	Errors        JSONBStringArray `json:"errors" gorm:"type:jsonb"`
}

// TableName 指定表名
func (StageRun) TableName() string {
	return "stage_runs"
}
