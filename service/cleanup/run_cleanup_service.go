/*
 * @module service/cleanup/run_cleanup_service
 * @description 运行记录清理服务，负责定期清理过期的管道阶段运行记录
 * @architecture 分层架构 - 业务服务层
 * @stateFlow 定时触发 -> 读取保留天数 -> 执行清理 -> 记录结果
 * @rules 确保运行记录清理不影响管道正常调度
 * @dependencies gorm.io/gorm, github.com/robfig/cron/v3
 * @refs service/scheduler/pipeline_scheduler.go
 */

package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"cricketdw-service/service/models"
)

// DefaultStageRunRetentionDays 阶段运行记录默认保留天数
const DefaultStageRunRetentionDays = 30

// RunCleanupService 运行记录清理服务
type RunCleanupService struct {
	db      *gorm.DB
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// NewRunCleanupService 创建运行记录清理服务实例
func NewRunCleanupService(db *gorm.DB) *RunCleanupService {
	ctx, cancel := context.WithCancel(context.Background())

	return &RunCleanupService{
		db:      db,
		cron:    cron.New(cron.WithSeconds()),
		ctx:     ctx,
		cancel:  cancel,
		started: false,
	}
}

// retentionDays 读取保留天数配置
func (s *RunCleanupService) retentionDays() int {
	if value := os.Getenv("STAGE_RUN_RETENTION_DAYS"); value != "" {
		if days, err := strconv.Atoi(value); err == nil && days > 0 {
			return days
		}
		slog.Error("STAGE_RUN_RETENTION_DAYS配置无效，使用默认值", "value", value)
	}
	return DefaultStageRunRetentionDays
}

// CleanupExpiredRuns 清理过期的阶段运行记录
func (s *RunCleanupService) CleanupExpiredRuns(ctx context.Context) error {
	slog.Info("开始清理过期运行记录")
	startTime := time.Now()

	retentionDays := s.retentionDays()
	cutoffDate := time.Now().AddDate(0, 0, -retentionDays)

	slog.Debug("清理阶段运行记录", "cutoff_date", cutoffDate.Format("2006-01-02 15:04:05"), "retention_days", retentionDays)

	result := s.db.WithContext(ctx).Where("started_at < ?", cutoffDate).Delete(&models.StageRun{})
	if result.Error != nil {
		return fmt.Errorf("删除阶段运行记录失败: %w", result.Error)
	}

	duration := time.Since(startTime)
	slog.Info("运行记录清理完成",
		"deleted_count", result.RowsAffected,
		"retention_days", retentionDays,
		"duration_ms", duration.Milliseconds())

	return nil
}

// StartScheduledCleanup 启动定时清理任务
func (s *RunCleanupService) StartScheduledCleanup() error {
	if s.started {
		return fmt.Errorf("运行记录清理调度器已经启动")
	}

	slog.Info("启动运行记录清理调度器")

	// 每天凌晨2点执行清理任务
	// Cron表达式：秒 分 时 日 月 周
	_, err := s.cron.AddFunc("0 0 2 * * *", func() {
		slog.Info("开始执行定时运行记录清理任务")

		if err := s.CleanupExpiredRuns(s.ctx); err != nil {
			slog.Error("定时运行记录清理任务失败", "error", err)
		}
	})

	if err != nil {
		return fmt.Errorf("添加定时任务失败: %w", err)
	}

	s.cron.Start()
	s.started = true

	slog.Info("运行记录清理调度器启动成功，将于每天凌晨2点执行清理任务")

	// 启动时立即执行一次清理
	go func() {
		slog.Info("执行首次运行记录清理")
		if err := s.CleanupExpiredRuns(s.ctx); err != nil {
			slog.Error("首次运行记录清理失败", "error", err)
		}
	}()

	return nil
}

// StopScheduledCleanup 停止定时清理任务
func (s *RunCleanupService) StopScheduledCleanup() {
	if !s.started {
		return
	}

	slog.Info("停止运行记录清理调度器")

	s.cancel()

	if s.cron != nil {
		s.cron.Stop()
	}

	s.started = false

	slog.Info("运行记录清理调度器已停止")
}
