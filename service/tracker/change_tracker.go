/*
 * @module service/tracker/change_tracker
 * @description 变更跟踪器，为每个下游消费者维护原始层/清洗层的增量消费游标
 * @architecture 分层数仓 - 增量跟踪层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 拉取游标之后的新增记录 -> 消费者处理成功 -> 推进游标
 * @rules 仅捕获追加写入，不存在更新与删除；游标在处理成功后才推进，至少一次语义
 * @dependencies cricketdw-service/service/models, gorm.io/gorm
 * @refs service/flatten, service/dimension, service/fact
 */

package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cricketdw-service/service/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChangeTracker 变更跟踪器
type ChangeTracker struct {
	db *gorm.DB
}

// NewChangeTracker 创建变更跟踪器实例
func NewChangeTracker(db *gorm.DB) *ChangeTracker {
	return &ChangeTracker{db: db}
}

// cursorFor 读取消费者游标，不存在时返回零值游标
func (t *ChangeTracker) cursorFor(ctx context.Context, consumerID string) (*models.IngestCursor, error) {
	var cursor models.IngestCursor
	err := t.db.WithContext(ctx).Where("consumer_id = ?", consumerID).First(&cursor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.IngestCursor{ConsumerID: consumerID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取消费游标失败 [%s]: %w", consumerID, err)
	}
	return &cursor, nil
}

// Poll 返回消费者游标之后追加的原始记录，按主键升序，并返回本批高水位
// 游标不在此处推进，消费者处理成功后必须调用 Advance
func (t *ChangeTracker) Poll(ctx context.Context, consumerID string) ([]models.RawMatchRecord, uint, error) {
	cursor, err := t.cursorFor(ctx, consumerID)
	if err != nil {
		return nil, 0, err
	}

	var records []models.RawMatchRecord
	if err := t.db.WithContext(ctx).
		Where("id > ?", cursor.LastRowID).
		Order("id ASC").
		Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("拉取增量原始记录失败 [%s]: %w", consumerID, err)
	}

	highWater := cursor.LastRowID
	if n := len(records); n > 0 {
		highWater = records[n-1].ID
	}
	return records, highWater, nil
}

// TableDelta 通用表级增量探测：返回消费者已消费到的偏移与来源表当前最大主键
// 供只读清洗层的维度/事实阶段做"有无新数据"的守卫判断
func (t *ChangeTracker) TableDelta(ctx context.Context, consumerID, table string) (last uint, max uint, err error) {
	cursor, err := t.cursorFor(ctx, consumerID)
	if err != nil {
		return 0, 0, err
	}

	var maxID *uint
	row := t.db.WithContext(ctx).Table(table).Select("MAX(id)").Row()
	if err := row.Scan(&maxID); err != nil {
		return 0, 0, fmt.Errorf("探测来源表最大偏移失败 [%s]: %w", table, err)
	}
	if maxID != nil {
		max = *maxID
	}
	return cursor.LastRowID, max, nil
}

// HasNew 消费者的来源表是否有未消费的新增记录
func (t *ChangeTracker) HasNew(ctx context.Context, consumerID, table string) (bool, uint, error) {
	last, max, err := t.TableDelta(ctx, consumerID, table)
	if err != nil {
		return false, 0, err
	}
	return max > last, max, nil
}

// Advance 将消费者游标推进到指定偏移，仅在消费者处理成功后调用
func (t *ChangeTracker) Advance(ctx context.Context, consumerID, sourceTable string, upTo uint) error {
	cursor, err := t.cursorFor(ctx, consumerID)
	if err != nil {
		return err
	}
	if upTo < cursor.LastRowID {
		return fmt.Errorf("游标不允许回退 [%s]: %d -> %d", consumerID, cursor.LastRowID, upTo)
	}

	cursor.SourceTable = sourceTable
	cursor.LastRowID = upTo
	cursor.UpdatedAt = time.Now()
	if err := t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "consumer_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"source_table", "last_row_id", "updated_at"}),
	}).Create(cursor).Error; err != nil {
		return fmt.Errorf("推进消费游标失败 [%s]: %w", consumerID, err)
	}
	return nil
}
