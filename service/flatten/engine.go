/*
 * @module service/flatten/engine
 * @description 展平引擎编排器，按消费者增量拉取原始记录并写入清洗层
 * @architecture 分层数仓 - 展平引擎编排
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 拉取增量 -> 展平 -> 自然键去重 -> 事务写入 -> 推进游标
 * @rules 游标在写入成功后才推进；重放增量依赖写入侧自然键去重保证幂等
 * @dependencies cricketdw-service/service/tracker, cricketdw-service/service/models, gorm.io/gorm
 * @refs service/scheduler
 */

package flatten

import (
	"context"
	"fmt"
	"log"

	"cricketdw-service/service/meta"
	"cricketdw-service/service/models"
	"cricketdw-service/service/tracker"

	"gorm.io/gorm"
)

// Engine 展平引擎
type Engine struct {
	db      *gorm.DB
	tracker *tracker.ChangeTracker
}

// NewEngine 创建展平引擎实例
func NewEngine(db *gorm.DB, changeTracker *tracker.ChangeTracker) *Engine {
	return &Engine{db: db, tracker: changeTracker}
}

// SyncOutcome 单次展平同步的结果
type SyncOutcome struct {
	Processed int64    `json:"processed"`
	Skipped   bool     `json:"skipped"`
	Errors    []string `json:"errors,omitempty"`
}

// SyncMatchDetails 增量同步比赛明细
func (e *Engine) SyncMatchDetails(ctx context.Context) (*SyncOutcome, error) {
	records, highWater, err := e.tracker.Poll(ctx, meta.ConsumerCleanMatch)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &SyncOutcome{Skipped: true}, nil
	}

	outcome := &SyncOutcome{}
	var candidates []models.CleanMatchDetail
	seen := make(map[string]bool)
	for idx := range records {
		rec := &records[idx]
		detail, warnings := BuildMatchDetail(rec)
		outcome.Errors = append(outcome.Errors, warnings...)
		if detail.MatchID == "" || seen[detail.MatchID] {
			continue
		}
		seen[detail.MatchID] = true
		candidates = append(candidates, *detail)
	}

	rows, err := e.insertNewMatchDetails(ctx, candidates)
	if err != nil {
		return nil, err
	}
	outcome.Processed = rows

	if err := e.tracker.Advance(ctx, meta.ConsumerCleanMatch, meta.TableRawMatchRecords, highWater); err != nil {
		return nil, err
	}
	return outcome, nil
}

// insertNewMatchDetails 按match_id差集写入新比赛明细
func (e *Engine) insertNewMatchDetails(ctx context.Context, candidates []models.CleanMatchDetail) (int64, error) {
	if len(candidates) == 0 {
		return 0, nil
	}

	matchIDs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		matchIDs = append(matchIDs, c.MatchID)
	}

	var existing []string
	if err := e.db.WithContext(ctx).Model(&models.CleanMatchDetail{}).
		Where("match_id IN ?", matchIDs).
		Pluck("match_id", &existing).Error; err != nil {
		return 0, fmt.Errorf("查询已有比赛明细失败: %w", err)
	}
	existingSet := make(map[string]bool, len(existing))
	for _, id := range existing {
		existingSet[id] = true
	}

	var fresh []models.CleanMatchDetail
	for _, c := range candidates {
		if !existingSet[c.MatchID] {
			fresh = append(fresh, c)
		}
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	if err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&fresh).Error
	}); err != nil {
		return 0, fmt.Errorf("写入比赛明细失败: %w", err)
	}
	return int64(len(fresh)), nil
}

// SyncPlayerRosters 增量同步球员名单
func (e *Engine) SyncPlayerRosters(ctx context.Context) (*SyncOutcome, error) {
	records, highWater, err := e.tracker.Poll(ctx, meta.ConsumerCleanPlayer)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &SyncOutcome{Skipped: true}, nil
	}

	outcome := &SyncOutcome{}
	var candidates []models.CleanPlayerRoster
	matchIDSet := make(map[string]bool)
	for idx := range records {
		rec := &records[idx]
		rows := BuildPlayerRoster(rec)
		if len(rows) == 0 {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("%s: 缺少球员名单", rec.MatchID))
			continue
		}
		candidates = append(candidates, rows...)
		matchIDSet[rec.MatchID] = true
	}

	rows, err := e.insertNewRosterRows(ctx, candidates, matchIDSet)
	if err != nil {
		return nil, err
	}
	outcome.Processed = rows

	if err := e.tracker.Advance(ctx, meta.ConsumerCleanPlayer, meta.TableRawMatchRecords, highWater); err != nil {
		return nil, err
	}
	return outcome, nil
}

// insertNewRosterRows 按(比赛,球队,球员)自然键差集写入名单行
func (e *Engine) insertNewRosterRows(ctx context.Context, candidates []models.CleanPlayerRoster, matchIDSet map[string]bool) (int64, error) {
	if len(candidates) == 0 {
		return 0, nil
	}

	matchIDs := make([]string, 0, len(matchIDSet))
	for id := range matchIDSet {
		matchIDs = append(matchIDs, id)
	}

	var existing []models.CleanPlayerRoster
	if err := e.db.WithContext(ctx).
		Where("match_id IN ?", matchIDs).
		Find(&existing).Error; err != nil {
		return 0, fmt.Errorf("查询已有名单失败: %w", err)
	}
	existingSet := make(map[string]bool, len(existing))
	for _, r := range existing {
		existingSet[rosterKey(r.MatchID, r.TeamName, r.PlayerName)] = true
	}

	var fresh []models.CleanPlayerRoster
	for _, c := range candidates {
		key := rosterKey(c.MatchID, c.TeamName, c.PlayerName)
		if existingSet[key] {
			continue
		}
		existingSet[key] = true
		fresh = append(fresh, c)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	if err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&fresh).Error
	}); err != nil {
		return 0, fmt.Errorf("写入名单失败: %w", err)
	}
	return int64(len(fresh)), nil
}

func rosterKey(matchID, team, player string) string {
	return matchID + "\x1f" + team + "\x1f" + player
}

// SyncDeliveryEvents 增量同步逐球事件
// 幂等保障在比赛粒度：已有逐球事件的比赛整场跳过
func (e *Engine) SyncDeliveryEvents(ctx context.Context) (*SyncOutcome, error) {
	records, highWater, err := e.tracker.Poll(ctx, meta.ConsumerCleanDelivery)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &SyncOutcome{Skipped: true}, nil
	}

	matchIDs := make([]string, 0, len(records))
	for idx := range records {
		matchIDs = append(matchIDs, records[idx].MatchID)
	}
	var existing []string
	if err := e.db.WithContext(ctx).Model(&models.CleanDeliveryEvent{}).
		Where("match_id IN ?", matchIDs).
		Distinct().
		Pluck("match_id", &existing).Error; err != nil {
		return nil, fmt.Errorf("查询已有逐球事件失败: %w", err)
	}
	existingSet := make(map[string]bool, len(existing))
	for _, id := range existing {
		existingSet[id] = true
	}

	outcome := &SyncOutcome{}
	var fresh []models.CleanDeliveryEvent
	for idx := range records {
		rec := &records[idx]
		if existingSet[rec.MatchID] {
			continue
		}
		existingSet[rec.MatchID] = true
		rows := BuildDeliveryEvents(rec)
		if len(rows) == 0 {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("%s: 缺少逐球数据", rec.MatchID))
			continue
		}
		fresh = append(fresh, rows...)
	}

	if len(fresh) > 0 {
		if err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.CreateInBatches(&fresh, 500).Error
		}); err != nil {
			return nil, fmt.Errorf("写入逐球事件失败: %w", err)
		}
		outcome.Processed = int64(len(fresh))
	}

	if err := e.tracker.Advance(ctx, meta.ConsumerCleanDelivery, meta.TableRawMatchRecords, highWater); err != nil {
		return nil, err
	}
	if len(outcome.Errors) > 0 {
		log.Printf("逐球展平存在 %d 条记录级警告", len(outcome.Errors))
	}
	return outcome, nil
}
