/*
 * @module service/fact/delivery_fact
 * @description 逐球事实构建器，将清洗层逐球事件的名称解析为维度代理键
 * @architecture 分层数仓 - 事实构建
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 找出尚无逐球事实的比赛 -> 球队/球员键解析 -> 哨兵规范化 -> 批量插入
 * @rules 解析失败的行静默丢弃不上报；幂等守卫在比赛粒度而非单行粒度
 * @dependencies cricketdw-service/service/models, github.com/spf13/cast, gorm.io/gorm
 * @refs service/fact/match_fact
 */

package fact

import (
	"context"
	"fmt"
	"time"

	"cricketdw-service/service/meta"
	"cricketdw-service/service/models"

	"github.com/spf13/cast"
	"gorm.io/gorm"
)

// SyncDeliveryFacts 构建逐球事实
// 击球手与非击球手按击球方球队解析，投手按对方球队解析；
// 任一外键未命中维度的行被连接丢弃
func (b *Builder) SyncDeliveryFacts(ctx context.Context) (*BuildOutcome, error) {
	var pendingMatches []string
	sub := b.db.Model(&models.FactDelivery{}).Select("match_id")
	if err := b.db.WithContext(ctx).Model(&models.CleanDeliveryEvent{}).
		Where("match_id NOT IN (?)", sub).
		Distinct().
		Order("match_id ASC").
		Pluck("match_id", &pendingMatches).Error; err != nil {
		return nil, fmt.Errorf("查询待构建比赛失败: %w", err)
	}
	if len(pendingMatches) == 0 {
		return &BuildOutcome{}, nil
	}

	teamByName, playerByKey, err := b.loadPlayerLookups(ctx)
	if err != nil {
		return nil, err
	}

	outcome := &BuildOutcome{}
	for _, matchID := range pendingMatches {
		inserted, dropped, err := b.buildMatchDeliveries(ctx, matchID, teamByName, playerByKey)
		if err != nil {
			return nil, err
		}
		outcome.Inserted += inserted
		outcome.Dropped += dropped
	}
	return outcome, nil
}

// buildMatchDeliveries 构建单场比赛的逐球事实并整批写入
func (b *Builder) buildMatchDeliveries(ctx context.Context, matchID string, teamByName map[string]uint, playerByKey map[string]uint) (int64, int64, error) {
	var detail models.CleanMatchDetail
	if err := b.db.WithContext(ctx).Where("match_id = ?", matchID).First(&detail).Error; err != nil {
		// 没有比赛明细就无法确定投球方，整场留待后续批次
		return 0, 0, nil
	}

	var deliveries []models.CleanDeliveryEvent
	if err := b.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("id ASC").
		Find(&deliveries).Error; err != nil {
		return 0, 0, fmt.Errorf("查询逐球事件失败 [%s]: %w", matchID, err)
	}

	var fresh []models.FactDelivery
	var dropped int64
	for _, d := range deliveries {
		fact, ok := resolveDelivery(&d, &detail, teamByName, playerByKey)
		if !ok {
			dropped++
			continue
		}
		fresh = append(fresh, *fact)
	}
	if len(fresh) == 0 {
		return 0, dropped, nil
	}

	if err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&fresh, 500).Error
	}); err != nil {
		return 0, 0, fmt.Errorf("写入逐球事实失败 [%s]: %w", matchID, err)
	}
	return int64(len(fresh)), dropped, nil
}

// resolveDelivery 解析单行逐球事件的全部外键并做哨兵规范化
func resolveDelivery(d *models.CleanDeliveryEvent, detail *models.CleanMatchDetail, teamByName map[string]uint, playerByKey map[string]uint) (*models.FactDelivery, bool) {
	battingTeamID, ok := teamByName[d.BattingTeam]
	if !ok {
		return nil, false
	}

	bowlingTeam := detail.TeamA
	if d.BattingTeam == detail.TeamA {
		bowlingTeam = detail.TeamB
	}
	bowlingTeamID, ok := teamByName[bowlingTeam]
	if !ok {
		return nil, false
	}

	batterID, ok := playerByKey[playerKey(battingTeamID, d.Batter)]
	if !ok {
		return nil, false
	}
	nonStrikerID, ok := playerByKey[playerKey(battingTeamID, d.NonStriker)]
	if !ok {
		return nil, false
	}
	bowlerID, ok := playerByKey[playerKey(bowlingTeamID, d.Bowler)]
	if !ok {
		return nil, false
	}

	fact := &models.FactDelivery{
		MatchID:       d.MatchID,
		InningsNo:     d.InningsNo,
		OverNo:        d.OverNo,
		DeliveryNo:    d.DeliveryNo,
		BattingTeamID: battingTeamID,
		BatterID:      batterID,
		BowlerID:      bowlerID,
		NonStrikerID:  nonStrikerID,
		RunsBatter:    cast.ToInt(d.RunsBatter),
		RunsExtras:    cast.ToInt(d.RunsExtras),
		RunsTotal:     cast.ToInt(d.RunsTotal),
		ExtraType:     meta.SentinelNone,
		ExtraRuns:     0,
		WicketKind:    meta.SentinelNone,
		PlayerOut:     meta.SentinelNone,
		Fielder:       meta.SentinelNone,
		CreatedAt:     time.Now(),
	}
	if d.ExtraType != nil {
		fact.ExtraType = *d.ExtraType
	}
	if d.ExtraRuns != nil {
		fact.ExtraRuns = cast.ToInt(*d.ExtraRuns)
	}
	if d.WicketKind != nil {
		fact.WicketKind = *d.WicketKind
	}
	if d.PlayerOut != nil {
		fact.PlayerOut = *d.PlayerOut
	}
	if d.Fielder != nil {
		fact.Fielder = *d.Fielder
	}
	return fact, true
}

// loadPlayerLookups 加载球队与球员的自然键映射
func (b *Builder) loadPlayerLookups(ctx context.Context) (map[string]uint, map[string]uint, error) {
	var teams []models.DimTeam
	if err := b.db.WithContext(ctx).Find(&teams).Error; err != nil {
		return nil, nil, fmt.Errorf("加载球队维度失败: %w", err)
	}
	teamByName := make(map[string]uint, len(teams))
	for _, t := range teams {
		teamByName[t.TeamName] = t.TeamID
	}

	var players []models.DimPlayer
	if err := b.db.WithContext(ctx).Find(&players).Error; err != nil {
		return nil, nil, fmt.Errorf("加载球员维度失败: %w", err)
	}
	playerByKey := make(map[string]uint, len(players))
	for _, p := range players {
		playerByKey[playerKey(p.TeamID, p.PlayerName)] = p.PlayerID
	}
	return teamByName, playerByKey, nil
}

func playerKey(teamID uint, player string) string {
	return fmt.Sprintf("%d\x1f%s", teamID, player)
}
