/*
 * @module service/dimension/builder
 * @description 维度构建器，对球队/球员/场地/赛制按自然键做差集追加写入
 * @architecture 分层数仓 - 维度构建
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 加载已有自然键集合 -> 计算清洗层候选集合 -> 事务写入差集
 * @rules 只插入不更新；同一自然键的维度行只创建一次；球员维度依赖球队维度先行完成
 * @dependencies cricketdw-service/service/models, gorm.io/gorm
 * @refs service/fact, service/scheduler
 */

package dimension

import (
	"context"
	"fmt"
	"sort"

	"cricketdw-service/service/meta"
	"cricketdw-service/service/models"

	"gorm.io/gorm"
)

// Builder 维度构建器
type Builder struct {
	db *gorm.DB
}

// NewBuilder 创建维度构建器实例
func NewBuilder(db *gorm.DB) *Builder {
	return &Builder{db: db}
}

// BuildOutcome 单次维度构建的结果
type BuildOutcome struct {
	Inserted int64 `json:"inserted"`
}

// SyncTeams 构建球队维度，自然键为球队名称
// 候选集合来自名单的team_name与比赛明细的两个参赛队
func (b *Builder) SyncTeams(ctx context.Context) (*BuildOutcome, error) {
	candidateSet := make(map[string]bool)

	var rosterTeams []string
	if err := b.db.WithContext(ctx).Model(&models.CleanPlayerRoster{}).
		Distinct().Pluck("team_name", &rosterTeams).Error; err != nil {
		return nil, fmt.Errorf("查询名单球队失败: %w", err)
	}
	for _, name := range rosterTeams {
		if name != "" {
			candidateSet[name] = true
		}
	}

	var details []models.CleanMatchDetail
	if err := b.db.WithContext(ctx).
		Select("team_a", "team_b").
		Find(&details).Error; err != nil {
		return nil, fmt.Errorf("查询比赛球队失败: %w", err)
	}
	for _, d := range details {
		if d.TeamA != "" {
			candidateSet[d.TeamA] = true
		}
		if d.TeamB != "" {
			candidateSet[d.TeamB] = true
		}
	}

	var existing []string
	if err := b.db.WithContext(ctx).Model(&models.DimTeam{}).
		Pluck("team_name", &existing).Error; err != nil {
		return nil, fmt.Errorf("查询已有球队维度失败: %w", err)
	}
	for _, name := range existing {
		delete(candidateSet, name)
	}

	fresh := make([]models.DimTeam, 0, len(candidateSet))
	for _, name := range sortedKeys(candidateSet) {
		fresh = append(fresh, models.DimTeam{TeamName: name})
	}
	if len(fresh) == 0 {
		return &BuildOutcome{}, nil
	}

	if err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&fresh).Error
	}); err != nil {
		return nil, fmt.Errorf("写入球队维度失败: %w", err)
	}
	return &BuildOutcome{Inserted: int64(len(fresh))}, nil
}

// SyncPlayers 构建球员维度，自然键为(球队ID, 球员名称)
// 名单中的球队必须已存在于球队维度，否则该行跳过等待下一轮
func (b *Builder) SyncPlayers(ctx context.Context) (*BuildOutcome, error) {
	teamIDs, err := b.teamIDByName(ctx)
	if err != nil {
		return nil, err
	}

	var roster []models.CleanPlayerRoster
	if err := b.db.WithContext(ctx).
		Distinct("team_name", "player_name").
		Find(&roster).Error; err != nil {
		return nil, fmt.Errorf("查询名单球员失败: %w", err)
	}

	var existing []models.DimPlayer
	if err := b.db.WithContext(ctx).Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("查询已有球员维度失败: %w", err)
	}
	existingSet := make(map[string]bool, len(existing))
	for _, p := range existing {
		existingSet[playerKey(p.TeamID, p.PlayerName)] = true
	}

	var fresh []models.DimPlayer
	for _, r := range roster {
		teamID, ok := teamIDs[r.TeamName]
		if !ok {
			continue
		}
		key := playerKey(teamID, r.PlayerName)
		if existingSet[key] {
			continue
		}
		existingSet[key] = true
		fresh = append(fresh, models.DimPlayer{TeamID: teamID, PlayerName: r.PlayerName})
	}
	if len(fresh) == 0 {
		return &BuildOutcome{}, nil
	}

	if err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&fresh, 500).Error
	}); err != nil {
		return nil, fmt.Errorf("写入球员维度失败: %w", err)
	}
	return &BuildOutcome{Inserted: int64(len(fresh))}, nil
}

// SyncVenues 构建场地维度，自然键为(场地名称, 城市)，空城市规范化为NA
func (b *Builder) SyncVenues(ctx context.Context) (*BuildOutcome, error) {
	var details []models.CleanMatchDetail
	if err := b.db.WithContext(ctx).
		Select("venue", "city").
		Find(&details).Error; err != nil {
		return nil, fmt.Errorf("查询比赛场地失败: %w", err)
	}

	candidateSet := make(map[string]models.DimVenue)
	for _, d := range details {
		if d.Venue == "" {
			continue
		}
		city := d.City
		if city == "" {
			city = meta.SentinelNA
		}
		candidateSet[venueKey(d.Venue, city)] = models.DimVenue{VenueName: d.Venue, City: city}
	}

	var existing []models.DimVenue
	if err := b.db.WithContext(ctx).Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("查询已有场地维度失败: %w", err)
	}
	for _, v := range existing {
		delete(candidateSet, venueKey(v.VenueName, v.City))
	}

	fresh := make([]models.DimVenue, 0, len(candidateSet))
	for _, key := range sortedVenueKeys(candidateSet) {
		fresh = append(fresh, candidateSet[key])
	}
	if len(fresh) == 0 {
		return &BuildOutcome{}, nil
	}

	if err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&fresh).Error
	}); err != nil {
		return nil, fmt.Errorf("写入场地维度失败: %w", err)
	}
	return &BuildOutcome{Inserted: int64(len(fresh))}, nil
}

// SyncMatchTypes 构建赛制维度，自然键为赛制字符串
func (b *Builder) SyncMatchTypes(ctx context.Context) (*BuildOutcome, error) {
	var matchTypes []string
	if err := b.db.WithContext(ctx).Model(&models.CleanMatchDetail{}).
		Distinct().Pluck("match_type", &matchTypes).Error; err != nil {
		return nil, fmt.Errorf("查询赛制失败: %w", err)
	}

	candidateSet := make(map[string]bool)
	for _, t := range matchTypes {
		if t != "" {
			candidateSet[t] = true
		}
	}

	var existing []string
	if err := b.db.WithContext(ctx).Model(&models.DimMatchType{}).
		Pluck("match_type", &existing).Error; err != nil {
		return nil, fmt.Errorf("查询已有赛制维度失败: %w", err)
	}
	for _, t := range existing {
		delete(candidateSet, t)
	}

	fresh := make([]models.DimMatchType, 0, len(candidateSet))
	for _, t := range sortedKeys(candidateSet) {
		fresh = append(fresh, models.DimMatchType{MatchType: t})
	}
	if len(fresh) == 0 {
		return &BuildOutcome{}, nil
	}

	if err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&fresh).Error
	}); err != nil {
		return nil, fmt.Errorf("写入赛制维度失败: %w", err)
	}
	return &BuildOutcome{Inserted: int64(len(fresh))}, nil
}

// teamIDByName 加载球队名称到代理键的映射
func (b *Builder) teamIDByName(ctx context.Context) (map[string]uint, error) {
	var teams []models.DimTeam
	if err := b.db.WithContext(ctx).Find(&teams).Error; err != nil {
		return nil, fmt.Errorf("查询球队维度失败: %w", err)
	}
	byName := make(map[string]uint, len(teams))
	for _, t := range teams {
		byName[t.TeamName] = t.TeamID
	}
	return byName, nil
}

func playerKey(teamID uint, player string) string {
	return fmt.Sprintf("%d\x1f%s", teamID, player)
}

func venueKey(venue, city string) string {
	return venue + "\x1f" + city
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedVenueKeys(set map[string]models.DimVenue) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
