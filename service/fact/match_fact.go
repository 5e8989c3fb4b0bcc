/*
 * @module service/fact/match_fact
 * @description 比赛事实构建器，按自然键关联五个维度并聚合双方的逐球统计
 * @architecture 分层数仓 - 事实构建
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 找出尚无事实行的比赛 -> 维度键解析 -> 逐球聚合 -> 不存在才插入
 * @rules 事实行按match_id只插入一次且不可变；维度解析失败的比赛整场丢弃并记录
 * @dependencies cricketdw-service/service/models, github.com/spf13/cast, gorm.io/gorm
 * @refs service/dimension, service/scheduler
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

// Builder 事实构建器
type Builder struct {
	db *gorm.DB
}

// NewBuilder 创建事实构建器实例
func NewBuilder(db *gorm.DB) *Builder {
	return &Builder{db: db}
}

// BuildOutcome 单次事实构建的结果
type BuildOutcome struct {
	Inserted int64    `json:"inserted"`
	Dropped  int64    `json:"dropped"`
	Errors   []string `json:"errors,omitempty"`
}

// dimLookups 自然键到代理键的内存映射
type dimLookups struct {
	teamByName      map[string]uint
	venueByKey      map[string]uint
	matchTypeByName map[string]uint
	dateByDay       map[string]uint
}

// sideAggregate 一方的逐球聚合
type sideAggregate struct {
	Overs      int
	Balls      int
	ExtraBalls int
	ExtraRuns  int
	Runs       int
	Wickets    int
}

// SyncMatchFacts 构建比赛事实
func (b *Builder) SyncMatchFacts(ctx context.Context) (*BuildOutcome, error) {
	var pending []models.CleanMatchDetail
	sub := b.db.Model(&models.FactMatch{}).Select("match_id")
	if err := b.db.WithContext(ctx).
		Where("match_id NOT IN (?)", sub).
		Order("id ASC").
		Find(&pending).Error; err != nil {
		return nil, fmt.Errorf("查询待构建比赛失败: %w", err)
	}
	if len(pending) == 0 {
		return &BuildOutcome{}, nil
	}

	lookups, err := b.loadDimLookups(ctx)
	if err != nil {
		return nil, err
	}

	outcome := &BuildOutcome{}
	var fresh []models.FactMatch
	for idx := range pending {
		detail := &pending[idx]
		fact, reason := b.buildMatchFact(ctx, detail, lookups)
		if fact == nil {
			outcome.Dropped++
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("%s: %s", detail.MatchID, reason))
			continue
		}
		fresh = append(fresh, *fact)
	}
	if len(fresh) == 0 {
		return outcome, nil
	}

	if err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&fresh).Error
	}); err != nil {
		return nil, fmt.Errorf("写入比赛事实失败: %w", err)
	}
	outcome.Inserted = int64(len(fresh))
	return outcome, nil
}

// buildMatchFact 组装单场比赛的事实行，维度解析失败时返回原因
func (b *Builder) buildMatchFact(ctx context.Context, detail *models.CleanMatchDetail, lookups *dimLookups) (*models.FactMatch, string) {
	dateID, ok := lookups.dateByDay[detail.EventDate.Format("2006-01-02")]
	if !ok {
		return nil, "日期维度未解析"
	}
	teamAID, ok := lookups.teamByName[detail.TeamA]
	if !ok {
		return nil, fmt.Sprintf("球队维度未解析: %s", detail.TeamA)
	}
	teamBID, ok := lookups.teamByName[detail.TeamB]
	if !ok {
		return nil, fmt.Sprintf("球队维度未解析: %s", detail.TeamB)
	}
	matchTypeID, ok := lookups.matchTypeByName[detail.MatchType]
	if !ok {
		return nil, fmt.Sprintf("赛制维度未解析: %s", detail.MatchType)
	}
	city := detail.City
	if city == "" {
		city = meta.SentinelNA
	}
	venueID, ok := lookups.venueByKey[detail.Venue+"\x1f"+city]
	if !ok {
		return nil, fmt.Sprintf("场地维度未解析: %s", detail.Venue)
	}
	tossWinnerID, ok := lookups.teamByName[detail.TossWinner]
	if !ok {
		return nil, fmt.Sprintf("掷币胜方未解析: %s", detail.TossWinner)
	}

	var winnerID *uint
	if detail.WinnerTeam != meta.SentinelNA {
		if id, ok := lookups.teamByName[detail.WinnerTeam]; ok {
			winnerID = &id
		}
	}

	var deliveries []models.CleanDeliveryEvent
	if err := b.db.WithContext(ctx).
		Where("match_id = ?", detail.MatchID).
		Find(&deliveries).Error; err != nil {
		return nil, fmt.Sprintf("查询逐球事件失败: %v", err)
	}

	sideA := aggregateSide(deliveries, detail.TeamA)
	sideB := aggregateSide(deliveries, detail.TeamB)

	return &models.FactMatch{
		MatchID:      detail.MatchID,
		DateID:       dateID,
		TeamAID:      teamAID,
		TeamBID:      teamBID,
		MatchTypeID:  matchTypeID,
		VenueID:      venueID,
		TossWinnerID: tossWinnerID,
		WinnerID:     winnerID,
		MatchResult:  detail.MatchResult,
		TossDecision: detail.TossDecision,

		TeamAOvers:      sideA.Overs,
		TeamABalls:      sideA.Balls,
		TeamAExtraBalls: sideA.ExtraBalls,
		TeamAExtraRuns:  sideA.ExtraRuns,
		TeamARuns:       sideA.Runs,
		TeamAWickets:    sideA.Wickets,

		TeamBOvers:      sideB.Overs,
		TeamBBalls:      sideB.Balls,
		TeamBExtraBalls: sideB.ExtraBalls,
		TeamBExtraRuns:  sideB.ExtraRuns,
		TeamBRuns:       sideB.Runs,
		TeamBWickets:    sideB.Wickets,

		CreatedAt: time.Now(),
	}, ""
}

// aggregateSide 聚合一方(击球方)的逐球统计
// 文本跑分字段在此做安全数值转换，转换失败按0处理
func aggregateSide(deliveries []models.CleanDeliveryEvent, team string) sideAggregate {
	agg := sideAggregate{}
	for _, d := range deliveries {
		if d.BattingTeam != team {
			continue
		}
		agg.Balls++
		if d.OverNo > agg.Overs {
			agg.Overs = d.OverNo
		}
		agg.Runs += cast.ToInt(d.RunsBatter)
		if d.ExtraType != nil {
			agg.ExtraBalls++
		}
		if d.ExtraRuns != nil {
			extra := cast.ToInt(*d.ExtraRuns)
			agg.ExtraRuns += extra
			agg.Runs += extra
		}
		if d.PlayerOut != nil {
			agg.Wickets++
		}
	}
	return agg
}

// loadDimLookups 加载全部维度的自然键映射
func (b *Builder) loadDimLookups(ctx context.Context) (*dimLookups, error) {
	lookups := &dimLookups{
		teamByName:      make(map[string]uint),
		venueByKey:      make(map[string]uint),
		matchTypeByName: make(map[string]uint),
		dateByDay:       make(map[string]uint),
	}

	var teams []models.DimTeam
	if err := b.db.WithContext(ctx).Find(&teams).Error; err != nil {
		return nil, fmt.Errorf("加载球队维度失败: %w", err)
	}
	for _, t := range teams {
		lookups.teamByName[t.TeamName] = t.TeamID
	}

	var venues []models.DimVenue
	if err := b.db.WithContext(ctx).Find(&venues).Error; err != nil {
		return nil, fmt.Errorf("加载场地维度失败: %w", err)
	}
	for _, v := range venues {
		lookups.venueByKey[v.VenueName+"\x1f"+v.City] = v.VenueID
	}

	var matchTypes []models.DimMatchType
	if err := b.db.WithContext(ctx).Find(&matchTypes).Error; err != nil {
		return nil, fmt.Errorf("加载赛制维度失败: %w", err)
	}
	for _, t := range matchTypes {
		lookups.matchTypeByName[t.MatchType] = t.MatchTypeID
	}

	var dates []models.DimDate
	if err := b.db.WithContext(ctx).Find(&dates).Error; err != nil {
		return nil, fmt.Errorf("加载日期维度失败: %w", err)
	}
	for _, d := range dates {
		lookups.dateByDay[d.FullDate.Format("2006-01-02")] = d.DateID
	}

	return lookups, nil
}
