/*
 * @module service/models/fact
 * @description 消费层事实模型，按维度代理键引用的比赛聚合事实与逐球事实
 * @architecture 分层数仓 - 消费层事实
 * @documentReference dev_docs/model.md
 * @stateFlow 事实构建器按比赛粒度幂等写入，事实行一经写入不可变
 * @rules 外键必须解析到已存在的维度行，维度构建必须先于事实构建完成
 * @dependencies gorm.io/gorm
 * @refs service/fact
 */

package models

import (
	"time"
)

// FactMatch 比赛事实，每场比赛一行，按 match_id 不存在才插入
type FactMatch struct {
	ID           uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	MatchID      string `json:"match_id" gorm:"not null;size:128;uniqueIndex"`
	DateID       uint   `json:"date_id" gorm:"not null;index"`
	TeamAID      uint   `json:"team_a_id" gorm:"not null;index"`
	TeamBID      uint   `json:"team_b_id" gorm:"not null;index"`
	MatchTypeID  uint   `json:"match_type_id" gorm:"not null"`
	VenueID      uint   `json:"venue_id" gorm:"not null"`
	TossWinnerID uint   `json:"toss_winner_id" gorm:"not null"`
	WinnerID     *uint  `json:"winner_id" gorm:"index"`
	MatchResult  string `json:"match_result" gorm:"not null;size:64"`
	TossDecision string `json:"toss_decision" gorm:"size:32"`

	TeamAOvers      int `json:"team_a_overs"`
	TeamABalls      int `json:"team_a_balls"`
	TeamAExtraBalls int `json:"team_a_extra_balls"`
	TeamAExtraRuns  int `json:"team_a_extra_runs"`
	TeamARuns       int `json:"team_a_runs"`
	TeamAWickets    int `json:"team_a_wickets"`

	TeamBOvers      int `json:"team_b_overs"`
	TeamBBalls      int `json:"team_b_balls"`
	TeamBExtraBalls int `json:"team_b_extra_balls"`
	TeamBExtraRuns  int `json:"team_b_extra_runs"`
	TeamBRuns       int `json:"team_b_runs"`
	TeamBWickets    int `json:"team_b_wickets"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (FactMatch) TableName() string {
	return "fact_matches"
}

// FactDelivery 逐球事实，每条清洗层逐球事件一行，空值已规范化为显式哨兵
type FactDelivery struct {
	ID            uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	MatchID       string `json:"match_id" gorm:"not null;size:128;index"`
	InningsNo     int    `json:"innings_no" gorm:"not null"`
	OverNo        int    `json:"over_no" gorm:"not null"`
	DeliveryNo    int    `json:"delivery_no" gorm:"not null"`
	BattingTeamID uint   `json:"batting_team_id" gorm:"not null;index"`
	BatterID      uint   `json:"batter_id" gorm:"not null;index"`
	BowlerID      uint   `json:"bowler_id" gorm:"not null;index"`
	NonStrikerID  uint   `json:"non_striker_id" gorm:"not null"`
	RunsBatter    int    `json:"runs_batter" gorm:"not null"`
	RunsExtras    int    `json:"runs_extras" gorm:"not null"`
	RunsTotal     int    `json:"runs_total" gorm:"not null"`
	ExtraType     string `json:"extra_type" gorm:"not null;size:32;default:None"`
	ExtraRuns     int    `json:"extra_runs" gorm:"not null;default:0"`
	WicketKind    string `json:"wicket_kind" gorm:"not null;size:64;default:None"`
	PlayerOut     string `json:"player_out" gorm:"not null;size:128;default:None"`
	Fielder       string `json:"fielder" gorm:"not null;size:128;default:None"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (FactDelivery) TableName() string {
	return "fact_deliveries"
}
