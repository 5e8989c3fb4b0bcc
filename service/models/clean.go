/*
 * @module service/models/clean
 * @description 清洗层数据模型，原始嵌套文档展平后的比赛明细、球员名单和逐球事件
 * @architecture 分层数仓 - 清洗层
 * @documentReference dev_docs/model.md
 * @stateFlow 展平引擎按增量写入，按自然键去重，永不更新
 * @rules 逐球事件采用保留式外部展平，可选子结构缺失时保留一行空值
 * @dependencies gorm.io/gorm
 * @refs service/flatten
 */

package models

import (
	"time"
)

// CleanMatchDetail 比赛明细，每场比赛一行
type CleanMatchDetail struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	MatchID     string    `json:"match_id" gorm:"not null;size:128;uniqueIndex" example:"1448347"`
	EventName   string    `json:"event_name" gorm:"size:256" example:"ICC Men's T20 World Cup"`
	EventStage  string    `json:"event_stage" gorm:"size:128" example:"Final"`
	EventDate   time.Time `json:"event_date" gorm:"not null;index"`
	EventYear   int       `json:"event_year" gorm:"not null"`
	EventMonth  int       `json:"event_month" gorm:"not null"`
	EventDay    int       `json:"event_day" gorm:"not null"`
	MatchType   string    `json:"match_type" gorm:"not null;size:32" example:"T20"`
	Season      string    `json:"season" gorm:"size:32" example:"2023/24"`
	TeamType    string    `json:"team_type" gorm:"size:32" example:"international"`
	OversLimit  int       `json:"overs_limit"`
	Venue       string    `json:"venue" gorm:"size:256" example:"Kensington Oval"`
	City        string    `json:"city" gorm:"size:128" example:"Bridgetown"`
	Gender      string    `json:"gender" gorm:"size:16" example:"male"`
	TeamA       string    `json:"team_a" gorm:"not null;size:128" example:"India"`
	TeamB       string    `json:"team_b" gorm:"not null;size:128" example:"South Africa"`
	MatchResult string    `json:"match_result" gorm:"not null;size:64" example:"ResultDeclared"`
	WinnerTeam  string    `json:"winner_team" gorm:"not null;size:128" example:"India"`
	TossWinner  string    `json:"toss_winner" gorm:"size:128" example:"India"`
	TossDecision string   `json:"toss_decision" gorm:"size:32" example:"Bat"`
	SourceRawID uint      `json:"source_raw_id" gorm:"not null;index"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName 指定表名
func (CleanMatchDetail) TableName() string {
	return "clean_match_details"
}

// CleanPlayerRoster 球员名单，每个 (比赛, 球队, 球员) 三元组一行
type CleanPlayerRoster struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	MatchID     string    `json:"match_id" gorm:"not null;size:128;index:idx_roster_natural,unique"`
	TeamName    string    `json:"team_name" gorm:"not null;size:128;index:idx_roster_natural,unique"`
	PlayerName  string    `json:"player_name" gorm:"not null;size:128;index:idx_roster_natural,unique"`
	SourceRawID uint      `json:"source_raw_id" gorm:"not null;index"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName 指定表名
func (CleanPlayerRoster) TableName() string {
	return "clean_player_rosters"
}

// CleanDeliveryEvent 逐球事件，保留式外部展平的结果行
// 局内回合序号已从源数据的零基规范化为一基；跑分字段在清洗层保留文本类型，
// 由事实构建器负责安全的数值转换
type CleanDeliveryEvent struct {
	ID          uint    `json:"id" gorm:"primaryKey;autoIncrement"`
	MatchID     string  `json:"match_id" gorm:"not null;size:128;index"`
	InningsNo   int     `json:"innings_no" gorm:"not null"`
	BattingTeam string  `json:"batting_team" gorm:"not null;size:128;index"`
	OverNo      int     `json:"over_no" gorm:"not null"`
	DeliveryNo  int     `json:"delivery_no" gorm:"not null"`
	Batter      string  `json:"batter" gorm:"not null;size:128"`
	Bowler      string  `json:"bowler" gorm:"not null;size:128"`
	NonStriker  string  `json:"non_striker" gorm:"size:128"`
	RunsBatter  string  `json:"runs_batter" gorm:"size:16"`
	RunsExtras  string  `json:"runs_extras" gorm:"size:16"`
	RunsTotal   string  `json:"runs_total" gorm:"size:16"`
	ExtraType   *string `json:"extra_type" gorm:"size:32"`
	ExtraRuns   *string `json:"extra_runs" gorm:"size:16"`
	WicketKind  *string `json:"wicket_kind" gorm:"size:64"`
	PlayerOut   *string `json:"player_out" gorm:"size:128"`
	Fielder     *string `json:"fielder" gorm:"size:128"`
	SourceRawID uint    `json:"source_raw_id" gorm:"not null;index"`
}

// TableName 指定表名
func (CleanDeliveryEvent) TableName() string {
	return "clean_delivery_events"
}
