/*
 * @module service/models/dimension
 * @description 消费层维度模型，代理键 + 自然键的查找实体
 * @architecture 分层数仓 - 消费层维度
 * @documentReference dev_docs/model.md
 * @stateFlow 维度构建器按自然键差集追加写入，代理键一经分配永不变更
 * @rules 球队/球员/场地/赛制代理键使用数据库自增分配器；日期维度由构建器显式延续最大键分配
 * @dependencies gorm.io/gorm
 * @refs service/dimension
 */

package models

import (
	"time"
)

// DimTeam 球队维度，自然键为球队名称
type DimTeam struct {
	TeamID    uint      `json:"team_id" gorm:"primaryKey;autoIncrement"`
	TeamName  string    `json:"team_name" gorm:"not null;size:128;uniqueIndex" example:"Canada"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (DimTeam) TableName() string {
	return "dim_teams"
}

// DimPlayer 球员维度，自然键为 (球队ID, 球员名称)，依赖球队维度先行构建
type DimPlayer struct {
	PlayerID   uint      `json:"player_id" gorm:"primaryKey;autoIncrement"`
	TeamID     uint      `json:"team_id" gorm:"not null;index:idx_player_natural,unique"`
	PlayerName string    `json:"player_name" gorm:"not null;size:128;index:idx_player_natural,unique"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName 指定表名
func (DimPlayer) TableName() string {
	return "dim_players"
}

// DimVenue 场地维度，自然键为 (场地名称, 城市)，空城市在键比较前规范化为 NA
type DimVenue struct {
	VenueID   uint      `json:"venue_id" gorm:"primaryKey;autoIncrement"`
	VenueName string    `json:"venue_name" gorm:"not null;size:256;index:idx_venue_natural,unique"`
	City      string    `json:"city" gorm:"not null;size:128;index:idx_venue_natural,unique"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (DimVenue) TableName() string {
	return "dim_venues"
}

// DimMatchType 赛制维度，自然键为赛制字符串
type DimMatchType struct {
	MatchTypeID uint      `json:"match_type_id" gorm:"primaryKey;autoIncrement"`
	MatchType   string    `json:"match_type" gorm:"not null;size:32;uniqueIndex" example:"ODI"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName 指定表名
func (DimMatchType) TableName() string {
	return "dim_match_types"
}

// DimDate 日期维度，日期键由构建器对新日期按升序延续最大键分配，
// 已存在日期的键永不重算
type DimDate struct {
	DateID     uint      `json:"date_id" gorm:"primaryKey"`
	FullDate   time.Time `json:"full_date" gorm:"not null;uniqueIndex"`
	Day        int       `json:"day" gorm:"not null"`
	Month      int       `json:"month" gorm:"not null"`
	Year       int       `json:"year" gorm:"not null"`
	Quarter    int       `json:"quarter" gorm:"not null"`
	DayOfWeek  int       `json:"day_of_week" gorm:"not null"`
	DayOfMonth int       `json:"day_of_month" gorm:"not null"`
	DayOfYear  int       `json:"day_of_year" gorm:"not null"`
	DayName    string    `json:"day_name" gorm:"not null;size:16" example:"Wednesday"`
	IsWeekend  bool      `json:"is_weekend" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName 指定表名
func (DimDate) TableName() string {
	return "dim_dates"
}
