/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, testify
 * @refs service/models
 */

package testutil

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"cricketdw-service/service/database"
	"cricketdw-service/service/models"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	if err := database.AutoMigrate(db); err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	// 清空所有表的数据
	tables := []string{
		"raw_match_records",
		"ingest_cursors",
		"clean_match_details",
		"clean_player_rosters",
		"clean_delivery_events",
		"dim_teams",
		"dim_players",
		"dim_venues",
		"dim_match_types",
		"dim_dates",
		"fact_matches",
		"fact_deliveries",
		"pipeline_stages",
		"stage_runs",
	}

	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// TestDataFactory 测试数据工厂
type TestDataFactory struct {
	DB *gorm.DB
}

// NewTestDataFactory 创建测试数据工厂
func NewTestDataFactory(db *gorm.DB) *TestDataFactory {
	return &TestDataFactory{DB: db}
}

// DeliverySpec 逐球测试数据规格
type DeliverySpec struct {
	Batter     string
	Bowler     string
	NonStriker string
	RunsBatter int
	RunsExtras int
	RunsTotal  int
	ExtraType  string // 为空表示无附加分
	WicketKind string // 为空表示无出局
	PlayerOut  string
	Fielders   []string
}

// MatchDocOption 比赛文档选项函数类型
type MatchDocOption func(map[string]interface{})

// WithOutcome 覆盖比赛结果
func WithOutcome(outcome map[string]interface{}) MatchDocOption {
	return func(doc map[string]interface{}) {
		doc["info"].(map[string]interface{})["outcome"] = outcome
	}
}

// WithToss 覆盖掷币信息
func WithToss(winner, decision string) MatchDocOption {
	return func(doc map[string]interface{}) {
		doc["info"].(map[string]interface{})["toss"] = map[string]interface{}{
			"winner":   winner,
			"decision": decision,
		}
	}
}

// WithDates 覆盖比赛日期列表
func WithDates(dates ...string) MatchDocOption {
	return func(doc map[string]interface{}) {
		list := make([]interface{}, 0, len(dates))
		for _, d := range dates {
			list = append(list, d)
		}
		doc["info"].(map[string]interface{})["dates"] = list
	}
}

// WithInnings 覆盖局次列表
func WithInnings(innings []interface{}) MatchDocOption {
	return func(doc map[string]interface{}) {
		doc["innings"] = innings
	}
}

// SampleMatchDoc 构造一份嵌套结构完整的比赛文档
// 默认场景：South Africa对Canada的ODI，Canada赢得掷币选择防守，South Africa获胜
func SampleMatchDoc(opts ...MatchDocOption) map[string]interface{} {
	doc := map[string]interface{}{
		"meta": map[string]interface{}{
			"data_version": "1.1.0",
			"created":      "2024-01-10",
			"revision":     1,
		},
		"info": map[string]interface{}{
			"city":  "Benoni",
			"dates": []interface{}{"2023-11-01"},
			"event": map[string]interface{}{
				"name":         "ICC Mens Cricket World Cup League 2",
				"match_number": 44,
			},
			"gender":     "male",
			"match_type": "ODI",
			"outcome": map[string]interface{}{
				"winner": "South Africa",
				"by":     map[string]interface{}{"wickets": 5},
			},
			"overs": 50,
			"players": map[string]interface{}{
				"South Africa": []interface{}{"Q de Kock", "T Bavuma", "AK Markram"},
				"Canada":       []interface{}{"A Johnson", "N Dutta", "S Wickramasekara"},
			},
			"season":    "2023/24",
			"team_type": "international",
			"teams":     []interface{}{"South Africa", "Canada"},
			"toss": map[string]interface{}{
				"winner":   "Canada",
				"decision": "field",
			},
			"venue": "Willowmoore Park",
		},
		"innings": []interface{}{
			Innings("South Africa",
				Over(0,
					Delivery(DeliverySpec{Batter: "Q de Kock", Bowler: "N Dutta", NonStriker: "T Bavuma", RunsBatter: 1, RunsTotal: 1}),
					Delivery(DeliverySpec{Batter: "T Bavuma", Bowler: "N Dutta", NonStriker: "Q de Kock", RunsBatter: 4, RunsTotal: 4}),
				),
			),
		},
	}

	for _, opt := range opts {
		opt(doc)
	}
	return doc
}

// Innings 构造一局的文档片段
func Innings(team string, overs ...interface{}) map[string]interface{} {
	return map[string]interface{}{
		"team":  team,
		"overs": append([]interface{}{}, overs...),
	}
}

// Over 构造一个轮次的文档片段，over编号与落地文件一致从0起
func Over(overNo int, deliveries ...interface{}) map[string]interface{} {
	return map[string]interface{}{
		"over":       overNo,
		"deliveries": append([]interface{}{}, deliveries...),
	}
}

// Delivery 按规格构造一次投球的文档片段
func Delivery(spec DeliverySpec) map[string]interface{} {
	d := map[string]interface{}{
		"batter":      spec.Batter,
		"bowler":      spec.Bowler,
		"non_striker": spec.NonStriker,
		"runs": map[string]interface{}{
			"batter": spec.RunsBatter,
			"extras": spec.RunsExtras,
			"total":  spec.RunsTotal,
		},
	}
	if spec.ExtraType != "" {
		d["extras"] = map[string]interface{}{
			spec.ExtraType: spec.RunsExtras,
		}
	}
	if spec.WicketKind != "" {
		wicket := map[string]interface{}{
			"kind":       spec.WicketKind,
			"player_out": spec.PlayerOut,
		}
		if len(spec.Fielders) > 0 {
			fielders := make([]interface{}, 0, len(spec.Fielders))
			for _, name := range spec.Fielders {
				fielders = append(fielders, map[string]interface{}{"name": name})
			}
			wicket["fielders"] = fielders
		}
		d["wickets"] = []interface{}{wicket}
	}
	return d
}

// MarshalMatchDoc 将比赛文档序列化为落地文件内容
func MarshalMatchDoc(doc map[string]interface{}) []byte {
	body, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("failed to marshal match doc: %v", err))
	}
	return body
}

// CreateRawMatch 将比赛文档作为原始层记录直接入库，绕过落地文件摄取
func (f *TestDataFactory) CreateRawMatch(matchID string, doc map[string]interface{}) *models.RawMatchRecord {
	body := MarshalMatchDoc(doc)

	record := &models.RawMatchRecord{
		MatchID:     matchID,
		SourceFile:  matchID + ".json",
		RowNumber:   1,
		ContentHash: fmt.Sprintf("%x", sha256.Sum256(append([]byte(matchID+"\n"), body...))),
		IngestedAt:  time.Now(),
	}
	if meta, ok := doc["meta"].(map[string]interface{}); ok {
		record.Meta = models.JSONB(meta)
	}
	if info, ok := doc["info"].(map[string]interface{}); ok {
		record.Info = models.JSONB(info)
	}
	if innings, ok := doc["innings"].([]interface{}); ok {
		record.Innings = models.JSONBGenericArray(innings)
	}

	if err := f.DB.Create(record).Error; err != nil {
		panic(fmt.Sprintf("failed to create raw match record: %v", err))
	}
	return record
}
