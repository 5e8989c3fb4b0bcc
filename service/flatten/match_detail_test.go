/*
 * @module service/flatten/match_detail_test
 * @description 比赛明细展平的单元测试
 * @architecture 测试驱动开发 - 验证标量投影与结果分类
 * @stateFlow 测试准备 -> 原始记录构造 -> 展平执行 -> 结果验证
 * @rules 覆盖结果分类分支、掷币决定规范化与形状异常的空值传播
 * @dependencies testing, testify
 * @refs match_detail.go
 */

package flatten

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cricketdw-service/service/meta"
	"cricketdw-service/service/models"
)

func TestClassifyOutcome(t *testing.T) {
	testCases := []struct {
		name           string
		winner         string
		declaredResult string
		expectedResult string
		expectedWinner string
	}{
		{
			name:           "有胜方",
			winner:         "South Africa",
			declaredResult: "",
			expectedResult: meta.MatchResultDeclared,
			expectedWinner: "South Africa",
		},
		{
			name:           "有胜方时忽略声明结果",
			winner:         "Canada",
			declaredResult: "tie",
			expectedResult: meta.MatchResultDeclared,
			expectedWinner: "Canada",
		},
		{
			name:           "平局",
			winner:         "",
			declaredResult: "tie",
			expectedResult: meta.MatchResultTie,
			expectedWinner: meta.SentinelNA,
		},
		{
			name:           "无结果",
			winner:         "",
			declaredResult: "no result",
			expectedResult: meta.MatchResultNoResult,
			expectedWinner: meta.SentinelNA,
		},
		{
			name:           "其他结果透传",
			winner:         "",
			declaredResult: "abandoned",
			expectedResult: "abandoned",
			expectedWinner: meta.SentinelNA,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			matchResult, winnerTeam := classifyOutcome(tc.winner, tc.declaredResult)
			assert.Equal(t, tc.expectedResult, matchResult)
			assert.Equal(t, tc.expectedWinner, winnerTeam)
		})
	}
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Field", capitalize("field"))
	assert.Equal(t, "Bat", capitalize("BAT"))
	assert.Equal(t, "Bat", capitalize("bat"))
	assert.Equal(t, "", capitalize(""))
}

func TestBuildMatchDetail(t *testing.T) {
	rec := &models.RawMatchRecord{
		ID:      7,
		MatchID: "1384430",
		Info: models.JSONB{
			"city":  "Benoni",
			"dates": []interface{}{"2023-11-01"},
			"event": map[string]interface{}{
				"name":         "ICC Mens Cricket World Cup League 2",
				"match_number": float64(44),
			},
			"gender":     "male",
			"match_type": "ODI",
			"outcome": map[string]interface{}{
				"winner": "South Africa",
			},
			"overs":     float64(50),
			"season":    "2023/24",
			"team_type": "international",
			"teams":     []interface{}{"South Africa", "Canada"},
			"toss": map[string]interface{}{
				"winner":   "Canada",
				"decision": "field",
			},
			"venue": "Willowmoore Park",
		},
	}

	detail, warnings := BuildMatchDetail(rec)

	assert.Empty(t, warnings)
	assert.Equal(t, "1384430", detail.MatchID)
	assert.Equal(t, "ICC Mens Cricket World Cup League 2", detail.EventName)
	assert.Equal(t, "44", detail.EventStage)
	assert.Equal(t, time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC), detail.EventDate)
	assert.Equal(t, 2023, detail.EventYear)
	assert.Equal(t, 11, detail.EventMonth)
	assert.Equal(t, 1, detail.EventDay)
	assert.Equal(t, "ODI", detail.MatchType)
	assert.Equal(t, 50, detail.OversLimit)
	assert.Equal(t, "Willowmoore Park", detail.Venue)
	assert.Equal(t, "Benoni", detail.City)
	assert.Equal(t, "South Africa", detail.TeamA)
	assert.Equal(t, "Canada", detail.TeamB)
	assert.Equal(t, meta.MatchResultDeclared, detail.MatchResult)
	assert.Equal(t, "South Africa", detail.WinnerTeam)
	assert.Equal(t, "Canada", detail.TossWinner)
	assert.Equal(t, "Field", detail.TossDecision)
	assert.Equal(t, uint(7), detail.SourceRawID)
}

func TestBuildMatchDetailStagePreferred(t *testing.T) {
	rec := &models.RawMatchRecord{
		MatchID: "m1",
		Info: models.JSONB{
			"event": map[string]interface{}{
				"name":         "World Cup",
				"stage":        "Final",
				"match_number": float64(48),
			},
			"dates": []interface{}{"2023-11-19"},
			"teams": []interface{}{"India", "Australia"},
		},
	}

	detail, _ := BuildMatchDetail(rec)
	assert.Equal(t, "Final", detail.EventStage)
}

func TestBuildMatchDetailMalformed(t *testing.T) {
	rec := &models.RawMatchRecord{
		MatchID: "broken",
		Info: models.JSONB{
			"dates": "not-a-list",
			"teams": []interface{}{"Kenya"},
			"overs": "unparseable",
		},
	}

	detail, warnings := BuildMatchDetail(rec)

	// 形状异常不失败，传播空值并记录警告
	assert.NotEmpty(t, warnings)
	assert.True(t, detail.EventDate.IsZero())
	assert.Equal(t, 0, detail.EventYear)
	assert.Equal(t, "Kenya", detail.TeamA)
	assert.Equal(t, "", detail.TeamB)
	assert.Equal(t, 0, detail.OversLimit)
	assert.Equal(t, meta.SentinelNA, detail.WinnerTeam)
}
