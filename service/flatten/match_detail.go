/*
 * @module service/flatten/match_detail
 * @description 比赛明细展平，从info子文档投影标量字段并分类比赛结果
 * @architecture 分层数仓 - 展平引擎
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 原始记录 -> 标量投影 -> 结果分类 -> 清洗层比赛明细行
 * @rules 有胜方即ResultDeclared；tie/no result单独归类；其余透传原始结果串
 * @dependencies cricketdw-service/service/models, golang.org/x/text
 * @refs service/flatten/engine
 */

package flatten

import (
	"fmt"
	"strings"
	"time"

	"cricketdw-service/service/meta"
	"cricketdw-service/service/models"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// capitalize 首字母大写规范化（field -> Field, bat -> Bat）
func capitalize(s string) string {
	if s == "" {
		return ""
	}
	return titleCaser.String(strings.ToLower(s))
}

// classifyOutcome 比赛结果分类
// 有胜方优先于一切声明的结果；否则按声明结果归类tie/no result；
// 其余情况透传原始结果字符串
func classifyOutcome(winner, declaredResult string) (matchResult, winnerTeam string) {
	if winner != "" {
		return meta.MatchResultDeclared, winner
	}
	switch strings.ToLower(declaredResult) {
	case "tie":
		return meta.MatchResultTie, meta.SentinelNA
	case "no result":
		return meta.MatchResultNoResult, meta.SentinelNA
	default:
		return declaredResult, meta.SentinelNA
	}
}

// BuildMatchDetail 将单条原始记录投影为清洗层比赛明细行
// 形状不符的字段传播为空值并记录警告，不会使整条记录失败
func BuildMatchDetail(rec *models.RawMatchRecord) (*models.CleanMatchDetail, []string) {
	var warnings []string
	info := V(map[string]interface{}(rec.Info))

	event := info.Field("event")
	eventStage := event.Field("stage").StringOr("")
	if eventStage == "" {
		// 部分赛事用match_number标记阶段
		if n, ok := event.Field("match_number").AsInt(); ok {
			eventStage = fmt.Sprintf("%d", n)
		}
	}

	var eventDate time.Time
	if dateStr, ok := info.Field("dates").Index(0).AsString(); ok {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: 无法解析比赛日期 %q", rec.MatchID, dateStr))
		} else {
			eventDate = parsed
		}
	} else {
		warnings = append(warnings, fmt.Sprintf("%s: 缺少比赛日期", rec.MatchID))
	}

	teams := info.Field("teams").Array()
	teamA, teamB := "", ""
	if len(teams) > 0 {
		teamA = teams[0].StringOr("")
	}
	if len(teams) > 1 {
		teamB = teams[1].StringOr("")
	}
	if teamA == "" || teamB == "" {
		warnings = append(warnings, fmt.Sprintf("%s: 参赛球队不完整", rec.MatchID))
	}

	outcome := info.Field("outcome")
	matchResult, winnerTeam := classifyOutcome(
		outcome.Field("winner").StringOr(""),
		outcome.Field("result").StringOr(""),
	)

	toss := info.Field("toss")

	detail := &models.CleanMatchDetail{
		MatchID:      rec.MatchID,
		EventName:    event.Field("name").StringOr(""),
		EventStage:   eventStage,
		EventDate:    eventDate,
		EventYear:    eventDate.Year(),
		EventMonth:   int(eventDate.Month()),
		EventDay:     eventDate.Day(),
		MatchType:    info.Field("match_type").StringOr(""),
		Season:       info.Field("season").StringOr(""),
		TeamType:     info.Field("team_type").StringOr(""),
		OversLimit:   info.Field("overs").IntOr(0),
		Venue:        info.Field("venue").StringOr(""),
		City:         info.Field("city").StringOr(""),
		Gender:       info.Field("gender").StringOr(""),
		TeamA:        teamA,
		TeamB:        teamB,
		MatchResult:  matchResult,
		WinnerTeam:   winnerTeam,
		TossWinner:   toss.Field("winner").StringOr(""),
		TossDecision: capitalize(toss.Field("decision").StringOr("")),
		SourceRawID:  rec.ID,
	}
	if eventDate.IsZero() {
		detail.EventYear, detail.EventMonth, detail.EventDay = 0, 0, 0
	}
	return detail, warnings
}
