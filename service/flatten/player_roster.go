/*
 * @module service/flatten/player_roster
 * @description 球员名单展平，将"球队 -> 球员列表"映射二级展开为(比赛,球队,球员)行
 * @architecture 分层数仓 - 展平引擎
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 原始记录 -> 球队遍历 -> 球员遍历 -> 清洗层名单行
 * @rules 比赛标识、球队或球员名为空的行直接剔除
 * @dependencies cricketdw-service/service/models
 * @refs service/flatten/engine
 */

package flatten

import (
	"sort"

	"cricketdw-service/service/models"
)

// BuildPlayerRoster 将单条原始记录的info.players展平为名单行
// 球队按名称排序遍历，保证同一输入的输出顺序稳定
func BuildPlayerRoster(rec *models.RawMatchRecord) []models.CleanPlayerRoster {
	if rec.MatchID == "" {
		return nil
	}

	players := V(map[string]interface{}(rec.Info)).Field("players")
	teamMap := players.Map()
	if teamMap == nil {
		return nil
	}

	teamNames := make([]string, 0, len(teamMap))
	for name := range teamMap {
		teamNames = append(teamNames, name)
	}
	sort.Strings(teamNames)

	var rows []models.CleanPlayerRoster
	for _, teamName := range teamNames {
		if teamName == "" {
			continue
		}
		for _, player := range players.Field(teamName).Array() {
			playerName := player.StringOr("")
			if playerName == "" {
				continue
			}
			rows = append(rows, models.CleanPlayerRoster{
				MatchID:     rec.MatchID,
				TeamName:    teamName,
				PlayerName:  playerName,
				SourceRawID: rec.ID,
			})
		}
	}
	return rows
}
