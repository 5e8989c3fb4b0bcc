/*
 * @module service/dashboard/team_summary_service
 * @description 看板查询服务，基于消费层维度与事实计算球队比赛摘要
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 每次查询全量重查消费层，不做缓存
 * @rules 只读消费层，不回查清洗层与原始层；无胜方比赛的胜方名称显式返回NA
 * @dependencies gorm.io/gorm
 * @refs api/controllers/dashboard_controller.go
 */

package dashboard

import (
	"context"
	"time"

	"gorm.io/gorm"

	"cricketdw-service/service/meta"
	"cricketdw-service/service/models"
)

// TeamMatchRow 球队摘要中的单场比赛行
type TeamMatchRow struct {
	MatchID          string `json:"match_id" example:"1384430"`
	MatchDate        string `json:"match_date" example:"2023-11-01"`
	OpponentTeamName string `json:"opponent_team_name" example:"Canada"`
	WinnerTeamName   string `json:"winner_team_name" example:"South Africa"`
}

// TeamSummary 球队比赛摘要
type TeamSummary struct {
	TeamName     string         `json:"team_name" example:"South Africa"`
	TotalMatches int            `json:"total_matches" example:"12"`
	MatchesWon   int            `json:"matches_won" example:"8"`
	Matches      []TeamMatchRow `json:"matches"`
}

// Service 看板查询服务
type Service struct {
	db *gorm.DB
}

// NewService 创建看板查询服务实例
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// TeamSummary 计算指定球队的比赛摘要
// 球队不存在时返回 gorm.ErrRecordNotFound
func (s *Service) TeamSummary(ctx context.Context, teamName string) (*TeamSummary, error) {
	var team models.DimTeam
	if err := s.db.WithContext(ctx).Where("team_name = ?", teamName).First(&team).Error; err != nil {
		return nil, err
	}

	var facts []models.FactMatch
	if err := s.db.WithContext(ctx).
		Where("team_a_id = ? OR team_b_id = ?", team.TeamID, team.TeamID).
		Order("date_id, match_id").
		Find(&facts).Error; err != nil {
		return nil, err
	}

	teamNameByID, err := s.teamNames(ctx)
	if err != nil {
		return nil, err
	}
	dateByID, err := s.dates(ctx)
	if err != nil {
		return nil, err
	}

	summary := &TeamSummary{
		TeamName: team.TeamName,
		Matches:  make([]TeamMatchRow, 0, len(facts)),
	}
	for _, f := range facts {
		opponentID := f.TeamAID
		if opponentID == team.TeamID {
			opponentID = f.TeamBID
		}

		winnerName := meta.SentinelNA
		if f.WinnerID != nil {
			winnerName = teamNameByID[*f.WinnerID]
			if *f.WinnerID == team.TeamID {
				summary.MatchesWon++
			}
		}

		matchDate := ""
		if d, ok := dateByID[f.DateID]; ok {
			matchDate = d.Format("2006-01-02")
		}

		summary.Matches = append(summary.Matches, TeamMatchRow{
			MatchID:          f.MatchID,
			MatchDate:        matchDate,
			OpponentTeamName: teamNameByID[opponentID],
			WinnerTeamName:   winnerName,
		})
	}
	summary.TotalMatches = len(summary.Matches)

	return summary, nil
}

func (s *Service) teamNames(ctx context.Context) (map[uint]string, error) {
	var teams []models.DimTeam
	if err := s.db.WithContext(ctx).Find(&teams).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]string, len(teams))
	for _, t := range teams {
		byID[t.TeamID] = t.TeamName
	}
	return byID, nil
}

func (s *Service) dates(ctx context.Context) (map[uint]time.Time, error) {
	var dates []models.DimDate
	if err := s.db.WithContext(ctx).Find(&dates).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]time.Time, len(dates))
	for _, d := range dates {
		byID[d.DateID] = d.FullDate
	}
	return byID, nil
}
