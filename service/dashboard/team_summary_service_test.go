/*
 * @module service/dashboard/team_summary_service_test
 * @description 看板查询服务的集成测试
 * @architecture 测试驱动开发 - 内存sqlite直接铺设消费层数据
 * @stateFlow 维度与事实入库 -> 摘要查询 -> 聚合计数与行形状验证
 * @rules 覆盖胜场计数、对手名解析、无胜方NA行与球队不存在错误
 * @dependencies testing, testify, testutil
 * @refs team_summary_service.go
 */

package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"cricketdw-service/service/meta"
	"cricketdw-service/service/models"
	"cricketdw-service/testutil"
)

// TeamSummaryTestSuite 看板查询服务测试套件
type TeamSummaryTestSuite struct {
	suite.Suite
	tdb     *testutil.TestDB
	service *Service

	sa          models.DimTeam
	canada      models.DimTeam
	netherlands models.DimTeam
}

// SetupTest 每个用例前重建干净数据并铺设维度
func (s *TeamSummaryTestSuite) SetupTest() {
	s.tdb = testutil.NewTestDB()
	s.service = NewService(s.tdb.DB)

	s.sa = models.DimTeam{TeamName: "South Africa"}
	s.canada = models.DimTeam{TeamName: "Canada"}
	s.netherlands = models.DimTeam{TeamName: "Netherlands"}
	s.Require().NoError(s.tdb.DB.Create(&s.sa).Error)
	s.Require().NoError(s.tdb.DB.Create(&s.canada).Error)
	s.Require().NoError(s.tdb.DB.Create(&s.netherlands).Error)

	dates := []models.DimDate{
		{DateID: 1, FullDate: time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC), Day: 1, Month: 11, Year: 2023},
		{DateID: 2, FullDate: time.Date(2023, 11, 5, 0, 0, 0, 0, time.UTC), Day: 5, Month: 11, Year: 2023},
	}
	for _, d := range dates {
		s.Require().NoError(s.tdb.DB.Create(&d).Error)
	}
}

// TearDownTest 释放数据库
func (s *TeamSummaryTestSuite) TearDownTest() {
	s.tdb.Close()
}

// seedFact 写入一行比赛事实
func (s *TeamSummaryTestSuite) seedFact(matchID string, dateID, teamAID, teamBID uint, winnerID *uint) {
	s.Require().NoError(s.tdb.DB.Create(&models.FactMatch{
		MatchID:      matchID,
		DateID:       dateID,
		TeamAID:      teamAID,
		TeamBID:      teamBID,
		MatchTypeID:  1,
		VenueID:      1,
		TossWinnerID: teamAID,
		WinnerID:     winnerID,
		MatchResult:  meta.MatchResultDeclared,
	}).Error)
}

// TestTeamSummary 胜场计数与对手名解析
func (s *TeamSummaryTestSuite) TestTeamSummary() {
	ctx := context.Background()
	// 南非胜加拿大；荷兰胜南非；南非作为B方出场
	s.seedFact("m1", 1, s.sa.TeamID, s.canada.TeamID, &s.sa.TeamID)
	s.seedFact("m2", 2, s.netherlands.TeamID, s.sa.TeamID, &s.netherlands.TeamID)

	summary, err := s.service.TeamSummary(ctx, "South Africa")
	s.NoError(err)
	s.Equal("South Africa", summary.TeamName)
	s.Equal(2, summary.TotalMatches)
	s.Equal(1, summary.MatchesWon)
	s.Len(summary.Matches, 2)

	// 按日期键排序
	s.Equal("m1", summary.Matches[0].MatchID)
	s.Equal("2023-11-01", summary.Matches[0].MatchDate)
	s.Equal("Canada", summary.Matches[0].OpponentTeamName)
	s.Equal("South Africa", summary.Matches[0].WinnerTeamName)

	s.Equal("m2", summary.Matches[1].MatchID)
	s.Equal("2023-11-05", summary.Matches[1].MatchDate)
	s.Equal("Netherlands", summary.Matches[1].OpponentTeamName)
	s.Equal("Netherlands", summary.Matches[1].WinnerTeamName)
}

// TestTeamSummaryNoWinner 无胜方比赛计入总场次但不计胜场，胜方名为NA
func (s *TeamSummaryTestSuite) TestTeamSummaryNoWinner() {
	ctx := context.Background()
	s.seedFact("m1", 1, s.sa.TeamID, s.canada.TeamID, nil)

	summary, err := s.service.TeamSummary(ctx, "South Africa")
	s.NoError(err)
	s.Equal(1, summary.TotalMatches)
	s.Equal(0, summary.MatchesWon)
	s.Equal(meta.SentinelNA, summary.Matches[0].WinnerTeamName)
	s.Equal("Canada", summary.Matches[0].OpponentTeamName)
}

// TestTeamSummaryOpponentWins 对手胜场不计入本队胜场
func (s *TeamSummaryTestSuite) TestTeamSummaryOpponentWins() {
	ctx := context.Background()
	s.seedFact("m1", 1, s.sa.TeamID, s.canada.TeamID, &s.canada.TeamID)

	summary, err := s.service.TeamSummary(ctx, "South Africa")
	s.NoError(err)
	s.Equal(1, summary.TotalMatches)
	s.Equal(0, summary.MatchesWon)
	s.Equal("Canada", summary.Matches[0].WinnerTeamName)

	// 对手视角：同一场比赛计入加拿大胜场
	summary, err = s.service.TeamSummary(ctx, "Canada")
	s.NoError(err)
	s.Equal(1, summary.MatchesWon)
	s.Equal("South Africa", summary.Matches[0].OpponentTeamName)
}

// TestTeamSummaryEmpty 无比赛的球队返回空摘要
func (s *TeamSummaryTestSuite) TestTeamSummaryEmpty() {
	summary, err := s.service.TeamSummary(context.Background(), "Netherlands")
	s.NoError(err)
	s.Equal(0, summary.TotalMatches)
	s.Equal(0, summary.MatchesWon)
	s.Empty(summary.Matches)
}

// TestTeamSummaryUnknownTeam 球队不存在返回记录未找到
func (s *TeamSummaryTestSuite) TestTeamSummaryUnknownTeam() {
	_, err := s.service.TeamSummary(context.Background(), "Ghost Team")
	s.Error(err)
	s.True(errors.Is(err, gorm.ErrRecordNotFound))
}

func TestTeamSummaryTestSuite(t *testing.T) {
	suite.Run(t, new(TeamSummaryTestSuite))
}
