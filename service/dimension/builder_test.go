/*
 * @module service/dimension/builder_test
 * @description 维度构建器的集成测试
 * @architecture 测试驱动开发 - 内存sqlite验证差集追加与幂等
 * @stateFlow 测试准备 -> 清洗层数据入库 -> 维度构建 -> 代理键验证 -> 重放验证
 * @rules 覆盖自然键去重、二次构建零插入与日期键跨批次稳定
 * @dependencies testing, testify, testutil
 * @refs builder.go, date_builder.go
 */

package dimension

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cricketdw-service/service/meta"
	"cricketdw-service/service/models"
	"cricketdw-service/testutil"
)

// BuilderTestSuite 维度构建器测试套件
type BuilderTestSuite struct {
	suite.Suite
	tdb     *testutil.TestDB
	builder *Builder
}

// SetupTest 每个用例前重建干净数据
func (s *BuilderTestSuite) SetupTest() {
	s.tdb = testutil.NewTestDB()
	s.builder = NewBuilder(s.tdb.DB)
}

// TearDownTest 释放数据库
func (s *BuilderTestSuite) TearDownTest() {
	s.tdb.Close()
}

// seedMatchDetail 写入一行清洗层比赛明细
func (s *BuilderTestSuite) seedMatchDetail(matchID, teamA, teamB, venue, city, matchType string, date time.Time) {
	s.Require().NoError(s.tdb.DB.Create(&models.CleanMatchDetail{
		MatchID:   matchID,
		TeamA:     teamA,
		TeamB:     teamB,
		Venue:     venue,
		City:      city,
		MatchType: matchType,
		EventDate: date,
	}).Error)
}

// seedRoster 写入一行清洗层名单
func (s *BuilderTestSuite) seedRoster(matchID, team, player string) {
	s.Require().NoError(s.tdb.DB.Create(&models.CleanPlayerRoster{
		MatchID:    matchID,
		TeamName:   team,
		PlayerName: player,
	}).Error)
}

// TestSyncTeams 球队候选来自名单与比赛明细的并集
func (s *BuilderTestSuite) TestSyncTeams() {
	ctx := context.Background()
	s.seedMatchDetail("m1", "South Africa", "Canada", "Willowmoore Park", "Benoni", "ODI", time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC))
	s.seedRoster("m1", "Canada", "A Johnson")
	s.seedRoster("m2", "Netherlands", "MP O'Dowd")

	outcome, err := s.builder.SyncTeams(ctx)
	s.NoError(err)
	s.Equal(int64(3), outcome.Inserted)

	var teams []models.DimTeam
	s.NoError(s.tdb.DB.Order("team_name").Find(&teams).Error)
	s.Len(teams, 3)
	s.Equal("Canada", teams[0].TeamName)
	s.Equal("Netherlands", teams[1].TeamName)
	s.Equal("South Africa", teams[2].TeamName)

	// 二次构建零插入，代理键不变
	firstID := teams[0].TeamID
	outcome, err = s.builder.SyncTeams(ctx)
	s.NoError(err)
	s.Equal(int64(0), outcome.Inserted)

	var again models.DimTeam
	s.NoError(s.tdb.DB.Where("team_name = ?", "Canada").First(&again).Error)
	s.Equal(firstID, again.TeamID)
}

// TestSyncPlayers 球员维度依赖球队维度，未知球队跳过等待下一轮
func (s *BuilderTestSuite) TestSyncPlayers() {
	ctx := context.Background()
	s.seedRoster("m1", "Canada", "A Johnson")
	s.seedRoster("m1", "Canada", "N Dutta")
	s.seedRoster("m2", "Ghost Team", "Nobody")

	_, err := s.builder.SyncTeams(ctx)
	s.NoError(err)
	// 故意删除Ghost Team模拟球队维度尚未覆盖
	s.tdb.DB.Where("team_name = ?", "Ghost Team").Delete(&models.DimTeam{})

	outcome, err := s.builder.SyncPlayers(ctx)
	s.NoError(err)
	s.Equal(int64(2), outcome.Inserted)

	var players []models.DimPlayer
	s.NoError(s.tdb.DB.Order("player_name").Find(&players).Error)
	s.Len(players, 2)
	s.Equal("A Johnson", players[0].PlayerName)

	// 重放零插入
	outcome, err = s.builder.SyncPlayers(ctx)
	s.NoError(err)
	s.Equal(int64(0), outcome.Inserted)
}

// TestSyncVenues 空城市在自然键比较前规范化为NA
func (s *BuilderTestSuite) TestSyncVenues() {
	ctx := context.Background()
	s.seedMatchDetail("m1", "A", "B", "Willowmoore Park", "Benoni", "ODI", time.Time{})
	s.seedMatchDetail("m2", "A", "B", "Tribhuvan University", "", "ODI", time.Time{})
	s.seedMatchDetail("m3", "A", "B", "Tribhuvan University", "", "T20", time.Time{})

	outcome, err := s.builder.SyncVenues(ctx)
	s.NoError(err)
	s.Equal(int64(2), outcome.Inserted)

	var venue models.DimVenue
	s.NoError(s.tdb.DB.Where("venue_name = ?", "Tribhuvan University").First(&venue).Error)
	s.Equal(meta.SentinelNA, venue.City)

	outcome, err = s.builder.SyncVenues(ctx)
	s.NoError(err)
	s.Equal(int64(0), outcome.Inserted)
}

// TestSyncMatchTypes 赛制维度按赛制串去重
func (s *BuilderTestSuite) TestSyncMatchTypes() {
	ctx := context.Background()
	s.seedMatchDetail("m1", "A", "B", "v", "c", "ODI", time.Time{})
	s.seedMatchDetail("m2", "A", "B", "v", "c", "T20", time.Time{})
	s.seedMatchDetail("m3", "A", "B", "v", "c", "ODI", time.Time{})

	outcome, err := s.builder.SyncMatchTypes(ctx)
	s.NoError(err)
	s.Equal(int64(2), outcome.Inserted)

	outcome, err = s.builder.SyncMatchTypes(ctx)
	s.NoError(err)
	s.Equal(int64(0), outcome.Inserted)
}

// TestSyncDates 日期键升序分配且跨批次稳定
func (s *BuilderTestSuite) TestSyncDates() {
	ctx := context.Background()
	s.seedMatchDetail("m1", "A", "B", "v", "c", "ODI", time.Date(2023, 11, 3, 0, 0, 0, 0, time.UTC))
	s.seedMatchDetail("m2", "A", "B", "v", "c", "ODI", time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC))

	outcome, err := s.builder.SyncDates(ctx)
	s.NoError(err)
	s.Equal(int64(2), outcome.Inserted)

	var earlier, later models.DimDate
	s.NoError(s.tdb.DB.Where("year = ? AND month = ? AND day = ?", 2023, 11, 1).First(&earlier).Error)
	s.NoError(s.tdb.DB.Where("year = ? AND month = ? AND day = ?", 2023, 11, 3).First(&later).Error)
	s.Equal(uint(1), earlier.DateID)
	s.Equal(uint(2), later.DateID)

	// 后到的更早日期延续最大键分配，已有键永不重算
	s.seedMatchDetail("m3", "A", "B", "v", "c", "ODI", time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC))
	outcome, err = s.builder.SyncDates(ctx)
	s.NoError(err)
	s.Equal(int64(1), outcome.Inserted)

	var october models.DimDate
	s.NoError(s.tdb.DB.Where("year = ? AND month = ?", 2023, 10).First(&october).Error)
	s.Equal(uint(3), october.DateID)

	s.NoError(s.tdb.DB.Where("year = ? AND month = ? AND day = ?", 2023, 11, 1).First(&earlier).Error)
	s.Equal(uint(1), earlier.DateID)
}

// TestExpandDate 日历属性展开
func (s *BuilderTestSuite) TestExpandDate() {
	d := expandDate(5, time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC)) // 周三
	s.Equal(uint(5), d.DateID)
	s.Equal(4, d.Quarter)
	s.Equal(3, d.DayOfWeek)
	s.Equal(305, d.DayOfYear)
	s.Equal("Wednesday", d.DayName)
	s.False(d.IsWeekend)

	sunday := expandDate(6, time.Date(2023, 11, 5, 0, 0, 0, 0, time.UTC))
	s.Equal(7, sunday.DayOfWeek)
	s.True(sunday.IsWeekend)
}

func TestBuilderTestSuite(t *testing.T) {
	suite.Run(t, new(BuilderTestSuite))
}
