/*
 * @module service/flatten/engine_test
 * @description 展平引擎编排的集成测试
 * @architecture 测试驱动开发 - 内存sqlite验证增量同步与幂等
 * @stateFlow 测试准备 -> 原始记录入库 -> 同步执行 -> 清洗层验证 -> 重放验证
 * @rules 覆盖首轮同步、无新数据跳过、游标推进与自然键去重
 * @dependencies testing, testify, testutil
 * @refs engine.go
 */

package flatten

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"cricketdw-service/service/models"
	"cricketdw-service/service/tracker"
	"cricketdw-service/testutil"
)

// EngineTestSuite 展平引擎测试套件
type EngineTestSuite struct {
	suite.Suite
	tdb     *testutil.TestDB
	factory *testutil.TestDataFactory
	engine  *Engine
}

// SetupTest 每个用例前重建干净数据
func (s *EngineTestSuite) SetupTest() {
	s.tdb = testutil.NewTestDB()
	s.factory = testutil.NewTestDataFactory(s.tdb.DB)
	s.engine = NewEngine(s.tdb.DB, tracker.NewChangeTracker(s.tdb.DB))
}

// TearDownTest 释放数据库
func (s *EngineTestSuite) TearDownTest() {
	s.tdb.Close()
}

// TestSyncMatchDetails 首轮同步写入清洗层并推进游标
func (s *EngineTestSuite) TestSyncMatchDetails() {
	ctx := context.Background()
	s.factory.CreateRawMatch("m1", testutil.SampleMatchDoc())

	outcome, err := s.engine.SyncMatchDetails(ctx)
	s.NoError(err)
	s.False(outcome.Skipped)
	s.Equal(int64(1), outcome.Processed)

	var detail models.CleanMatchDetail
	s.NoError(s.tdb.DB.Where("match_id = ?", "m1").First(&detail).Error)
	s.Equal("South Africa", detail.TeamA)
	s.Equal("Canada", detail.TeamB)
	s.Equal("Field", detail.TossDecision)

	// 无新数据时跳过
	outcome, err = s.engine.SyncMatchDetails(ctx)
	s.NoError(err)
	s.True(outcome.Skipped)
}

// TestSyncMatchDetailsDedup 同一比赛的重复原始记录只产出一行明细
func (s *EngineTestSuite) TestSyncMatchDetailsDedup() {
	ctx := context.Background()
	s.factory.CreateRawMatch("m1", testutil.SampleMatchDoc())
	s.factory.CreateRawMatch("m1", testutil.SampleMatchDoc(testutil.WithDates("2023-11-02")))

	outcome, err := s.engine.SyncMatchDetails(ctx)
	s.NoError(err)
	s.Equal(int64(1), outcome.Processed)

	var count int64
	s.tdb.DB.Model(&models.CleanMatchDetail{}).Count(&count)
	s.Equal(int64(1), count)
}

// TestSyncMatchDetailsIncremental 仅处理游标之后的增量
func (s *EngineTestSuite) TestSyncMatchDetailsIncremental() {
	ctx := context.Background()
	s.factory.CreateRawMatch("m1", testutil.SampleMatchDoc())

	_, err := s.engine.SyncMatchDetails(ctx)
	s.NoError(err)

	s.factory.CreateRawMatch("m2", testutil.SampleMatchDoc(testutil.WithDates("2023-11-05")))

	outcome, err := s.engine.SyncMatchDetails(ctx)
	s.NoError(err)
	s.Equal(int64(1), outcome.Processed)

	var count int64
	s.tdb.DB.Model(&models.CleanMatchDetail{}).Count(&count)
	s.Equal(int64(2), count)
}

// TestSyncPlayerRosters 名单同步与自然键去重
func (s *EngineTestSuite) TestSyncPlayerRosters() {
	ctx := context.Background()
	s.factory.CreateRawMatch("m1", testutil.SampleMatchDoc())

	outcome, err := s.engine.SyncPlayerRosters(ctx)
	s.NoError(err)
	// 默认文档两队各三名球员
	s.Equal(int64(6), outcome.Processed)

	// 重放同一比赛（新原始行，相同名单）不产生重复
	s.factory.CreateRawMatch("m1", testutil.SampleMatchDoc(testutil.WithDates("2023-11-02")))
	outcome, err = s.engine.SyncPlayerRosters(ctx)
	s.NoError(err)
	s.Equal(int64(0), outcome.Processed)

	var count int64
	s.tdb.DB.Model(&models.CleanPlayerRoster{}).Count(&count)
	s.Equal(int64(6), count)
}

// TestSyncDeliveryEvents 逐球同步在比赛粒度幂等
func (s *EngineTestSuite) TestSyncDeliveryEvents() {
	ctx := context.Background()
	s.factory.CreateRawMatch("m1", testutil.SampleMatchDoc())

	outcome, err := s.engine.SyncDeliveryEvents(ctx)
	s.NoError(err)
	s.Equal(int64(2), outcome.Processed)

	var rows []models.CleanDeliveryEvent
	s.NoError(s.tdb.DB.Order("delivery_no").Find(&rows).Error)
	s.Len(rows, 2)
	s.Equal("1", rows[0].RunsBatter)
	s.Equal(1, rows[0].OverNo)

	// 同一比赛的新原始行整场跳过
	s.factory.CreateRawMatch("m1", testutil.SampleMatchDoc(testutil.WithDates("2023-11-02")))
	outcome, err = s.engine.SyncDeliveryEvents(ctx)
	s.NoError(err)
	s.Equal(int64(0), outcome.Processed)

	var count int64
	s.tdb.DB.Model(&models.CleanDeliveryEvent{}).Count(&count)
	s.Equal(int64(2), count)
}

// TestSyncDeliveryEventsMissingInnings 缺少逐球数据记录警告但游标照常推进
func (s *EngineTestSuite) TestSyncDeliveryEventsMissingInnings() {
	ctx := context.Background()
	doc := testutil.SampleMatchDoc(testutil.WithInnings([]interface{}{}))
	s.factory.CreateRawMatch("m1", doc)

	outcome, err := s.engine.SyncDeliveryEvents(ctx)
	s.NoError(err)
	s.Equal(int64(0), outcome.Processed)
	s.NotEmpty(outcome.Errors)

	// 游标已推进，下一轮跳过
	outcome, err = s.engine.SyncDeliveryEvents(ctx)
	s.NoError(err)
	s.True(outcome.Skipped)
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}
