/*
 * @module service/scheduler/pipeline_e2e_test
 * @description 数仓转换链的端到端测试，从落地文件一路跑到事实表
 * @architecture 测试驱动开发 - 真实组件装配 + 内存sqlite
 * @stateFlow 文件落地 -> 全链注册激活 -> 手动触发 -> 逐层验证 -> 重放验证
 * @rules 单次触发内按拓扑序完成原始->清洗->维度->事实；二次触发全链无新数据跳过
 * @dependencies testing, testify, testutil
 * @refs pipeline_scheduler.go, service/init.go
 */

package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cricketdw-service/service/dimension"
	"cricketdw-service/service/fact"
	"cricketdw-service/service/flatten"
	"cricketdw-service/service/ingest"
	"cricketdw-service/service/meta"
	"cricketdw-service/service/models"
	"cricketdw-service/service/staging"
	"cricketdw-service/service/tracker"
	"cricketdw-service/testutil"
)

// PipelineE2ETestSuite 端到端测试套件
type PipelineE2ETestSuite struct {
	suite.Suite
	tdb       *testutil.TestDB
	dir       string
	scheduler *PipelineScheduler
	tracker   *tracker.ChangeTracker
}

// SetupTest 装配全链组件并注册全部阶段
func (s *PipelineE2ETestSuite) SetupTest() {
	s.tdb = testutil.NewTestDB()
	s.dir = s.T().TempDir()

	db := s.tdb.DB
	s.tracker = tracker.NewChangeTracker(db)
	ingestor := ingest.NewRawIngestor(db, staging.NewLocalArea(s.dir))
	engine := flatten.NewEngine(db, s.tracker)
	dims := dimension.NewBuilder(db)
	facts := fact.NewBuilder(db)

	s.scheduler = NewPipelineScheduler(db)

	rawRunner := func(ctx context.Context) (*StageOutcome, error) {
		result, err := ingestor.IngestNewFiles(ctx, time.Time{})
		if err != nil {
			return nil, err
		}
		if result.Ingested == 0 && result.Failed == 0 {
			return &StageOutcome{Skipped: true}, nil
		}
		return &StageOutcome{Processed: int64(result.Ingested), Errors: result.Errors}, nil
	}
	syncRunner := func(sync func(context.Context) (*flatten.SyncOutcome, error)) StageRunner {
		return func(ctx context.Context) (*StageOutcome, error) {
			outcome, err := sync(ctx)
			if err != nil {
				return nil, err
			}
			return &StageOutcome{Processed: outcome.Processed, Skipped: outcome.Skipped, Errors: outcome.Errors}, nil
		}
	}
	guarded := func(consumerID, table string, run func(context.Context) (int64, error)) StageRunner {
		return func(ctx context.Context) (*StageOutcome, error) {
			hasNew, maxID, err := s.tracker.HasNew(ctx, consumerID, table)
			if err != nil {
				return nil, err
			}
			if !hasNew {
				return &StageOutcome{Skipped: true}, nil
			}
			processed, err := run(ctx)
			if err != nil {
				return nil, err
			}
			if err := s.tracker.Advance(ctx, consumerID, table, maxID); err != nil {
				return nil, err
			}
			return &StageOutcome{Processed: processed}, nil
		}
	}
	dimRun := func(build func(context.Context) (*dimension.BuildOutcome, error)) func(context.Context) (int64, error) {
		return func(ctx context.Context) (int64, error) {
			outcome, err := build(ctx)
			if err != nil {
				return 0, err
			}
			return outcome.Inserted, nil
		}
	}
	factRun := func(build func(context.Context) (*fact.BuildOutcome, error)) func(context.Context) (int64, error) {
		return func(ctx context.Context) (int64, error) {
			outcome, err := build(ctx)
			if err != nil {
				return 0, err
			}
			return outcome.Inserted, nil
		}
	}

	defs := []*StageDefinition{
		{Name: meta.StageRawIngest, CronExpr: testCron, Runner: rawRunner},
		{Name: meta.StageCleanMatch, CronExpr: testCron, DependsOn: []string{meta.StageRawIngest}, Runner: syncRunner(engine.SyncMatchDetails)},
		{Name: meta.StageCleanPlayer, CronExpr: testCron, DependsOn: []string{meta.StageRawIngest}, Runner: syncRunner(engine.SyncPlayerRosters)},
		{Name: meta.StageCleanDelivery, CronExpr: testCron, DependsOn: []string{meta.StageRawIngest}, Runner: syncRunner(engine.SyncDeliveryEvents)},
		{Name: meta.StageDimTeam, CronExpr: testCron, DependsOn: []string{meta.StageCleanMatch, meta.StageCleanPlayer},
			Runner: guarded(meta.ConsumerDimTeam, meta.TableCleanMatchDetails, dimRun(dims.SyncTeams))},
		{Name: meta.StageDimPlayer, CronExpr: testCron, DependsOn: []string{meta.StageCleanPlayer, meta.StageDimTeam},
			Runner: guarded(meta.ConsumerDimPlayer, meta.TableCleanPlayerRosters, dimRun(dims.SyncPlayers))},
		{Name: meta.StageDimVenue, CronExpr: testCron, DependsOn: []string{meta.StageCleanMatch},
			Runner: guarded(meta.ConsumerDimVenue, meta.TableCleanMatchDetails, dimRun(dims.SyncVenues))},
		{Name: meta.StageDimMatchType, CronExpr: testCron, DependsOn: []string{meta.StageCleanMatch},
			Runner: guarded(meta.ConsumerDimMatchType, meta.TableCleanMatchDetails, dimRun(dims.SyncMatchTypes))},
		{Name: meta.StageDimDate, CronExpr: testCron, DependsOn: []string{meta.StageCleanMatch},
			Runner: guarded(meta.ConsumerDimDate, meta.TableCleanMatchDetails, dimRun(dims.SyncDates))},
		{Name: meta.StageFactMatch, CronExpr: testCron,
			DependsOn: []string{meta.StageCleanDelivery, meta.StageDimTeam, meta.StageDimVenue, meta.StageDimMatchType, meta.StageDimDate},
			Runner:    guarded(meta.ConsumerFactMatch, meta.TableCleanMatchDetails, factRun(facts.SyncMatchFacts))},
		{Name: meta.StageFactDelivery, CronExpr: testCron,
			DependsOn: []string{meta.StageFactMatch, meta.StageDimPlayer},
			Runner:    guarded(meta.ConsumerFactDelivery, meta.TableCleanDeliveryEvent, factRun(facts.SyncDeliveryFacts))},
	}
	for _, def := range defs {
		s.Require().NoError(s.scheduler.RegisterStage(def))
	}
	s.Require().NoError(s.scheduler.Start())
}

// TearDownTest 停止调度器并释放数据库
func (s *PipelineE2ETestSuite) TearDownTest() {
	s.scheduler.Stop()
	s.tdb.Close()
}

// activateAll 先下游后上游激活全部阶段
func (s *PipelineE2ETestSuite) activateAll() {
	order := []string{
		meta.StageFactDelivery,
		meta.StageFactMatch,
		meta.StageDimPlayer,
		meta.StageDimTeam,
		meta.StageDimVenue,
		meta.StageDimMatchType,
		meta.StageDimDate,
		meta.StageCleanDelivery,
		meta.StageCleanPlayer,
		meta.StageCleanMatch,
		meta.StageRawIngest,
	}
	for _, name := range order {
		s.Require().NoError(s.scheduler.Activate(name), name)
	}
}

// TestFullPipeline 单次触发从落地文件跑到事实表
func (s *PipelineE2ETestSuite) TestFullPipeline() {
	ctx := context.Background()
	body := testutil.MarshalMatchDoc(testutil.SampleMatchDoc())
	s.Require().NoError(os.WriteFile(filepath.Join(s.dir, "1384430.json"), body, 0644))

	s.activateAll()

	results, err := s.scheduler.TriggerRun(ctx)
	s.NoError(err)
	s.Len(results, 11)
	s.Equal(int64(1), results[meta.StageRawIngest].Processed)
	s.Equal(int64(1), results[meta.StageCleanMatch].Processed)
	s.Equal(int64(6), results[meta.StageCleanPlayer].Processed)
	s.Equal(int64(2), results[meta.StageCleanDelivery].Processed)
	s.Equal(int64(2), results[meta.StageDimTeam].Processed)
	s.Equal(int64(6), results[meta.StageDimPlayer].Processed)
	s.Equal(int64(1), results[meta.StageFactMatch].Processed)
	s.Equal(int64(2), results[meta.StageFactDelivery].Processed)

	// 消费层验证
	var canada models.DimTeam
	s.NoError(s.tdb.DB.Where("team_name = ?", "Canada").First(&canada).Error)

	var factMatch models.FactMatch
	s.NoError(s.tdb.DB.Where("match_id = ?", "1384430").First(&factMatch).Error)
	s.Equal(canada.TeamID, factMatch.TossWinnerID)
	s.Equal("Field", factMatch.TossDecision)
	s.NotNil(factMatch.WinnerID)

	var teamCount int64
	s.tdb.DB.Model(&models.DimTeam{}).Count(&teamCount)
	s.Equal(int64(2), teamCount)

	// 二次触发：全链无新数据跳过，消费层不变
	results, err = s.scheduler.TriggerRun(ctx)
	s.NoError(err)
	for name, outcome := range results {
		s.True(outcome.Skipped, name)
	}

	var factCount int64
	s.tdb.DB.Model(&models.FactDelivery{}).Count(&factCount)
	s.Equal(int64(2), factCount)
}

// TestIncrementalSecondMatch 第二场比赛落地后只增量处理新比赛
func (s *PipelineE2ETestSuite) TestIncrementalSecondMatch() {
	ctx := context.Background()
	s.Require().NoError(os.WriteFile(filepath.Join(s.dir, "m1.json"),
		testutil.MarshalMatchDoc(testutil.SampleMatchDoc()), 0644))

	s.activateAll()
	_, err := s.scheduler.TriggerRun(ctx)
	s.NoError(err)

	doc2 := testutil.SampleMatchDoc(testutil.WithDates("2023-11-05"))
	s.Require().NoError(os.WriteFile(filepath.Join(s.dir, "m2.json"),
		testutil.MarshalMatchDoc(doc2), 0644))

	results, err := s.scheduler.TriggerRun(ctx)
	s.NoError(err)
	s.Equal(int64(1), results[meta.StageRawIngest].Processed)
	s.Equal(int64(1), results[meta.StageCleanMatch].Processed)
	// 球队与球员维度无新自然键
	s.Equal(int64(0), results[meta.StageDimTeam].Processed)
	s.Equal(int64(0), results[meta.StageDimPlayer].Processed)
	// 新日期获得新的日期键
	s.Equal(int64(1), results[meta.StageDimDate].Processed)
	s.Equal(int64(1), results[meta.StageFactMatch].Processed)

	var matchCount int64
	s.tdb.DB.Model(&models.FactMatch{}).Count(&matchCount)
	s.Equal(int64(2), matchCount)
}

func TestPipelineE2ETestSuite(t *testing.T) {
	suite.Run(t, new(PipelineE2ETestSuite))
}
