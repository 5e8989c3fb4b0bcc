/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、表结构迁移、管道阶段注册与调度器启动
 * @architecture 分层架构 - 服务层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 应用启动时执行初始化流程：连接数据库 -> 迁移 -> 组装组件 -> 注册阶段 -> 启动调度器
 * @rules 确保所有依赖服务正常启动后才提供API服务；阶段注册后默认处于挂起态，需显式激活
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres, github.com/robfig/cron/v3
 * @refs dev_docs/model.md
 */

package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"cricketdw-service/service/cleanup"
	"cricketdw-service/service/dashboard"
	"cricketdw-service/service/database"
	"cricketdw-service/service/dimension"
	"cricketdw-service/service/distributed_lock"
	"cricketdw-service/service/fact"
	"cricketdw-service/service/flatten"
	"cricketdw-service/service/ingest"
	"cricketdw-service/service/meta"
	"cricketdw-service/service/scheduler"
	"cricketdw-service/service/staging"
	"cricketdw-service/service/tracker"
)

var (
	DB                      *gorm.DB
	GlobalChangeTracker     *tracker.ChangeTracker
	GlobalRawIngestor       *ingest.RawIngestor
	GlobalFlattenEngine     *flatten.Engine
	GlobalDimensionBuilder  *dimension.Builder
	GlobalFactBuilder       *fact.Builder
	GlobalPipelineScheduler *scheduler.PipelineScheduler
	GlobalRunCleanupService *cleanup.RunCleanupService
	GlobalDashboardService  *dashboard.Service
)

func init() {
	initDatabase()
	runMigrations()
	initServices()
}

// initDatabase 初始化数据库连接
func initDatabase() {
	var dsn string

	// 优先使用DATABASE_URL环境变量
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		dsn = databaseURL
	} else {
		// 使用分离的环境变量构建连接字符串
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "cricket2024")
		dbname := getEnvWithDefault("DB_NAME", "postgres")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")
		schema := getEnvWithDefault("DB_SCHEMA", "public")

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s TimeZone=UTC",
			host, port, user, password, dbname, sslmode, schema)
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	log.Println("数据库连接成功")
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// runMigrations 运行数据库迁移
func runMigrations() {
	log.Println("开始运行数据库迁移...")

	if err := database.AutoMigrate(DB); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	log.Println("数据库表结构迁移完成")
}

// initServices 初始化服务组件并启动管道调度器
func initServices() {
	stagingDir := getEnvWithDefault("STAGING_DIR", "./staging")

	GlobalChangeTracker = tracker.NewChangeTracker(DB)
	GlobalRawIngestor = ingest.NewRawIngestor(DB, staging.NewLocalArea(stagingDir))
	GlobalFlattenEngine = flatten.NewEngine(DB, GlobalChangeTracker)
	GlobalDimensionBuilder = dimension.NewBuilder(DB)
	GlobalFactBuilder = fact.NewBuilder(DB)
	GlobalDashboardService = dashboard.NewService(DB)
	GlobalPipelineScheduler = scheduler.NewPipelineScheduler(DB)

	// 多实例部署时通过Redis分布式锁保证同一阶段只在一个实例上执行
	if os.Getenv("REDIS_HOST") != "" {
		lock, err := distributed_lock.NewRedisLock()
		if err != nil {
			log.Printf("Redis分布式锁初始化失败，退化为单实例模式: %v", err)
		} else {
			GlobalPipelineScheduler.SetLock(lock)
		}
	}

	if err := registerPipelineStages(GlobalPipelineScheduler); err != nil {
		log.Fatalf("注册管道阶段失败: %v", err)
	}

	if err := GlobalPipelineScheduler.Start(); err != nil {
		log.Fatalf("启动管道调度器失败: %v", err)
	}

	GlobalRunCleanupService = cleanup.NewRunCleanupService(DB)
	if err := GlobalRunCleanupService.StartScheduledCleanup(); err != nil {
		log.Fatalf("启动运行记录清理调度器失败: %v", err)
	}

	log.Println("服务初始化完成")
}

// registerPipelineStages 注册数仓转换链的全部阶段
// 依赖边：原始摄取 -> 清洗 -> 维度 -> 事实；球员维度额外依赖球队维度先行分配代理键
func registerPipelineStages(s *scheduler.PipelineScheduler) error {
	defs := []*scheduler.StageDefinition{
		{
			Name:     meta.StageRawIngest,
			CronExpr: stageCron(meta.StageRawIngest, "0 */5 * * * *"),
			Runner:   runRawIngest,
		},
		{
			Name:      meta.StageCleanMatch,
			CronExpr:  stageCron(meta.StageCleanMatch, "15 */5 * * * *"),
			DependsOn: []string{meta.StageRawIngest},
			Runner:    syncRunner(GlobalFlattenEngine.SyncMatchDetails),
		},
		{
			Name:      meta.StageCleanPlayer,
			CronExpr:  stageCron(meta.StageCleanPlayer, "15 */5 * * * *"),
			DependsOn: []string{meta.StageRawIngest},
			Runner:    syncRunner(GlobalFlattenEngine.SyncPlayerRosters),
		},
		{
			Name:      meta.StageCleanDelivery,
			CronExpr:  stageCron(meta.StageCleanDelivery, "15 */5 * * * *"),
			DependsOn: []string{meta.StageRawIngest},
			Runner:    syncRunner(GlobalFlattenEngine.SyncDeliveryEvents),
		},
		{
			Name:      meta.StageDimTeam,
			CronExpr:  stageCron(meta.StageDimTeam, "30 */5 * * * *"),
			DependsOn: []string{meta.StageCleanMatch, meta.StageCleanPlayer},
			Runner: guardedRunner(meta.ConsumerDimTeam, meta.TableCleanMatchDetails,
				buildRunner(GlobalDimensionBuilder.SyncTeams)),
		},
		{
			Name:      meta.StageDimPlayer,
			CronExpr:  stageCron(meta.StageDimPlayer, "45 */5 * * * *"),
			DependsOn: []string{meta.StageCleanPlayer, meta.StageDimTeam},
			Runner: guardedRunner(meta.ConsumerDimPlayer, meta.TableCleanPlayerRosters,
				buildRunner(GlobalDimensionBuilder.SyncPlayers)),
		},
		{
			Name:      meta.StageDimVenue,
			CronExpr:  stageCron(meta.StageDimVenue, "30 */5 * * * *"),
			DependsOn: []string{meta.StageCleanMatch},
			Runner: guardedRunner(meta.ConsumerDimVenue, meta.TableCleanMatchDetails,
				buildRunner(GlobalDimensionBuilder.SyncVenues)),
		},
		{
			Name:      meta.StageDimMatchType,
			CronExpr:  stageCron(meta.StageDimMatchType, "30 */5 * * * *"),
			DependsOn: []string{meta.StageCleanMatch},
			Runner: guardedRunner(meta.ConsumerDimMatchType, meta.TableCleanMatchDetails,
				buildRunner(GlobalDimensionBuilder.SyncMatchTypes)),
		},
		{
			Name:      meta.StageDimDate,
			CronExpr:  stageCron(meta.StageDimDate, "30 */5 * * * *"),
			DependsOn: []string{meta.StageCleanMatch},
			Runner: guardedRunner(meta.ConsumerDimDate, meta.TableCleanMatchDetails,
				buildRunner(GlobalDimensionBuilder.SyncDates)),
		},
		{
			Name:     meta.StageFactMatch,
			CronExpr: stageCron(meta.StageFactMatch, "0 1/5 * * * *"),
			DependsOn: []string{
				meta.StageCleanDelivery,
				meta.StageDimTeam,
				meta.StageDimVenue,
				meta.StageDimMatchType,
				meta.StageDimDate,
			},
			Runner: guardedRunner(meta.ConsumerFactMatch, meta.TableCleanMatchDetails,
				factRunner(GlobalFactBuilder.SyncMatchFacts)),
		},
		{
			Name:      meta.StageFactDelivery,
			CronExpr:  stageCron(meta.StageFactDelivery, "15 1/5 * * * *"),
			DependsOn: []string{meta.StageFactMatch, meta.StageDimPlayer},
			Runner: guardedRunner(meta.ConsumerFactDelivery, meta.TableCleanDeliveryEvent,
				factRunner(GlobalFactBuilder.SyncDeliveryFacts)),
		},
	}

	for _, def := range defs {
		if err := s.RegisterStage(def); err != nil {
			return err
		}
	}
	return nil
}

// stageCron 解析阶段的cron节拍，PIPELINE_CRON_<阶段名大写>环境变量可覆盖默认值
func stageCron(stageName, defaultExpr string) string {
	key := "PIPELINE_CRON_" + strings.ToUpper(stageName)
	return getEnvWithDefault(key, defaultExpr)
}

// runRawIngest 原始摄取阶段执行体
// 每个节拍全量列举落地目录，依赖内容哈希去重保证重复列举不产生重复行
func runRawIngest(ctx context.Context) (*scheduler.StageOutcome, error) {
	result, err := GlobalRawIngestor.IngestNewFiles(ctx, time.Time{})
	if err != nil {
		return nil, err
	}
	if result.Ingested == 0 && result.Failed == 0 {
		return &scheduler.StageOutcome{Skipped: true}, nil
	}
	return &scheduler.StageOutcome{
		Processed: int64(result.Ingested),
		Errors:    result.Errors,
	}, nil
}

// syncRunner 将清洗引擎的同步操作适配为阶段执行体，游标推进由引擎自身负责
func syncRunner(sync func(ctx context.Context) (*flatten.SyncOutcome, error)) scheduler.StageRunner {
	return func(ctx context.Context) (*scheduler.StageOutcome, error) {
		outcome, err := sync(ctx)
		if err != nil {
			return nil, err
		}
		return &scheduler.StageOutcome{
			Processed: outcome.Processed,
			Skipped:   outcome.Skipped,
			Errors:    outcome.Errors,
		}, nil
	}
}

// buildRunner 将维度构建操作适配为阶段执行体
func buildRunner(build func(ctx context.Context) (*dimension.BuildOutcome, error)) scheduler.StageRunner {
	return func(ctx context.Context) (*scheduler.StageOutcome, error) {
		outcome, err := build(ctx)
		if err != nil {
			return nil, err
		}
		return &scheduler.StageOutcome{Processed: outcome.Inserted}, nil
	}
}

// factRunner 将事实构建操作适配为阶段执行体
func factRunner(build func(ctx context.Context) (*fact.BuildOutcome, error)) scheduler.StageRunner {
	return func(ctx context.Context) (*scheduler.StageOutcome, error) {
		outcome, err := build(ctx)
		if err != nil {
			return nil, err
		}
		return &scheduler.StageOutcome{
			Processed: outcome.Inserted,
			Errors:    outcome.Errors,
		}, nil
	}
}

// guardedRunner 为维度与事实阶段包装新数据守卫：
// 来源表无新行时跳过本节拍；执行成功后推进游标到本次观察的最大行号
func guardedRunner(consumerID, sourceTable string, run scheduler.StageRunner) scheduler.StageRunner {
	return func(ctx context.Context) (*scheduler.StageOutcome, error) {
		hasNew, maxID, err := GlobalChangeTracker.HasNew(ctx, consumerID, sourceTable)
		if err != nil {
			return nil, err
		}
		if !hasNew {
			return &scheduler.StageOutcome{Skipped: true}, nil
		}
		outcome, err := run(ctx)
		if err != nil {
			return nil, err
		}
		if err := GlobalChangeTracker.Advance(ctx, consumerID, sourceTable, maxID); err != nil {
			return nil, err
		}
		return outcome, nil
	}
}
