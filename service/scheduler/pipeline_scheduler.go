/**
 * @module PipelineScheduler
 * @description 管道调度器，将数仓转换链建模为依赖图并按cron节拍触发各阶段
 * @architecture 基于Go协程和cron定时器的调度器模式
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 阶段注册 -> 图校验 -> 激活(先下游后上游) -> 节拍触发 -> 守卫判断 -> 执行
 * @rules 激活必须先下游后上游；上游从未成功过的阶段本轮跳过；失败不重试等待下一节拍
 * @dependencies gorm, cron库, cricketdw-service/service/models
 * @refs service/flatten, service/dimension, service/fact
 */

package scheduler

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"cricketdw-service/service/distributed_lock"
	"cricketdw-service/service/meta"
	"cricketdw-service/service/models"
)

// stageLockTTL 阶段分布式锁的过期时间，覆盖单个节拍的最长执行时长
const stageLockTTL = 10 * time.Minute

// StageOutcome 一次阶段执行的结果
type StageOutcome struct {
	Processed int64    `json:"processed"`
	Skipped   bool     `json:"skipped"`
	Errors    []string `json:"errors,omitempty"`
}

// StageRunner 阶段执行体，Skipped表示上游无新数据的守卫跳过
type StageRunner func(ctx context.Context) (*StageOutcome, error)

// StageDefinition 阶段定义：名称、触发节拍、上游依赖与执行体
type StageDefinition struct {
	Name      string
	CronExpr  string
	DependsOn []string
	Runner    StageRunner
}

// PipelineScheduler 管道调度器
type PipelineScheduler struct {
	db         *gorm.DB
	cron       *cron.Cron
	stages     map[string]*StageDefinition
	dependents map[string][]string
	order      []string
	entries    map[string]cron.EntryID
	running    map[string]bool
	lock       distributed_lock.DistributedLock
	mutex      sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewPipelineScheduler 创建管道调度器实例
func NewPipelineScheduler(db *gorm.DB) *PipelineScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &PipelineScheduler{
		db:         db,
		cron:       cron.New(cron.WithSeconds()),
		stages:     make(map[string]*StageDefinition),
		dependents: make(map[string][]string),
		entries:    make(map[string]cron.EntryID),
		running:    make(map[string]bool),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// SetLock 挂载分布式锁，多实例部署时同一阶段同一节拍只在一个实例上执行
// 未挂载时退化为进程内互斥
func (s *PipelineScheduler) SetLock(lock distributed_lock.DistributedLock) {
	s.lock = lock
}

// RegisterStage 注册一个阶段并持久化其配置
// 已存在的阶段保留当前状态，仅刷新节拍与依赖配置
func (s *PipelineScheduler) RegisterStage(def *StageDefinition) error {
	if def.Name == "" || def.Runner == nil {
		return fmt.Errorf("阶段定义不完整")
	}
	if _, exists := s.stages[def.Name]; exists {
		return fmt.Errorf("阶段已注册: %s", def.Name)
	}
	s.stages[def.Name] = def

	stage := &models.PipelineStage{
		StageName: def.Name,
		CronExpr:  def.CronExpr,
		DependsOn: def.DependsOn,
		Status:    meta.StageStatusSuspended,
	}
	if err := s.db.Where("stage_name = ?", def.Name).FirstOrCreate(stage).Error; err != nil {
		return fmt.Errorf("持久化阶段失败 [%s]: %w", def.Name, err)
	}
	if stage.CronExpr != def.CronExpr || len(stage.DependsOn) != len(def.DependsOn) {
		updates := map[string]interface{}{
			"cron_expr":  def.CronExpr,
			"depends_on": models.JSONBStringArray(def.DependsOn),
		}
		if err := s.db.Model(&models.PipelineStage{}).
			Where("stage_name = ?", def.Name).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("刷新阶段配置失败 [%s]: %w", def.Name, err)
		}
	}
	return nil
}

// Start 校验依赖图并启动cron调度器
func (s *PipelineScheduler) Start() error {
	if err := s.validateGraph(); err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("管道调度器启动完成，共 %d 个阶段", len(s.stages))
	return nil
}

// Stop 停止调度器
func (s *PipelineScheduler) Stop() {
	s.cancel()
	s.cron.Stop()
	log.Println("管道调度器已停止")
}

// validateGraph 校验依赖图为有向无环图并计算拓扑序（Kahn算法）
func (s *PipelineScheduler) validateGraph() error {
	inDegree := make(map[string]int, len(s.stages))
	s.dependents = make(map[string][]string)
	for name, def := range s.stages {
		if _, ok := inDegree[name]; !ok {
			inDegree[name] = 0
		}
		for _, dep := range def.DependsOn {
			if _, ok := s.stages[dep]; !ok {
				return fmt.Errorf("阶段 %s 依赖未注册的阶段 %s", name, dep)
			}
			s.dependents[dep] = append(s.dependents[dep], name)
			inDegree[name]++
		}
	}

	var queue []string
	for name, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	s.order = s.order[:0]
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		s.order = append(s.order, name)

		next := append([]string(nil), s.dependents[name]...)
		sort.Strings(next)
		for _, child := range next {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}
	if len(s.order) != len(s.stages) {
		return fmt.Errorf("依赖图存在环")
	}
	return nil
}

// Activate 激活阶段并挂载cron节拍
// 激活顺序强制先下游后上游：存在未激活的下游阶段时拒绝激活
func (s *PipelineScheduler) Activate(name string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	def, ok := s.stages[name]
	if !ok {
		return fmt.Errorf("阶段未注册: %s", name)
	}

	for _, child := range s.dependents[name] {
		childStage, err := s.stageRow(child)
		if err != nil {
			return err
		}
		if !childStage.IsActive() {
			return fmt.Errorf("必须先激活下游阶段 %s 再激活 %s", child, name)
		}
	}

	stage, err := s.stageRow(name)
	if err != nil {
		return err
	}
	if stage.IsActive() {
		return nil
	}

	entryID, err := s.cron.AddFunc(def.CronExpr, func() {
		if _, err := s.runStage(s.ctx, name); err != nil {
			log.Printf("阶段执行失败 [%s]: %v", name, err)
		}
	})
	if err != nil {
		return fmt.Errorf("挂载cron节拍失败 [%s]: %w", name, err)
	}
	s.entries[name] = entryID

	if err := s.setStatus(name, meta.StageStatusScheduled); err != nil {
		return err
	}
	log.Printf("阶段已激活: %s [%s]", name, def.CronExpr)
	return nil
}

// Deactivate 挂起阶段并卸载cron节拍
// 挂起顺序与激活相反：存在仍处激活态的上游阶段时拒绝挂起
func (s *PipelineScheduler) Deactivate(name string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	def, ok := s.stages[name]
	if !ok {
		return fmt.Errorf("阶段未注册: %s", name)
	}

	for _, dep := range def.DependsOn {
		depStage, err := s.stageRow(dep)
		if err != nil {
			return err
		}
		if depStage.IsActive() {
			return fmt.Errorf("必须先挂起上游阶段 %s 再挂起 %s", dep, name)
		}
	}

	if entryID, ok := s.entries[name]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, name)
	}
	if err := s.setStatus(name, meta.StageStatusSuspended); err != nil {
		return err
	}
	log.Printf("阶段已挂起: %s", name)
	return nil
}

// Status 查询单个阶段的持久化状态
func (s *PipelineScheduler) Status(name string) (*models.PipelineStage, error) {
	if _, ok := s.stages[name]; !ok {
		return nil, fmt.Errorf("阶段未注册: %s", name)
	}
	return s.stageRow(name)
}

// ListStages 按拓扑序列出全部阶段
func (s *PipelineScheduler) ListStages() ([]models.PipelineStage, error) {
	stages := make([]models.PipelineStage, 0, len(s.order))
	for _, name := range s.order {
		stage, err := s.stageRow(name)
		if err != nil {
			return nil, err
		}
		stages = append(stages, *stage)
	}
	return stages, nil
}

// TriggerRun 按拓扑序同步执行一轮全部激活阶段
func (s *PipelineScheduler) TriggerRun(ctx context.Context) (map[string]*StageOutcome, error) {
	results := make(map[string]*StageOutcome, len(s.order))
	for _, name := range s.order {
		stage, err := s.stageRow(name)
		if err != nil {
			return nil, err
		}
		if !stage.IsActive() {
			continue
		}
		outcome, err := s.runStage(ctx, name)
		if err != nil {
			log.Printf("阶段执行失败 [%s]: %v", name, err)
			results[name] = &StageOutcome{Errors: []string{err.Error()}}
			continue
		}
		results[name] = outcome
	}
	return results, nil
}

// runStage 执行单个阶段的一个节拍
// 守卫条件：阶段已激活、无上游正在执行、所有上游至少成功过一次；
// 执行体返回Skipped表示上游无新数据，本节拍无操作
func (s *PipelineScheduler) runStage(ctx context.Context, name string) (*StageOutcome, error) {
	def := s.stages[name]

	s.mutex.Lock()
	if s.running[name] {
		s.mutex.Unlock()
		return &StageOutcome{Skipped: true}, nil
	}

	stage, err := s.stageRow(name)
	if err != nil {
		s.mutex.Unlock()
		return nil, err
	}
	if !stage.IsActive() || !stage.CanRun() {
		s.mutex.Unlock()
		return &StageOutcome{Skipped: true}, nil
	}

	for _, dep := range def.DependsOn {
		if s.running[dep] {
			s.mutex.Unlock()
			return &StageOutcome{Skipped: true}, nil
		}
		depStage, err := s.stageRow(dep)
		if err != nil {
			s.mutex.Unlock()
			return nil, err
		}
		if depStage.LastSuccessAt == nil {
			// 上游尚未就绪不是错误，跳过本节拍等待下一轮
			s.mutex.Unlock()
			return &StageOutcome{Skipped: true}, nil
		}
	}

	prevStatus := stage.Status
	s.running[name] = true
	s.mutex.Unlock()

	defer func() {
		s.mutex.Lock()
		delete(s.running, name)
		s.mutex.Unlock()
	}()

	if s.lock != nil {
		locked, lockErr := s.lock.TryLock(ctx, name, stageLockTTL)
		if lockErr != nil {
			return nil, fmt.Errorf("获取阶段锁失败 [%s]: %w", name, lockErr)
		}
		if !locked {
			// 其他实例正在执行同一阶段
			return &StageOutcome{Skipped: true}, nil
		}
		defer func() {
			if unlockErr := s.lock.Unlock(ctx, name); unlockErr != nil {
				log.Printf("释放阶段锁失败 [%s]: %v", name, unlockErr)
			}
		}()

		// 长阶段自动续期，防止执行中锁过期被其他实例抢占
		refreshCtx, cancelRefresh := context.WithCancel(ctx)
		defer cancelRefresh()
		go func() {
			ticker := time.NewTicker(stageLockTTL / 3)
			defer ticker.Stop()
			for {
				select {
				case <-refreshCtx.Done():
					return
				case <-ticker.C:
					if refreshErr := s.lock.Refresh(ctx, name, stageLockTTL); refreshErr != nil {
						log.Printf("刷新阶段锁失败 [%s]: %v", name, refreshErr)
					}
				}
			}
		}()
	}

	if err := s.setStatus(name, meta.StageStatusRunning); err != nil {
		return nil, err
	}

	startedAt := time.Now()
	outcome, runErr := def.Runner(ctx)
	finishedAt := time.Now()

	if runErr != nil {
		s.recordRun(name, meta.StageRunStatusFailed, startedAt, finishedAt, 0, runErr.Error(), nil)
		now := time.Now()
		if err := s.db.Model(&models.PipelineStage{}).Where("stage_name = ?", name).
			Updates(map[string]interface{}{
				"status":      meta.StageStatusFailed,
				"last_run_at": now,
				"last_error":  runErr.Error(),
				"run_count":   gorm.Expr("run_count + 1"),
				"fail_count":  gorm.Expr("fail_count + 1"),
			}).Error; err != nil {
			log.Printf("更新阶段失败状态失败 [%s]: %v", name, err)
		}
		return nil, runErr
	}

	if outcome == nil {
		outcome = &StageOutcome{}
	}
	if outcome.Skipped {
		// 无新数据：不产生成功记录，恢复节拍前状态
		s.recordRun(name, meta.StageRunStatusSkipped, startedAt, finishedAt, 0, "上游无新数据", nil)
		restored := prevStatus
		if restored == meta.StageStatusRunning {
			restored = meta.StageStatusScheduled
		}
		if err := s.setStatus(name, restored); err != nil {
			return nil, err
		}
		return outcome, nil
	}

	s.recordRun(name, meta.StageRunStatusSucceeded, startedAt, finishedAt, outcome.Processed, "", outcome.Errors)
	now := time.Now()
	if err := s.db.Model(&models.PipelineStage{}).Where("stage_name = ?", name).
		Updates(map[string]interface{}{
			"status":          meta.StageStatusSucceeded,
			"last_run_at":     now,
			"last_success_at": now,
			"last_error":      "",
			"run_count":       gorm.Expr("run_count + 1"),
		}).Error; err != nil {
		log.Printf("更新阶段成功状态失败 [%s]: %v", name, err)
	}
	return outcome, nil
}

// recordRun 写入阶段运行记录，保存逐记录错误列表供运维检视
func (s *PipelineScheduler) recordRun(name, status string, startedAt, finishedAt time.Time, processed int64, message string, errs []string) {
	run := &models.StageRun{
		ID:            uuid.New().String(),
		StageName:     name,
		Status:        status,
		StartedAt:     startedAt,
		FinishedAt:    &finishedAt,
		ProcessedRows: processed,
		Message:       message,
		Errors:        errs,
	}
	if err := s.db.Create(run).Error; err != nil {
		log.Printf("写入阶段运行记录失败 [%s]: %v", name, err)
	}
}

// RunsFor 查询阶段最近的运行记录
func (s *PipelineScheduler) RunsFor(name string, limit int) ([]models.StageRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []models.StageRun
	if err := s.db.Where("stage_name = ?", name).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("查询运行记录失败 [%s]: %w", name, err)
	}
	return runs, nil
}

func (s *PipelineScheduler) stageRow(name string) (*models.PipelineStage, error) {
	var stage models.PipelineStage
	if err := s.db.Where("stage_name = ?", name).First(&stage).Error; err != nil {
		return nil, fmt.Errorf("读取阶段状态失败 [%s]: %w", name, err)
	}
	return &stage, nil
}

func (s *PipelineScheduler) setStatus(name, status string) error {
	if err := s.db.Model(&models.PipelineStage{}).
		Where("stage_name = ?", name).
		Update("status", status).Error; err != nil {
		return fmt.Errorf("更新阶段状态失败 [%s]: %w", name, err)
	}
	return nil
}

