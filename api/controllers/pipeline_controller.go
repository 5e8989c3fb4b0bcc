/*
 * @module api/controllers/pipeline_controller
 * @description 管道调度控制器，提供阶段激活/挂起、状态查询与手动触发
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow HTTP请求处理流程
 * @rules 激活与挂起的先后顺序校验由调度器负责，控制器只透传错误
 * @dependencies cricketdw-service/service, github.com/go-chi/render
 * @refs api/routes.go
 */

package controllers

import (
	"net/http"
	"strconv"

	"cricketdw-service/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// PipelineController 管道调度控制器
type PipelineController struct{}

// NewPipelineController 创建管道调度控制器实例
func NewPipelineController() *PipelineController {
	return &PipelineController{}
}

// ListStages 按拓扑序列出全部阶段
// @Summary 列出管道阶段
// @Description 按拓扑序返回全部阶段及其状态
// @Tags 管道
// @Produce json
// @Success 200 {object} APIResponse
// @Router /pipeline/stages [get]
func (c *PipelineController) ListStages(w http.ResponseWriter, r *http.Request) {
	stages, err := service.GlobalPipelineScheduler.ListStages()
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, APIResponse{Status: 1, Msg: err.Error()})
		return
	}
	render.JSON(w, r, APIResponse{Status: 0, Msg: "查询成功", Data: stages})
}

// StageStatus 查询单个阶段状态
// @Summary 查询阶段状态
// @Tags 管道
// @Produce json
// @Param name path string true "阶段名称"
// @Success 200 {object} APIResponse
// @Router /pipeline/stages/{name}/status [get]
func (c *PipelineController) StageStatus(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	stage, err := service.GlobalPipelineScheduler.Status(name)
	if err != nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, APIResponse{Status: 1, Msg: err.Error()})
		return
	}
	render.JSON(w, r, APIResponse{Status: 0, Msg: "查询成功", Data: stage})
}

// ActivateStage 激活阶段
// @Summary 激活阶段
// @Description 激活顺序必须先下游后上游，违反顺序时返回错误
// @Tags 管道
// @Produce json
// @Param name path string true "阶段名称"
// @Success 200 {object} APIResponse
// @Router /pipeline/stages/{name}/activate [post]
func (c *PipelineController) ActivateStage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := service.GlobalPipelineScheduler.Activate(name); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, APIResponse{Status: 1, Msg: err.Error()})
		return
	}
	render.JSON(w, r, APIResponse{Status: 0, Msg: "激活成功"})
}

// DeactivateStage 挂起阶段
// @Summary 挂起阶段
// @Tags 管道
// @Produce json
// @Param name path string true "阶段名称"
// @Success 200 {object} APIResponse
// @Router /pipeline/stages/{name}/deactivate [post]
func (c *PipelineController) DeactivateStage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := service.GlobalPipelineScheduler.Deactivate(name); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, APIResponse{Status: 1, Msg: err.Error()})
		return
	}
	render.JSON(w, r, APIResponse{Status: 0, Msg: "挂起成功"})
}

// StageRuns 查询阶段运行记录
// @Summary 查询阶段运行记录
// @Tags 管道
// @Produce json
// @Param stage query string true "阶段名称"
// @Param limit query int false "返回条数"
// @Success 200 {object} APIResponse
// @Router /pipeline/runs [get]
func (c *PipelineController) StageRuns(w http.ResponseWriter, r *http.Request) {
	stage := r.URL.Query().Get("stage")
	if stage == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, APIResponse{Status: 1, Msg: "缺少stage参数"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	runs, err := service.GlobalPipelineScheduler.RunsFor(stage, limit)
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, APIResponse{Status: 1, Msg: err.Error()})
		return
	}
	render.JSON(w, r, APIResponse{Status: 0, Msg: "查询成功", Data: runs})
}

// Trigger 手动触发一轮全量管道执行
// @Summary 手动触发管道
// @Description 按拓扑序同步执行一轮全部激活阶段
// @Tags 管道
// @Produce json
// @Success 200 {object} APIResponse
// @Router /pipeline/trigger [post]
func (c *PipelineController) Trigger(w http.ResponseWriter, r *http.Request) {
	results, err := service.GlobalPipelineScheduler.TriggerRun(r.Context())
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, APIResponse{Status: 1, Msg: err.Error()})
		return
	}
	render.JSON(w, r, APIResponse{Status: 0, Msg: "触发成功", Data: results})
}
