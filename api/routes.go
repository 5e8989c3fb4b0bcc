/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs dev_docs/model.md
 */

package api

import (
	"cricketdw-service/api/controllers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 健康检查
	healthController := controllers.NewHealthController()
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// 管道调度管理
	r.Route("/pipeline", func(r chi.Router) {
		pipelineController := controllers.NewPipelineController()
		r.Get("/stages", pipelineController.ListStages)
		r.Get("/stages/{name}/status", pipelineController.StageStatus)
		r.Post("/stages/{name}/activate", pipelineController.ActivateStage)
		r.Post("/stages/{name}/deactivate", pipelineController.DeactivateStage)
		r.Get("/runs", pipelineController.StageRuns)
		r.Post("/trigger", pipelineController.Trigger)
	})

	// 看板查询
	r.Route("/dashboard", func(r chi.Router) {
		dashboardController := controllers.NewDashboardController()
		r.Get("/team-summary", dashboardController.TeamSummary)
	})

	// 元数据
	r.Route("/meta", func(r chi.Router) {
		metaController := controllers.NewMetaController()
		r.Get("/match-result-types", metaController.GetMatchResultTypes)
		r.Get("/stage-statuses", metaController.GetStageStatuses)
	})
}
