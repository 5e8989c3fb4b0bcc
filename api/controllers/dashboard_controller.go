/*
 * @module api/controllers/dashboard_controller
 * @description 看板查询控制器，透传看板查询服务的球队比赛摘要
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow HTTP请求处理流程，每次请求全量重查消费层
 * @rules 摘要计算由看板服务负责，控制器只做参数校验与错误映射
 * @dependencies cricketdw-service/service, github.com/go-chi/render
 * @refs api/routes.go, service/dashboard/team_summary_service.go
 */

package controllers

import (
	"errors"
	"net/http"

	"cricketdw-service/service"

	"github.com/go-chi/render"
	"gorm.io/gorm"
)

// DashboardController 看板查询控制器
type DashboardController struct{}

// NewDashboardController 创建看板查询控制器实例
func NewDashboardController() *DashboardController {
	return &DashboardController{}
}

// TeamSummary 查询球队比赛摘要
// @Summary 球队比赛摘要
// @Description 返回指定球队参与的全部比赛及胜场统计
// @Tags 看板
// @Produce json
// @Param team query string true "球队名称"
// @Success 200 {object} APIResponse{data=dashboard.TeamSummary}
// @Failure 404 {object} APIResponse
// @Router /dashboard/team-summary [get]
func (c *DashboardController) TeamSummary(w http.ResponseWriter, r *http.Request) {
	teamName := r.URL.Query().Get("team")
	if teamName == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, APIResponse{Status: 1, Msg: "缺少team参数"})
		return
	}

	summary, err := service.GlobalDashboardService.TeamSummary(r.Context(), teamName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, APIResponse{Status: 1, Msg: "球队不存在: " + teamName})
			return
		}
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, APIResponse{Status: 1, Msg: err.Error()})
		return
	}

	render.JSON(w, r, APIResponse{Status: 0, Msg: "查询成功", Data: summary})
}
