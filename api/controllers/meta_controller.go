package controllers

import (
	"net/http"

	"cricketdw-service/service/meta"

	"github.com/go-chi/render"
)

type MetaController struct {
}

func NewMetaController() *MetaController {
	return &MetaController{}
}

// @Summary 获取所有比赛结果分类元数据
// @Description 获取所有比赛结果分类元数据
// @Tags 元数据
// @Produce json
// @Success 200 {object} APIResponse{data=[]meta.MetaField}
// @Failure 500 {object} APIResponse
// @Router /meta/match-result-types [get]
func (c *MetaController) GetMatchResultTypes(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, APIResponse{Status: 0, Msg: "获取比赛结果分类元数据成功", Data: meta.MatchResultTypes})
}

// @Summary 获取所有管道阶段状态元数据
// @Description 获取所有管道阶段状态元数据
// @Tags 元数据
// @Produce json
// @Success 200 {object} APIResponse{data=[]meta.MetaField}
// @Failure 500 {object} APIResponse
// @Router /meta/stage-statuses [get]
func (c *MetaController) GetStageStatuses(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, APIResponse{Status: 0, Msg: "获取管道阶段状态元数据成功", Data: meta.PipelineStageStatuses})
}
