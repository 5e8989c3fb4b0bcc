/*
 * @module service/flatten/delivery_event
 * @description 逐球事件展平，六级嵌套(局->回合->投球->附加费/出局/接杀手)的保留式外部展开
 * @architecture 分层数仓 - 展平引擎核心
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 原始记录 -> 投球基础行 -> 附加费外部叉乘 -> 出局外部叉乘 -> 接杀手外部叉乘
 * @rules 可选子结构缺失时保留一行空值；两个附加费×三个接杀手产出六行全叉乘
 * @dependencies cricketdw-service/service/models, github.com/spf13/cast
 * @refs service/flatten/engine
 */

package flatten

import (
	"sort"

	"cricketdw-service/service/models"

	"github.com/spf13/cast"
)

// extraEntry 一条附加费项：类型与跑分（清洗层保留文本类型）
type extraEntry struct {
	Type string
	Runs string
}

// wicketCarrier 出局层级的中间行，携带出局子文档以便展开其接杀手
type wicketCarrier struct {
	row    models.CleanDeliveryEvent
	wicket Variant
	has    bool
}

// extraEntries 将extras对象(类型 -> 跑分)展开为有序条目
func extraEntries(delivery Variant) []extraEntry {
	extras := delivery.Field("extras").Map()
	if len(extras) == 0 {
		return nil
	}
	types := make([]string, 0, len(extras))
	for t := range extras {
		types = append(types, t)
	}
	sort.Strings(types)

	entries := make([]extraEntry, 0, len(types))
	for _, t := range types {
		entries = append(entries, extraEntry{
			Type: t,
			Runs: cast.ToString(extras[t]),
		})
	}
	return entries
}

// runsText 跑分字段按文本投影，缺失时为空串
func runsText(runs Variant, field string) string {
	return runs.Field(field).StringOr("")
}

// BuildDeliveryEvents 将单条原始记录的innings展平为逐球事件行
// 回合序号从源数据的零基规范化为一基
func BuildDeliveryEvents(rec *models.RawMatchRecord) []models.CleanDeliveryEvent {
	var rows []models.CleanDeliveryEvent

	for innIdx, inn := range V([]interface{}(rec.Innings)).Array() {
		battingTeam := inn.Field("team").StringOr("")
		for _, over := range inn.Field("overs").Array() {
			overNo := over.Field("over").IntOr(0) + 1
			for delIdx, delivery := range over.Field("deliveries").Array() {
				runs := delivery.Field("runs")
				base := models.CleanDeliveryEvent{
					MatchID:     rec.MatchID,
					InningsNo:   innIdx + 1,
					BattingTeam: battingTeam,
					OverNo:      overNo,
					DeliveryNo:  delIdx + 1,
					Batter:      delivery.Field("batter").StringOr(""),
					Bowler:      delivery.Field("bowler").StringOr(""),
					NonStriker:  delivery.Field("non_striker").StringOr(""),
					RunsBatter:  runsText(runs, "batter"),
					RunsExtras:  runsText(runs, "extras"),
					RunsTotal:   runsText(runs, "total"),
					SourceRawID: rec.ID,
				}
				rows = append(rows, expandDelivery(base, delivery)...)
			}
		}
	}
	return rows
}

// expandDelivery 在附加费、出局、接杀手三个可选层级上做保留式叉乘
func expandDelivery(base models.CleanDeliveryEvent, delivery Variant) []models.CleanDeliveryEvent {
	// 第一层：附加费
	extras := extraEntries(delivery)
	withExtras := CrossOuter([]models.CleanDeliveryEvent{base},
		func(models.CleanDeliveryEvent) []extraEntry { return extras },
		func(row models.CleanDeliveryEvent, e *extraEntry) models.CleanDeliveryEvent {
			if e != nil {
				extraType, extraRuns := e.Type, e.Runs
				row.ExtraType = &extraType
				row.ExtraRuns = &extraRuns
			}
			return row
		})

	// 第二层：出局
	wickets := delivery.Field("wickets").Array()
	carriers := make([]wicketCarrier, 0, len(withExtras))
	for _, row := range withExtras {
		carriers = append(carriers, wicketCarrier{row: row})
	}
	withWickets := CrossOuter(carriers,
		func(wicketCarrier) []Variant { return wickets },
		func(c wicketCarrier, w *Variant) wicketCarrier {
			if w != nil {
				c.wicket = *w
				c.has = true
				c.row.WicketKind = w.Field("kind").StringPtr()
				c.row.PlayerOut = w.Field("player_out").StringPtr()
			}
			return c
		})

	// 第三层：接杀手，仅展开所在行自己的出局子文档
	final := CrossOuter(withWickets,
		func(c wicketCarrier) []Variant {
			if !c.has {
				return nil
			}
			return c.wicket.Field("fielders").Array()
		},
		func(c wicketCarrier, f *Variant) wicketCarrier {
			if f != nil {
				c.row.Fielder = f.Field("name").StringPtr()
			}
			return c
		})

	out := make([]models.CleanDeliveryEvent, 0, len(final))
	for _, c := range final {
		out = append(out, c.row)
	}
	return out
}
