package meta

// 管道阶段名称常量
const (
	StageRawIngest     = "raw_ingest"
	StageCleanMatch    = "clean_match"
	StageCleanPlayer   = "clean_player"
	StageCleanDelivery = "clean_delivery"
	StageDimTeam       = "dim_team"
	StageDimPlayer     = "dim_player"
	StageDimVenue      = "dim_venue"
	StageDimMatchType  = "dim_match_type"
	StageDimDate       = "dim_date"
	StageFactMatch     = "fact_match"
	StageFactDelivery  = "fact_delivery"
)

// 管道阶段状态常量
const (
	StageStatusSuspended = "suspended"
	StageStatusScheduled = "scheduled"
	StageStatusRunning   = "running"
	StageStatusSucceeded = "succeeded"
	StageStatusFailed    = "failed"
)

var PipelineStageStatuses = []MetaField{
	{
		Name:        "suspended",
		DisplayName: "已挂起",
		Type:        "string",
		Required:    true,
	},
	{
		Name:        "scheduled",
		DisplayName: "已调度",
		Type:        "string",
		Required:    true,
	},
	{
		Name:        "running",
		DisplayName: "执行中",
		Type:        "string",
		Required:    true,
	},
	{
		Name:        "succeeded",
		DisplayName: "成功",
		Type:        "string",
		Required:    true,
	},
	{
		Name:        "failed",
		DisplayName: "失败",
		Type:        "string",
		Required:    true,
	},
}

// 阶段运行状态常量
const (
	StageRunStatusRunning   = "running"
	StageRunStatusSucceeded = "succeeded"
	StageRunStatusFailed    = "failed"
	StageRunStatusSkipped   = "skipped"
)

// 变更跟踪消费者标识常量，每个下游消费者对应一个游标
const (
	ConsumerCleanMatch    = "clean_match"
	ConsumerCleanPlayer   = "clean_player"
	ConsumerCleanDelivery = "clean_delivery"
	ConsumerDimTeam       = "dim_team"
	ConsumerDimPlayer     = "dim_player"
	ConsumerDimVenue      = "dim_venue"
	ConsumerDimMatchType  = "dim_match_type"
	ConsumerDimDate       = "dim_date"
	ConsumerFactMatch     = "fact_match"
	ConsumerFactDelivery  = "fact_delivery"
)

// 游标来源表常量
const (
	TableRawMatchRecords    = "raw_match_records"
	TableCleanMatchDetails  = "clean_match_details"
	TableCleanDeliveryEvent = "clean_delivery_events"
	TableCleanPlayerRosters = "clean_player_rosters"
)
