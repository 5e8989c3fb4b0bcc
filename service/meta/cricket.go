package meta

// 比赛结果分类常量
const (
	MatchResultDeclared = "ResultDeclared"
	MatchResultTie      = "Tie"
	MatchResultNoResult = "NoResult"
)

var MatchResultTypes = []MetaField{
	{
		Name:        "ResultDeclared",
		DisplayName: "有胜方",
		Type:        "string",
		Required:    true,
		Description: "outcome.winner 非空",
	},
	{
		Name:        "Tie",
		DisplayName: "平局",
		Type:        "string",
		Required:    true,
		Description: "outcome.result 为 tie 且无胜方",
	},
	{
		Name:        "NoResult",
		DisplayName: "无结果",
		Type:        "string",
		Required:    true,
		Description: "outcome.result 为 no result 且无胜方",
	},
}

// 哨兵值常量，空值在消费层的显式表示
const (
	SentinelNA   = "NA"
	SentinelNone = "None"
)
