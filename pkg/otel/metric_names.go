package otel

// 预定义的指标名称
// 遵循 OpenTelemetry 语义约定
const (
	// Artifact 指标
	MetricArtifactWrites        = "artifact.writes"         // 计数器: 制品写入次数
	MetricArtifactReads         = "artifact.reads"          // 计数器: 制品读取次数
	MetricArtifactBytes         = "artifact.bytes"          // 计数器: 持久化字节总数
	MetricArtifactWriteDuration = "artifact.write.duration" // 直方图: 制品写入时间(ms)
	MetricArtifactErrors        = "artifact.errors"         // 计数器: 制品操作错误次数

	// Masking 指标
	MetricMaskedOutputs   = "mask.outputs"        // 计数器: 被遮蔽的工具输出数
	MetricUnmaskedOutputs = "mask.passed_through" // 计数器: 未遮蔽直接透传的输出数
	MetricPlaceholders    = "mask.placeholders"   // 仪表: 当前占位符数量

	// Retrieval 指标
	MetricIndexedArtifacts = "index.artifacts"      // 计数器: 已索引制品数
	MetricIndexedChunks    = "index.chunks"         // 计数器: 已索引块数
	MetricIndexDuration    = "index.duration"       // 直方图: 索引时间(ms)
	MetricSearchQueries    = "search.queries"       // 计数器: 检索查询次数
	MetricSearchDuration   = "search.duration"      // 直方图: 检索时间(ms)
	MetricSearchEmptyHits  = "search.empty_results" // 计数器: 无结果的查询次数

	// Summarize 指标
	MetricSummarizeRuns     = "summarize.runs"     // 计数器: 摘要生成次数
	MetricSummarizeDuration = "summarize.duration" // 直方图: 摘要生成时间(ms)

	// Assembly 指标
	MetricAssemblies      = "assembly.builds"           // 计数器: 上下文组装次数
	MetricAssemblyTokens  = "assembly.tokens"           // 直方图: 组装后上下文 Token 数
	MetricTruncatedBlocks = "assembly.truncated_blocks" // 计数器: 被截断的块数

	// Engine 指标
	MetricEngineSteps        = "engine.steps"           // 计数器: 处理的步数
	MetricEngineStepDuration = "engine.step.duration"   // 直方图: 单步处理时间(ms)
	MetricEngineContextSize  = "engine.context.size"    // 仪表: 当前估算上下文大小(Token)
)

// MetricUnit 指标单位
type MetricUnit string

const (
	UnitNone         MetricUnit = ""
	UnitMilliseconds MetricUnit = "ms"
	UnitBytes        MetricUnit = "By"
	UnitCount        MetricUnit = "1"
)

// MetricDescription 指标描述
type MetricDescription struct {
	Name        string
	Description string
	Unit        MetricUnit
	Type        string // counter, histogram, gauge
}

// PredefinedMetrics 预定义指标列表
var PredefinedMetrics = []MetricDescription{
	{MetricArtifactWrites, "Number of artifacts persisted", UnitCount, "counter"},
	{MetricArtifactReads, "Number of artifact reads", UnitCount, "counter"},
	{MetricArtifactBytes, "Total bytes persisted to the artifact store", UnitBytes, "counter"},
	{MetricArtifactWriteDuration, "Duration of artifact writes", UnitMilliseconds, "histogram"},
	{MetricArtifactErrors, "Number of artifact store errors", UnitCount, "counter"},

	{MetricMaskedOutputs, "Number of tool outputs masked", UnitCount, "counter"},
	{MetricUnmaskedOutputs, "Number of tool outputs passed through unmasked", UnitCount, "counter"},
	{MetricPlaceholders, "Number of active masked placeholders", UnitCount, "gauge"},

	{MetricIndexedArtifacts, "Number of artifacts indexed for retrieval", UnitCount, "counter"},
	{MetricIndexedChunks, "Number of chunks indexed", UnitCount, "counter"},
	{MetricIndexDuration, "Duration of artifact indexing", UnitMilliseconds, "histogram"},
	{MetricSearchQueries, "Number of retrieval queries", UnitCount, "counter"},
	{MetricSearchDuration, "Duration of retrieval queries", UnitMilliseconds, "histogram"},
	{MetricSearchEmptyHits, "Number of queries with no results", UnitCount, "counter"},

	{MetricSummarizeRuns, "Number of reasoning state summaries generated", UnitCount, "counter"},
	{MetricSummarizeDuration, "Duration of summary generation", UnitMilliseconds, "histogram"},

	{MetricAssemblies, "Number of context assemblies", UnitCount, "counter"},
	{MetricAssemblyTokens, "Token count of assembled contexts", UnitCount, "histogram"},
	{MetricTruncatedBlocks, "Number of context blocks truncated to budget", UnitCount, "counter"},

	{MetricEngineSteps, "Number of engine steps processed", UnitCount, "counter"},
	{MetricEngineStepDuration, "Duration of engine steps", UnitMilliseconds, "histogram"},
	{MetricEngineContextSize, "Estimated context size in tokens", UnitCount, "gauge"},
}

// describeMetric 返回指标的描述文本
func describeMetric(name string) string {
	for _, d := range PredefinedMetrics {
		if d.Name == name {
			return d.Description
		}
	}
	return ""
}
