// Package compaction 将制品存储、遮蔽、检索、摘要和组装
// 串联为完整的上下文压缩引擎
package compaction

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/easyops/compaction-go/pkg/artifact"
	"github.com/easyops/compaction-go/pkg/assembler"
	"github.com/easyops/compaction-go/pkg/core/config"
	"github.com/easyops/compaction-go/pkg/core/message"
	"github.com/easyops/compaction-go/pkg/masker"
	"github.com/easyops/compaction-go/pkg/otel"
	"github.com/easyops/compaction-go/pkg/retrieval"
	"github.com/easyops/compaction-go/pkg/summarizer"
	"github.com/easyops/compaction-go/pkg/tools"
	"github.com/easyops/compaction-go/pkg/tools/builtin"
)

// IndexDBFile 工作区内检索索引数据库的文件名
const IndexDBFile = "retrieval_index.db"

// SystemPrompt 注入模型系统提示的制品管理说明
const SystemPrompt = `## Artifact Management

You have access to an artifact storage system for managing large content:

- **save_artifact**: Save important content (research findings, extracted data, quotes) for later retrieval
- **read_artifact**: Read content from a stored artifact by ID
- **search_artifacts**: Search stored artifacts by tool name, tags, or URL
- **retrieve_snippets**: Find specific information within a large artifact using a query

When you see a [MASKED OUTPUT] placeholder, the full content has been stored as an artifact.
Use retrieve_snippets to find specific information without loading the entire content.
`

// Engine 上下文压缩引擎
//
// 拦截工具输出并遮蔽过大的内容，提供制品管理工具，
// 周期性生成推理摘要，并按预算组装最终上下文。
type Engine struct {
	cfg       *config.Config
	store     *artifact.Store
	masker    *masker.Masker
	index     *retrieval.Index
	summ      *summarizer.Summarizer
	assembler *assembler.Assembler
	registry  *tools.Registry
	recorder  *StepRecorder
	logger    otel.Logger
	metrics   otel.Metrics

	mu        sync.Mutex
	stepCount int
	stepStart time.Time
}

// EngineOption Engine 配置选项
type EngineOption func(*Engine)

// WithEngineLogger 设置日志器
func WithEngineLogger(logger otel.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithEngineMetrics 设置指标收集器
func WithEngineMetrics(metrics otel.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = metrics
	}
}

// WithExtractor 设置摘要器使用的结构化信息提取器
func WithExtractor(extractor summarizer.Extractor) EngineOption {
	return func(e *Engine) {
		e.summ = summarizer.NewSummarizer(e.masker,
			summarizer.WithEverySteps(e.cfg.Summarize.EverySteps),
			summarizer.WithTokenTrigger(e.cfg.Summarize.TokenFraction, e.cfg.Summarize.ModelContextLimit),
			summarizer.WithExtractor(extractor),
		)
	}
}

// NewEngine 创建上下文压缩引擎
//
// cfg 为 nil 时使用默认配置。引擎持有工作区内的制品存储、
// 检索索引和指标文件，用完应调用 Close 释放索引。
func NewEngine(cfg *config.Config, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	store, err := artifact.NewStore(cfg.Workspace.Dir,
		artifact.WithRedaction(cfg.Workspace.RedactSecrets))
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact store: %w", err)
	}

	var writer masker.ArtifactWriter = store
	if cfg.Observability.Enabled {
		writer = artifact.NewTracedStore(store,
			artifact.WithTracedStoreTracer(otel.GetTracer()),
			artifact.WithTracedStoreMetrics(otel.GetMetrics()),
		)
	}

	m := masker.NewMasker(writer,
		masker.WithThreshold(cfg.Masking.MaskIfCharsGreaterThan),
		masker.WithKeepLast(cfg.Masking.KeepLastUnmasked),
	)

	index, err := retrieval.NewIndex(filepath.Join(store.Dir(), IndexDBFile), store,
		retrieval.WithTopK(cfg.Retrieval.TopK),
		retrieval.WithChunking(cfg.Retrieval.ChunkSize, cfg.Retrieval.OverlapLines),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open retrieval index: %w", err)
	}

	e := &Engine{
		cfg:    cfg,
		store:  store,
		masker: m,
		index:  index,
		summ: summarizer.NewSummarizer(m,
			summarizer.WithEverySteps(cfg.Summarize.EverySteps),
			summarizer.WithTokenTrigger(cfg.Summarize.TokenFraction, cfg.Summarize.ModelContextLimit),
		),
		assembler: assembler.NewAssembler(
			assembler.WithBudgets(cfg.Budgets),
			assembler.WithContextLimit(cfg.Summarize.ModelContextLimit),
			assembler.WithWorkspaceDir(store.Dir()),
		),
		registry: tools.NewRegistry(),
		logger:   otel.GetLogger(),
		metrics:  otel.GetMetrics(),
	}

	if cfg.Metrics.Enabled {
		e.recorder = NewStepRecorder(filepath.Join(store.Dir(), cfg.Metrics.File))
	}

	for _, opt := range opts {
		opt(e)
	}

	if err := e.registry.RegisterAll(
		builtin.NewSaveArtifactTool(store),
		builtin.NewReadArtifactTool(store),
		builtin.NewSearchArtifactsTool(store),
		builtin.NewRetrieveSnippetsTool(index,
			builtin.WithSnippetContextLines(cfg.Retrieval.ContextLines)),
	); err != nil {
		return nil, fmt.Errorf("failed to register builtin tools: %w", err)
	}

	return e, nil
}

// BeginStep 记录一次模型调用的开始，返回当前步数
func (e *Engine) BeginStep(ctx context.Context) int {
	e.mu.Lock()
	e.stepCount++
	step := e.stepCount
	e.stepStart = time.Now()
	e.mu.Unlock()

	e.metrics.Counter(otel.MetricEngineSteps).Add(ctx, 1)
	return step
}

// EndStep 记录一次模型调用的结束，写入逐步指标
func (e *Engine) EndStep(ctx context.Context) {
	e.mu.Lock()
	step := e.stepCount
	elapsed := time.Duration(0)
	if !e.stepStart.IsZero() {
		elapsed = time.Since(e.stepStart)
	}
	e.mu.Unlock()

	e.metrics.Histogram(otel.MetricEngineStepDuration).Record(ctx,
		float64(elapsed.Milliseconds()))

	if e.recorder == nil {
		return
	}
	if err := e.recorder.Record(StepMetrics{
		Step:             step,
		Timestamp:        time.Now().Unix(),
		ArtifactsCount:   e.store.Count(),
		BytesPersisted:   e.store.TotalBytes(),
		MaskedCount:      e.masker.MaskedCount(),
		CompactionTimeMS: elapsed.Milliseconds(),
	}); err != nil {
		e.logger.Warn("failed to write step metrics", "error", err)
	}
}

// ProcessToolOutput 处理一条工具输出
//
// 内置制品工具的输出不做遮蔽。返回应进入会话记录的内容，
// masked 为 true 时内容已被占位符替换。
func (e *Engine) ProcessToolOutput(ctx context.Context, toolCallID, toolName, content string) (string, bool, error) {
	if e.registry.Has(toolName) {
		return content, false, nil
	}

	placeholder, err := e.masker.Mask(ctx, toolCallID, toolName, content, masker.MaskRequest{})
	if err != nil {
		return "", false, fmt.Errorf("failed to process tool output: %w", err)
	}
	if placeholder == nil {
		return content, false, nil
	}
	return placeholder.Text(), true, nil
}

// ShouldSummarize 判断是否应生成推理摘要
func (e *Engine) ShouldSummarize(estimatedTokens int) bool {
	e.mu.Lock()
	step := e.stepCount
	e.mu.Unlock()
	return e.summ.ShouldSummarize(step, estimatedTokens)
}

// Summarize 在当前步生成推理摘要
func (e *Engine) Summarize(ctx context.Context, messages []message.Message) (*summarizer.ReasoningState, error) {
	e.mu.Lock()
	step := e.stepCount
	e.mu.Unlock()
	return e.summ.Summarize(ctx, messages, step)
}

// BuildRequest 上下文构建请求
type BuildRequest struct {
	// WorkingMemory 当前工作记忆内容
	WorkingMemory string
	// PlanState 当前计划/待办状态
	PlanState string
	// DecisionLedger 决策历史
	DecisionLedger string
	// RetrievedSnippets 本步检索到的片段
	RetrievedSnippets []retrieval.Result
	// TotalBudget 总 Token 预算，0 表示使用默认比例
	TotalBudget int
}

// BuildContext 组装压缩后的上下文
//
// 推理摘要、近期观测和遮蔽占位符取自引擎内部组件，
// 调用方只需提供任务相关的记忆和检索片段。
func (e *Engine) BuildContext(ctx context.Context, req BuildRequest) *assembler.AssembledContext {
	assembled := e.assembler.Assemble(ctx, assembler.AssembleRequest{
		WorkingMemory:      req.WorkingMemory,
		PlanState:          req.PlanState,
		DecisionLedger:     req.DecisionLedger,
		ReasoningStates:    e.summ.AllSummaries(),
		RecentObservations: formatRecentObservations(e.masker.RecentUnmasked()),
		Placeholders:       e.masker.Placeholders(),
		RetrievedSnippets:  req.RetrievedSnippets,
		TotalBudget:        req.TotalBudget,
	})

	e.metrics.Gauge(otel.MetricEngineContextSize).Set(ctx, float64(assembled.TotalTokens))
	return assembled
}

// formatRecentObservations 将未遮蔽的近期输出格式化为上下文文本
func formatRecentObservations(observations []masker.Observation) string {
	if len(observations) == 0 {
		return ""
	}

	parts := make([]string, 0, len(observations))
	for _, obs := range observations {
		parts = append(parts, fmt.Sprintf("[%s]\n%s", obs.ToolName, obs.Content))
	}
	return strings.Join(parts, "\n\n")
}

// StepCount 返回已处理的步数
func (e *Engine) StepCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stepCount
}

// Store 返回制品存储
func (e *Engine) Store() *artifact.Store {
	return e.store
}

// Masker 返回输出遮蔽器
func (e *Engine) Masker() *masker.Masker {
	return e.masker
}

// Index 返回检索索引
func (e *Engine) Index() *retrieval.Index {
	return e.index
}

// Summarizer 返回推理状态摘要器
func (e *Engine) Summarizer() *summarizer.Summarizer {
	return e.summ
}

// Assembler 返回上下文组装器
func (e *Engine) Assembler() *assembler.Assembler {
	return e.assembler
}

// Tools 返回制品管理工具注册表
func (e *Engine) Tools() *tools.Registry {
	return e.registry
}

// StepMetricsHistory 返回已记录的逐步指标
func (e *Engine) StepMetricsHistory() []StepMetrics {
	if e.recorder == nil {
		return nil
	}
	return e.recorder.All()
}

// Close 关闭引擎持有的检索索引
func (e *Engine) Close() error {
	return e.index.Close()
}
