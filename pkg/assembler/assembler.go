package assembler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/easyops/compaction-go/pkg/core/config"
	"github.com/easyops/compaction-go/pkg/masker"
	"github.com/easyops/compaction-go/pkg/otel"
	"github.com/easyops/compaction-go/pkg/retrieval"
	"github.com/easyops/compaction-go/pkg/summarizer"
)

// DefaultTotalFraction 压缩上下文占模型上下文上限的默认比例
const DefaultTotalFraction = 0.3

// blockPriorities 各来源的默认优先级，数值越小越靠前
var blockPriorities = map[string]int{
	"working_memory":      1,
	"plan_state":          2,
	"decision_ledger":     3,
	"reasoning_state":     4,
	"recent_observations": 5,
	"masked_placeholders": 6,
	"retrieved_snippets":  7,
}

const defaultPriority = 10

// Assembler 上下文组装器
//
// 按优先级将各来源内容装入总预算内，超预算的块截断到其
// Token 预算，预算耗尽后剩余的块被跳过。
type Assembler struct {
	budgets      config.BudgetConfig
	contextLimit int
	workspaceDir string
	counter      TokenCounter
	logger       otel.Logger
	metrics      otel.Metrics

	mu            sync.Mutex
	assemblyCount int
}

// AssemblerOption Assembler 配置选项
type AssemblerOption func(*Assembler)

// WithBudgets 设置各块的 Token 预算
func WithBudgets(budgets config.BudgetConfig) AssemblerOption {
	return func(a *Assembler) {
		a.budgets = budgets
	}
}

// WithContextLimit 设置模型上下文 Token 上限
func WithContextLimit(limit int) AssemblerOption {
	return func(a *Assembler) {
		a.contextLimit = limit
	}
}

// WithWorkspaceDir 设置调试制品的输出根目录
func WithWorkspaceDir(dir string) AssemblerOption {
	return func(a *Assembler) {
		a.workspaceDir = dir
	}
}

// WithTokenCounter 设置 Token 计数器
func WithTokenCounter(counter TokenCounter) AssemblerOption {
	return func(a *Assembler) {
		a.counter = counter
	}
}

// WithAssemblerLogger 设置日志器
func WithAssemblerLogger(logger otel.Logger) AssemblerOption {
	return func(a *Assembler) {
		a.logger = logger
	}
}

// WithAssemblerMetrics 设置指标收集器
func WithAssemblerMetrics(metrics otel.Metrics) AssemblerOption {
	return func(a *Assembler) {
		a.metrics = metrics
	}
}

// NewAssembler 创建上下文组装器
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		budgets:      config.Default().Budgets,
		contextLimit: summarizer.DefaultModelContextLimit,
		counter:      NewHeuristicCounter(),
		logger:       otel.GetLogger(),
		metrics:      otel.GetMetrics(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// AssembleRequest 上下文组装请求
type AssembleRequest struct {
	// WorkingMemory 当前工作记忆内容
	WorkingMemory string
	// PlanState 当前计划/待办状态
	PlanState string
	// DecisionLedger 决策历史
	DecisionLedger string
	// ReasoningStates 推理状态摘要，仅最新一条进入上下文
	ReasoningStates []summarizer.ReasoningState
	// RecentObservations 近期未遮蔽观测
	RecentObservations string
	// Placeholders 遮蔽占位符
	Placeholders []masker.Placeholder
	// RetrievedSnippets 检索片段
	RetrievedSnippets []retrieval.Result
	// TotalBudget 总 Token 预算，0 表示使用上下文上限的默认比例
	TotalBudget int
}

type blockSpec struct {
	source  string
	content string
	budget  int
}

// Assemble 从各来源组装上下文
//
// 块按优先级顺序处理，空白块被跳过。单块预算取自身预算与剩余总预算
// 的较小值；剩余预算耗尽后后续块记入 BlocksTruncated 并跳过。
func (a *Assembler) Assemble(ctx context.Context, req AssembleRequest) *AssembledContext {
	a.mu.Lock()
	a.assemblyCount++
	assemblyNumber := a.assemblyCount
	a.mu.Unlock()

	totalBudget := req.TotalBudget
	if totalBudget == 0 {
		fraction := a.budgets.TotalFraction
		if fraction == 0 {
			fraction = DefaultTotalFraction
		}
		totalBudget = int(float64(a.contextLimit) * fraction)
	}

	specs := []blockSpec{
		{"working_memory", req.WorkingMemory, a.budgets.WorkingMemory},
		{"plan_state", req.PlanState, a.budgets.PlanState},
		{"decision_ledger", req.DecisionLedger, a.budgets.DecisionLedger},
	}
	if len(req.ReasoningStates) > 0 {
		latest := req.ReasoningStates[len(req.ReasoningStates)-1]
		specs = append(specs, blockSpec{"reasoning_state",
			formatReasoningState(&latest), a.budgets.ReasoningState})
	}
	if req.RecentObservations != "" {
		specs = append(specs, blockSpec{"recent_observations",
			req.RecentObservations, a.budgets.RecentObservations})
	}
	if len(req.Placeholders) > 0 {
		specs = append(specs, blockSpec{"masked_placeholders",
			formatPlaceholders(req.Placeholders), a.budgets.MaskedPlaceholders})
	}
	if len(req.RetrievedSnippets) > 0 {
		specs = append(specs, blockSpec{"retrieved_snippets",
			formatRetrievedSnippets(req.RetrievedSnippets), a.budgets.RetrievedSnippets})
	}

	result := &AssembledContext{
		BudgetUsed: make(map[string]int),
	}
	remaining := totalBudget

	for _, spec := range specs {
		if strings.TrimSpace(spec.content) == "" {
			continue
		}

		priority, ok := blockPriorities[spec.source]
		if !ok {
			priority = defaultPriority
		}

		blockBudget := spec.budget
		if remaining < blockBudget {
			blockBudget = remaining
		}
		if blockBudget <= 0 {
			result.BlocksTruncated = append(result.BlocksTruncated, spec.source)
			continue
		}

		content, truncated := a.truncateToBudget(spec.content, blockBudget)
		if truncated {
			result.BlocksTruncated = append(result.BlocksTruncated, spec.source)
		}

		tokenEstimate := a.counter.Count(content)
		remaining -= tokenEstimate
		result.BudgetUsed[spec.source] = tokenEstimate

		result.Blocks = append(result.Blocks, ContextBlock{
			Name:          displayName(spec.source),
			Content:       content,
			Priority:      priority,
			TokenEstimate: tokenEstimate,
			Source:        spec.source,
		})
	}

	for _, block := range result.Blocks {
		result.TotalTokens += block.TokenEstimate
	}
	result.DebugInfo = map[string]interface{}{
		"assembly_number":  assemblyNumber,
		"total_budget":     totalBudget,
		"remaining_budget": remaining,
	}

	a.metrics.Counter(otel.MetricAssemblies).Add(ctx, 1)
	a.metrics.Histogram(otel.MetricAssemblyTokens).Record(ctx, float64(result.TotalTokens))
	if len(result.BlocksTruncated) > 0 {
		a.metrics.Counter(otel.MetricTruncatedBlocks).Add(ctx, int64(len(result.BlocksTruncated)))
	}

	a.logger.Debug("assembled context",
		"blocks", len(result.Blocks),
		"tokens", result.TotalTokens,
		"truncated", len(result.BlocksTruncated),
	)
	return result
}

// truncateToBudget 将内容截断到 Token 预算内
//
// 按约 4 字符一个 Token 换算目标长度，优先在换行或句号边界截断。
func (a *Assembler) truncateToBudget(content string, budgetTokens int) (string, bool) {
	if a.counter.Count(content) <= budgetTokens {
		return content, false
	}

	targetChars := budgetTokens * 4
	if targetChars > len(content) {
		targetChars = len(content)
	}
	truncated := content[:targetChars]

	boundary := float64(targetChars) * 0.7
	lastNewline := strings.LastIndex(truncated, "\n")
	lastPeriod := strings.LastIndex(truncated, ". ")

	if float64(lastNewline) > boundary {
		truncated = truncated[:lastNewline]
	} else if float64(lastPeriod) > boundary {
		truncated = truncated[:lastPeriod+1]
	}

	return truncated + "\n[... truncated ...]", true
}

// AssemblyCount 返回累计组装次数
func (a *Assembler) AssemblyCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.assemblyCount
}

// SaveDebugArtifact 保存组装结果的调试信息
//
// outputDir 为空时写入工作区下的 debug 目录，返回文件路径。
func (a *Assembler) SaveDebugArtifact(assembled *AssembledContext, outputDir string) (string, error) {
	if outputDir == "" {
		outputDir = filepath.Join(a.workspaceDir, "debug")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create debug directory: %w", err)
	}

	timestamp := time.Now().UTC().Format("20060102_150405")
	path := filepath.Join(outputDir, fmt.Sprintf("context_assembly_%s.json", timestamp))

	type blockDebug struct {
		Name           string `json:"name"`
		Priority       int    `json:"priority"`
		TokenEstimate  int    `json:"token_estimate"`
		ContentPreview string `json:"content_preview"`
	}

	debugBlocks := make([]blockDebug, 0, len(assembled.Blocks))
	for _, block := range assembled.Blocks {
		preview := block.Content
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		debugBlocks = append(debugBlocks, blockDebug{
			Name:           block.Name,
			Priority:       block.Priority,
			TokenEstimate:  block.TokenEstimate,
			ContentPreview: preview,
		})
	}

	debugData := map[string]interface{}{
		"timestamp":        timestamp,
		"total_tokens":     assembled.TotalTokens,
		"budget_used":      assembled.BudgetUsed,
		"blocks_truncated": assembled.BlocksTruncated,
		"blocks":           debugBlocks,
	}
	for k, v := range assembled.DebugInfo {
		debugData[k] = v
	}

	data, err := json.MarshalIndent(debugData, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal debug data: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write debug file: %w", err)
	}

	a.logger.Debug("saved context assembly debug", "path", path)
	return path, nil
}

// formatReasoningState 格式化推理状态摘要块
func formatReasoningState(state *summarizer.ReasoningState) string {
	lines := []string{
		fmt.Sprintf("*Summary at step %d*", state.StepNumber),
		"",
		state.ExecutiveSummary,
	}

	if len(state.ConfirmedFacts) > 0 {
		lines = append(lines, "", "**Confirmed:**")
		for _, fact := range head(state.ConfirmedFacts, 5) {
			lines = append(lines, "- "+fact)
		}
	}
	if len(state.Hypotheses) > 0 {
		lines = append(lines, "", "**Hypotheses:**")
		for _, hyp := range head(state.Hypotheses, 3) {
			lines = append(lines, "- "+hyp)
		}
	}
	if len(state.OpenQuestions) > 0 {
		lines = append(lines, "", "**Open Questions:**")
		for _, q := range head(state.OpenQuestions, 3) {
			lines = append(lines, "- "+q)
		}
	}

	return strings.Join(lines, "\n")
}

// formatPlaceholders 格式化遮蔽占位符块，最多展示最近 10 条
func formatPlaceholders(placeholders []masker.Placeholder) string {
	if len(placeholders) == 0 {
		return ""
	}

	lines := []string{
		fmt.Sprintf("*%d large outputs stored as artifacts:*", len(placeholders)),
		"",
	}
	shown := placeholders
	if len(shown) > 10 {
		shown = shown[len(shown)-10:]
	}
	for _, p := range shown {
		digest := p.Digest
		if len(digest) > 100 {
			digest = digest[:100]
		}
		lines = append(lines, fmt.Sprintf("- **%s** (%s): %s", p.ArtifactID, p.ToolName, digest))
	}
	return strings.Join(lines, "\n")
}

// formatRetrievedSnippets 格式化检索片段块
func formatRetrievedSnippets(results []retrieval.Result) string {
	if len(results) == 0 {
		return ""
	}

	lines := []string{"*Retrieved snippets:*", ""}
	for _, r := range results {
		snippet := r.Snippet
		if len(snippet) > 300 {
			snippet = snippet[:300]
		}
		lines = append(lines, fmt.Sprintf("**[%s:%d]**", r.ArtifactID, r.LineNumber))
		lines = append(lines, snippet)
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// head 取切片的前 n 个元素
func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// displayName 将来源标识转换为展示名称，如 working_memory -> Working Memory
func displayName(source string) string {
	words := strings.Split(source, "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
