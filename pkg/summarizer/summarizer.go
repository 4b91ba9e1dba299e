package summarizer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/easyops/compaction-go/pkg/core/message"
	"github.com/easyops/compaction-go/pkg/masker"
	"github.com/easyops/compaction-go/pkg/otel"
)

const (
	// DefaultEverySteps 默认每 N 步生成一次摘要
	DefaultEverySteps = 8
	// DefaultTokenFraction 默认 Token 触发比例
	DefaultTokenFraction = 0.7
	// DefaultModelContextLimit 默认模型上下文上限
	DefaultModelContextLimit = 128000

	// maxVisitedSources 摘要记录的最大来源数
	maxVisitedSources = 20
)

// EvidenceSource 证据账本访问接口
type EvidenceSource interface {
	Evidence() []masker.EvidenceRecord
}

// Summarizer 推理状态摘要器
//
// 按步数或估算上下文大小周期性触发，将中间推理压缩为结构化的
// ReasoningState，同时保留关键事实和证据指针。
type Summarizer struct {
	everySteps    int
	tokenFraction float64
	contextLimit  int
	evidence      EvidenceSource
	extractor     Extractor
	logger        otel.Logger
	metrics       otel.Metrics

	mu        sync.Mutex
	summaries []ReasoningState
	lastStep  int
}

// SummarizerOption Summarizer 配置选项
type SummarizerOption func(*Summarizer)

// WithEverySteps 设置按步数触发的间隔
func WithEverySteps(n int) SummarizerOption {
	return func(s *Summarizer) {
		s.everySteps = n
	}
}

// WithTokenTrigger 设置按 Token 触发的比例和上下文上限
func WithTokenTrigger(fraction float64, contextLimit int) SummarizerOption {
	return func(s *Summarizer) {
		s.tokenFraction = fraction
		s.contextLimit = contextLimit
	}
}

// WithExtractor 设置结构化信息提取器
func WithExtractor(extractor Extractor) SummarizerOption {
	return func(s *Summarizer) {
		s.extractor = extractor
	}
}

// WithSummarizerLogger 设置日志器
func WithSummarizerLogger(logger otel.Logger) SummarizerOption {
	return func(s *Summarizer) {
		s.logger = logger
	}
}

// WithSummarizerMetrics 设置指标收集器
func WithSummarizerMetrics(metrics otel.Metrics) SummarizerOption {
	return func(s *Summarizer) {
		s.metrics = metrics
	}
}

// NewSummarizer 创建推理状态摘要器
//
// evidence 可为 nil，此时摘要不携带来源列表。默认使用启发式提取器。
func NewSummarizer(evidence EvidenceSource, opts ...SummarizerOption) *Summarizer {
	s := &Summarizer{
		everySteps:    DefaultEverySteps,
		tokenFraction: DefaultTokenFraction,
		contextLimit:  DefaultModelContextLimit,
		evidence:      evidence,
		extractor:     NewHeuristicExtractor(),
		logger:        otel.GetLogger(),
		metrics:       otel.GetMetrics(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ShouldSummarize 判断是否应触发摘要
//
// 距上次摘要的步数达到间隔，或估算 Token 超过模型上限的配置比例
// 时返回 true。estimatedTokens 为 0 表示未知，不参与判断。
func (s *Summarizer) ShouldSummarize(stepNumber, estimatedTokens int) bool {
	s.mu.Lock()
	last := s.lastStep
	s.mu.Unlock()

	if stepNumber-last >= s.everySteps {
		return true
	}

	if estimatedTokens > 0 {
		threshold := float64(s.contextLimit) * s.tokenFraction
		if float64(estimatedTokens) > threshold {
			return true
		}
	}

	return false
}

// Summarize 生成当前推理状态的结构化摘要
func (s *Summarizer) Summarize(ctx context.Context, messages []message.Message, stepNumber int) (*ReasoningState, error) {
	start := time.Now()

	extraction, err := s.extractor.Extract(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to extract reasoning state: %w", err)
	}

	var visited []string
	if s.evidence != nil {
		records := s.evidence.Evidence()
		if len(records) > maxVisitedSources {
			records = records[:maxVisitedSources]
		}
		for _, r := range records {
			visited = append(visited, r.URL)
		}
	}

	state := ReasoningState{
		ExecutiveSummary: s.executiveSummary(messages, extraction.ConfirmedFacts),
		ConfirmedFacts:   extraction.ConfirmedFacts,
		Hypotheses:       extraction.Hypotheses,
		OpenQuestions:    extraction.OpenQuestions,
		VisitedSources:   visited,
		CreatedAt:        time.Now().UTC(),
		StepNumber:       stepNumber,
	}

	s.mu.Lock()
	s.summaries = append(s.summaries, state)
	s.lastStep = stepNumber
	s.mu.Unlock()

	s.metrics.Counter(otel.MetricSummarizeRuns).Add(ctx, 1)
	s.metrics.Histogram(otel.MetricSummarizeDuration).Record(ctx,
		float64(time.Since(start).Milliseconds()))
	s.logger.Info("created reasoning state summary",
		"step", stepNumber,
		"facts", len(extraction.ConfirmedFacts),
		"hypotheses", len(extraction.Hypotheses),
	)

	return &state, nil
}

// executiveSummary 生成高层执行摘要
func (s *Summarizer) executiveSummary(messages []message.Message, facts []string) string {
	var userCount, assistantCount, toolCount int
	task := ""
	for _, msg := range messages {
		switch msg.Role {
		case message.RoleUser:
			userCount++
			if task == "" {
				task = msg.Content
				if len(task) > 200 {
					task = task[:200] + "..."
				}
			}
		case message.RoleAssistant:
			assistantCount++
		case message.RoleTool:
			toolCount++
		}
	}

	parts := []string{
		fmt.Sprintf("Task: %s", task),
		fmt.Sprintf("Progress: %d reasoning steps, %d tool calls.", assistantCount, toolCount),
	}
	if len(facts) > 0 {
		parts = append(parts, fmt.Sprintf("Key findings: %d facts confirmed.", len(facts)))
	}
	return strings.Join(parts, " ")
}

// LatestSummary 返回最近一次摘要，不存在时返回 nil
func (s *Summarizer) LatestSummary() *ReasoningState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.summaries) == 0 {
		return nil
	}
	state := s.summaries[len(s.summaries)-1]
	return &state
}

// AllSummaries 返回全部摘要的副本
func (s *Summarizer) AllSummaries() []ReasoningState {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]ReasoningState, len(s.summaries))
	copy(result, s.summaries)
	return result
}

// FormatForContext 将摘要格式化为上下文文本
func FormatForContext(state *ReasoningState) string {
	lines := []string{
		"## Reasoning State Summary",
		fmt.Sprintf("*Step %d | %s*", state.StepNumber, state.CreatedAt.Format("15:04:05")),
		"",
		fmt.Sprintf("**Summary:** %s", state.ExecutiveSummary),
	}

	if len(state.ConfirmedFacts) > 0 {
		lines = append(lines, "", "**Confirmed Facts:**")
		for _, fact := range headStrings(state.ConfirmedFacts, 5) {
			lines = append(lines, "- "+fact)
		}
	}

	if len(state.Hypotheses) > 0 {
		lines = append(lines, "", "**Working Hypotheses:**")
		for _, hyp := range headStrings(state.Hypotheses, 3) {
			lines = append(lines, "- "+hyp)
		}
	}

	if len(state.OpenQuestions) > 0 {
		lines = append(lines, "", "**Open Questions:**")
		for _, q := range headStrings(state.OpenQuestions, 3) {
			lines = append(lines, "- "+q)
		}
	}

	if len(state.VisitedSources) > 0 {
		lines = append(lines, "",
			fmt.Sprintf("**Sources Consulted:** %d sources", len(state.VisitedSources)))
	}

	return strings.Join(lines, "\n")
}

func headStrings(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
