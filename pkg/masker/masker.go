package masker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/easyops/compaction-go/pkg/artifact"
	"github.com/easyops/compaction-go/pkg/otel"
)

const (
	// DefaultThresholdChars 默认遮蔽阈值（字符数）
	DefaultThresholdChars = 6000
	// DefaultKeepLastUnmasked 默认保留的未遮蔽输出条数
	DefaultKeepLastUnmasked = 3
)

// ArtifactWriter 制品写入接口
type ArtifactWriter interface {
	WriteText(ctx context.Context, content string, req artifact.WriteRequest) (*artifact.Meta, error)
}

// Masker 工具输出遮蔽器
//
// 超过阈值的工具输出被持久化为制品并替换为紧凑占位符；
// 最近 N 条输出保持未遮蔽，用于短期落地。
type Masker struct {
	writer    ArtifactWriter
	threshold int
	keepLast  int
	logger    otel.Logger
	metrics   otel.Metrics

	mu           sync.Mutex
	recent       []Observation
	placeholders []Placeholder
	evidence     []EvidenceRecord
	maskedCount  int
}

// Option Masker 配置选项
type Option func(*Masker)

// WithThreshold 设置遮蔽阈值（字符数）
func WithThreshold(chars int) Option {
	return func(m *Masker) {
		m.threshold = chars
	}
}

// WithKeepLast 设置保留的未遮蔽输出条数
func WithKeepLast(n int) Option {
	return func(m *Masker) {
		m.keepLast = n
	}
}

// WithMaskerLogger 设置日志器
func WithMaskerLogger(logger otel.Logger) Option {
	return func(m *Masker) {
		m.logger = logger
	}
}

// WithMaskerMetrics 设置指标收集器
func WithMaskerMetrics(metrics otel.Metrics) Option {
	return func(m *Masker) {
		m.metrics = metrics
	}
}

// NewMasker 创建工具输出遮蔽器
func NewMasker(writer ArtifactWriter, opts ...Option) *Masker {
	m := &Masker{
		writer:    writer,
		threshold: DefaultThresholdChars,
		keepLast:  DefaultKeepLastUnmasked,
		logger:    otel.GetLogger(),
		metrics:   otel.GetMetrics(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// ShouldMask 判断内容是否超过遮蔽阈值
func (m *Masker) ShouldMask(content string) bool {
	return len(content) > m.threshold
}

// MaskRequest 遮蔽请求的可选参数
type MaskRequest struct {
	// SourceURL 来源 URL（来自网络抓取时）
	SourceURL string
	// Title 内容标题
	Title string
}

// Mask 处理一条工具输出，必要时遮蔽
//
// 内容未超过阈值时记录到未遮蔽环形队列并返回 nil 占位符；
// 超过阈值时持久化为制品，返回替代会话记录的占位符。
func (m *Masker) Mask(ctx context.Context, toolCallID, toolName, content string, req MaskRequest) (*Placeholder, error) {
	if !m.ShouldMask(content) {
		m.mu.Lock()
		m.recent = append(m.recent, Observation{
			ToolCallID: toolCallID,
			ToolName:   toolName,
			Content:    content,
			Timestamp:  time.Now(),
		})
		if len(m.recent) > m.keepLast {
			m.recent = m.recent[len(m.recent)-m.keepLast:]
		}
		m.mu.Unlock()

		m.metrics.Counter(otel.MetricUnmaskedOutputs).Add(ctx, 1,
			otel.NewAttr(otel.AttrToolName, toolName))
		return nil, nil
	}

	detectedURL := req.SourceURL
	if detectedURL == "" {
		detectedURL = detectURL(content)
	}
	contentType := sniffContentType(content)

	meta, err := m.writer.WriteText(ctx, content, artifact.WriteRequest{
		ToolName:    toolName,
		ContentType: contentType,
		SourceURL:   detectedURL,
		Title:       req.Title,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist masked output: %w", err)
	}

	placeholder := Placeholder{
		ToolName:     toolName,
		ToolCallID:   toolCallID,
		Digest:       generateDigest(content, toolName),
		ArtifactID:   meta.ArtifactID,
		ArtifactPath: meta.StoredRawPath,
		Highlights:   extractHighlights(content),
		SizeBytes:    int64(len(content)),
		CreatedAt:    time.Now(),
	}

	m.mu.Lock()
	m.placeholders = append(m.placeholders, placeholder)
	m.maskedCount++
	if detectedURL != "" {
		m.evidence = append(m.evidence, EvidenceRecord{
			URL:        detectedURL,
			Title:      req.Title,
			FetchedAt:  time.Now(),
			ArtifactID: meta.ArtifactID,
			Notes:      fmt.Sprintf("Fetched by %s", toolName),
		})
	}
	m.mu.Unlock()

	m.metrics.Counter(otel.MetricMaskedOutputs).Add(ctx, 1,
		otel.NewAttr(otel.AttrToolName, toolName))

	m.logger.Info("masked tool output",
		"tool", toolName,
		"chars", len(content),
		"artifact_id", meta.ArtifactID,
	)
	return &placeholder, nil
}

// RecentUnmasked 返回近期未遮蔽输出的副本
func (m *Masker) RecentUnmasked() []Observation {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]Observation, len(m.recent))
	copy(result, m.recent)
	return result
}

// Placeholders 返回全部遮蔽占位符的副本
func (m *Masker) Placeholders() []Placeholder {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]Placeholder, len(m.placeholders))
	copy(result, m.placeholders)
	return result
}

// Evidence 返回证据账本的副本
func (m *Masker) Evidence() []EvidenceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]EvidenceRecord, len(m.evidence))
	copy(result, m.evidence)
	return result
}

// AddEvidence 追加一条证据记录
func (m *Masker) AddEvidence(record EvidenceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evidence = append(m.evidence, record)
}

// MaskedCount 返回累计遮蔽的输出条数
func (m *Masker) MaskedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maskedCount
}

// ClearOldPlaceholders 清理旧占位符，保留最近 keepLast 条
//
// 返回被移除的占位符数量。
func (m *Masker) ClearOldPlaceholders(keepLast int) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.placeholders) <= keepLast {
		return 0
	}
	removed := len(m.placeholders) - keepLast
	m.placeholders = append([]Placeholder(nil), m.placeholders[removed:]...)
	return removed
}
