// Package masker 负责将过大的工具输出替换为紧凑的占位符
//
// 超过阈值的工具输出会被持久化为制品，会话记录中只保留占位符；
// 最近若干条输出保持未遮蔽状态，用于短期落地。
package masker

import (
	"fmt"
	"strings"
	"time"
)

// Observation 尚未遮蔽的近期工具输出
type Observation struct {
	// ToolCallID 工具调用 ID
	ToolCallID string `json:"tool_call_id"`
	// ToolName 工具名称
	ToolName string `json:"tool_name"`
	// Content 输出内容
	Content string `json:"content"`
	// Timestamp 记录时间
	Timestamp time.Time `json:"timestamp"`
}

// Placeholder 被遮蔽工具输出的紧凑占位符
//
// 在会话记录中替代大块工具输出，通过制品指针保留对完整内容的访问。
type Placeholder struct {
	// ToolName 产生输出的工具名称
	ToolName string `json:"tool_name"`
	// ToolCallID 原始工具调用 ID
	ToolCallID string `json:"tool_call_id"`
	// Digest 内容的简短摘要
	Digest string `json:"digest"`
	// ArtifactID 存储制品的 ID
	ArtifactID string `json:"artifact_id"`
	// ArtifactPath 存储制品的路径
	ArtifactPath string `json:"artifact_path"`
	// Highlights 从内容中提取的要点
	Highlights []string `json:"highlights,omitempty"`
	// SizeBytes 原始内容大小
	SizeBytes int64 `json:"size_bytes"`
	// CreatedAt 创建时间
	CreatedAt time.Time `json:"created_at"`
}

// Text 生成插入会话的占位符文本
func (p *Placeholder) Text() string {
	var highlights string
	if len(p.Highlights) > 0 {
		hs := p.Highlights
		if len(hs) > 5 {
			hs = hs[:5]
		}
		var b strings.Builder
		b.WriteString("\nKey points:\n")
		for i, h := range hs {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString("- " + h)
		}
		highlights = b.String()
	}

	return fmt.Sprintf(
		"[MASKED OUTPUT: %s]\nDigest: %s\nArtifact: %s%s\nUse retrieve_snippets(artifact_id='%s', query='...') for details.",
		p.ToolName, p.Digest, p.ArtifactID, highlights, p.ArtifactID,
	)
}

// EvidenceRecord 证据来源记录
//
// 跟踪已抓取并存储的外部来源（页面、PDF 等）。
type EvidenceRecord struct {
	// URL 来源地址
	URL string `json:"url"`
	// Title 来源标题
	Title string `json:"title,omitempty"`
	// PublishDate 发布日期（已知时）
	PublishDate *time.Time `json:"publish_date,omitempty"`
	// FetchedAt 抓取时间
	FetchedAt time.Time `json:"fetched_at"`
	// ArtifactID 对应的制品 ID
	ArtifactID string `json:"artifact_id"`
	// Notes 关于来源的简短备注
	Notes string `json:"notes,omitempty"`
	// Quotes 提取的关键引文
	Quotes []string `json:"quotes,omitempty"`
}
