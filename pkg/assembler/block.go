// Package assembler 提供带预算控制的上下文组装
//
// 从工作记忆、计划状态、推理摘要、近期观测、遮蔽占位符和检索片段
// 等来源组装最终提示上下文，每个块有独立的 Token 预算和优先级。
package assembler

import (
	"sort"
	"strings"
)

// ContextBlock 上下文中的一个内容块
type ContextBlock struct {
	// Name 展示名称
	Name string `json:"name"`
	// Content 块内容
	Content string `json:"content"`
	// Priority 优先级，数值越小越靠前
	Priority int `json:"priority"`
	// TokenEstimate 估算 Token 数
	TokenEstimate int `json:"token_estimate"`
	// Source 来源标识
	Source string `json:"source,omitempty"`
}

// AssembledContext 组装完成、可注入提示的上下文
type AssembledContext struct {
	// Blocks 全部内容块
	Blocks []ContextBlock `json:"blocks"`
	// TotalTokens 估算 Token 总数
	TotalTokens int `json:"total_tokens"`
	// BudgetUsed 各来源实际使用的 Token 预算
	BudgetUsed map[string]int `json:"budget_used"`
	// BlocksTruncated 被截断或因预算耗尽被跳过的来源
	BlocksTruncated []string `json:"blocks_truncated,omitempty"`
	// DebugInfo 组装过程的调试信息
	DebugInfo map[string]interface{} `json:"debug_info,omitempty"`
}

// ToText 按优先级拼接为提示文本
func (c *AssembledContext) ToText() string {
	blocks := make([]ContextBlock, len(c.Blocks))
	copy(blocks, c.Blocks)
	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].Priority < blocks[j].Priority
	})

	var parts []string
	for _, block := range blocks {
		if strings.TrimSpace(block.Content) == "" {
			continue
		}
		parts = append(parts, "## "+block.Name+"\n"+block.Content)
	}
	return strings.Join(parts, "\n\n")
}
