// Package summarizer 提供推理进度的周期性结构化摘要
//
// 摘要在压缩中间推理的同时保留关键事实、假设和证据指针。
package summarizer

import "time"

// ReasoningState 推理进度的结构化摘要
type ReasoningState struct {
	// ExecutiveSummary 进度的高层摘要
	ExecutiveSummary string `json:"executive_summary"`
	// ConfirmedFacts 已被证据确认的事实
	ConfirmedFacts []string `json:"confirmed_facts,omitempty"`
	// Hypotheses 尚未确认的工作假设
	Hypotheses []string `json:"hypotheses,omitempty"`
	// OpenQuestions 待回答的问题
	OpenQuestions []string `json:"open_questions,omitempty"`
	// VisitedSources 已访问来源的 URL 或制品 ID
	VisitedSources []string `json:"visited_sources,omitempty"`
	// NextActions 计划的后续动作
	NextActions []string `json:"next_actions,omitempty"`
	// CreatedAt 创建时间
	CreatedAt time.Time `json:"created_at"`
	// StepNumber 创建摘要时的步数
	StepNumber int `json:"step_number"`
}
