package summarizer

import (
	"context"
	"regexp"
	"strings"

	"github.com/easyops/compaction-go/pkg/core/message"
)

// Extraction 从消息中提取的结构化信息
type Extraction struct {
	// ConfirmedFacts 已确认的事实
	ConfirmedFacts []string
	// Hypotheses 工作假设
	Hypotheses []string
	// OpenQuestions 未解决的问题
	OpenQuestions []string
}

// Extractor 从对话消息提取结构化信息的接口
type Extractor interface {
	Extract(ctx context.Context, messages []message.Message) (Extraction, error)
}

// 提取上限
const (
	maxFacts      = 10
	maxHypotheses = 5
	maxQuestions  = 5

	// 单条消息内每个模式的匹配上限
	perMessageFacts      = 3
	perMessageHypotheses = 2
	perMessageQuestions  = 2

	// 最小有效长度
	minFactLen     = 20
	minQuestionLen = 10

	// 单条条目的最大长度
	maxItemLen = 200
)

var factPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:confirmed|verified|found that|discovered that|it is|the answer is)[:\s]+(.+?)(?:\.|$)`),
	regexp.MustCompile(`(?i)(?:according to|based on|the data shows)[:\s]+(.+?)(?:\.|$)`),
}

var hypothesisPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:hypothesis|theory|might be|could be|possibly|likely)[:\s]+(.+?)(?:\.|$)`),
	regexp.MustCompile(`(?i)(?:I think|I believe|it seems|appears to be)[:\s]+(.+?)(?:\.|$)`),
}

var questionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:need to find|need to verify|question|unclear|unknown)[:\s]+(.+?)(?:\?|$)`),
	regexp.MustCompile(`(?i)(?:what|how|why|when|where|who)[^?]*\?`),
}

// HeuristicExtractor 基于正则启发式的提取器
//
// 不依赖模型，从助手消息中按关键词模式提取事实、假设和问题。
type HeuristicExtractor struct{}

// NewHeuristicExtractor 创建启发式提取器
func NewHeuristicExtractor() *HeuristicExtractor {
	return &HeuristicExtractor{}
}

// Extract 从消息中提取结构化信息
func (e *HeuristicExtractor) Extract(ctx context.Context, messages []message.Message) (Extraction, error) {
	var result Extraction

	for _, msg := range messages {
		if msg.Role != message.RoleAssistant {
			continue
		}

		result.ConfirmedFacts = collectMatches(msg.Content, factPatterns,
			result.ConfirmedFacts, perMessageFacts, minFactLen)
		result.Hypotheses = collectMatches(msg.Content, hypothesisPatterns,
			result.Hypotheses, perMessageHypotheses, minFactLen)
		result.OpenQuestions = collectMatches(msg.Content, questionPatterns,
			result.OpenQuestions, perMessageQuestions, minQuestionLen)
	}

	result.ConfirmedFacts = capSlice(result.ConfirmedFacts, maxFacts)
	result.Hypotheses = capSlice(result.Hypotheses, maxHypotheses)
	result.OpenQuestions = capSlice(result.OpenQuestions, maxQuestions)
	return result, nil
}

// collectMatches 按模式提取并去重追加到 acc
func collectMatches(content string, patterns []*regexp.Regexp, acc []string, perPattern, minLen int) []string {
	for _, pattern := range patterns {
		matches := pattern.FindAllStringSubmatch(content, -1)
		if len(matches) > perPattern {
			matches = matches[:perPattern]
		}
		for _, m := range matches {
			// 有捕获组时取组内容，否则取整个匹配
			text := m[0]
			if len(m) > 1 && m[1] != "" {
				text = m[1]
			}
			text = strings.TrimSpace(text)
			if len(text) <= minLen {
				continue
			}
			if len(text) > maxItemLen {
				text = text[:maxItemLen]
			}
			if !containsString(acc, text) {
				acc = append(acc, text)
			}
		}
	}
	return acc
}

func capSlice(s []string, max int) []string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// compile-time interface check
var _ Extractor = (*HeuristicExtractor)(nil)
