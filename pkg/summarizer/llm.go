package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/easyops/compaction-go/pkg/core/message"
)

const extractionPrompt = `Extract structured information from the conversation below.
Respond with a JSON object of the form:
{"confirmed_facts": [...], "hypotheses": [...], "open_questions": [...]}

- confirmed_facts: facts explicitly confirmed with evidence (max 10)
- hypotheses: working hypotheses not yet confirmed (max 5)
- open_questions: questions still to be answered (max 5)

Conversation:
`

// OpenAIExtractor 基于 OpenAI 模型的提取器
//
// 用模型替代启发式规则，提取质量更高但引入网络调用。
// 解析失败时回退到启发式提取。
type OpenAIExtractor struct {
	client   *openai.Client
	model    string
	fallback *HeuristicExtractor
}

// OpenAIExtractorOption 配置选项
type OpenAIExtractorOption func(*OpenAIExtractor)

// WithExtractorModel 设置模型名称
func WithExtractorModel(model string) OpenAIExtractorOption {
	return func(e *OpenAIExtractor) {
		e.model = model
	}
}

// NewOpenAIExtractor 创建模型提取器
//
// baseURL 非空时指向 OpenAI 兼容端点。
func NewOpenAIExtractor(apiKey, baseURL string, opts ...OpenAIExtractorOption) (*OpenAIExtractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai extractor requires an API key")
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	e := &OpenAIExtractor{
		client:   openai.NewClientWithConfig(config),
		model:    "gpt-4o-mini",
		fallback: NewHeuristicExtractor(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Extract 用模型从消息中提取结构化信息
func (e *OpenAIExtractor) Extract(ctx context.Context, messages []message.Message) (Extraction, error) {
	var b strings.Builder
	b.WriteString(extractionPrompt)
	for _, msg := range messages {
		if msg.Role != message.RoleAssistant && msg.Role != message.RoleUser {
			continue
		}
		b.WriteString(string(msg.Role))
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: b.String()},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return e.fallback.Extract(ctx, messages)
	}
	if len(resp.Choices) == 0 {
		return e.fallback.Extract(ctx, messages)
	}

	var parsed struct {
		ConfirmedFacts []string `json:"confirmed_facts"`
		Hypotheses     []string `json:"hypotheses"`
		OpenQuestions  []string `json:"open_questions"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return e.fallback.Extract(ctx, messages)
	}

	return Extraction{
		ConfirmedFacts: capSlice(parsed.ConfirmedFacts, maxFacts),
		Hypotheses:     capSlice(parsed.Hypotheses, maxHypotheses),
		OpenQuestions:  capSlice(parsed.OpenQuestions, maxQuestions),
	}, nil
}

// compile-time interface check
var _ Extractor = (*OpenAIExtractor)(nil)
