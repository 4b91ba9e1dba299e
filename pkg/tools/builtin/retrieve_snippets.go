package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/easyops/compaction-go/pkg/retrieval"
	"github.com/easyops/compaction-go/pkg/tools"
)

// DefaultMaxSnippets 默认返回的最大片段数
const DefaultMaxSnippets = 5

// snippetPreviewChars 单个片段的预览长度上限
const snippetPreviewChars = 400

// SnippetIndex 片段检索工具依赖的索引接口
type SnippetIndex interface {
	IndexArtifact(ctx context.Context, artifactID string) (int, error)
	IndexAll(ctx context.Context) (int, error)
	SearchWithContext(ctx context.Context, query string, req retrieval.SearchRequest, contextLines int) ([]retrieval.Result, error)
}

// RetrieveSnippetsTool 在制品内做全文检索的工具
//
// 让模型在不加载完整制品的情况下定位其中的具体信息。
type RetrieveSnippetsTool struct {
	index        SnippetIndex
	contextLines int
}

// RetrieveSnippetsOption 工具配置选项
type RetrieveSnippetsOption func(*RetrieveSnippetsTool)

// WithSnippetContextLines 设置片段前后附带的行数
func WithSnippetContextLines(n int) RetrieveSnippetsOption {
	return func(t *RetrieveSnippetsTool) {
		t.contextLines = n
	}
}

// NewRetrieveSnippetsTool 创建片段检索工具
func NewRetrieveSnippetsTool(index SnippetIndex, opts ...RetrieveSnippetsOption) *RetrieveSnippetsTool {
	t := &RetrieveSnippetsTool{
		index:        index,
		contextLines: retrieval.DefaultContextLines,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Name 返回工具名称
func (t *RetrieveSnippetsTool) Name() string {
	return "retrieve_snippets"
}

// Description 返回工具描述
func (t *RetrieveSnippetsTool) Description() string {
	return "Retrieve relevant snippets from stored artifacts based on a query. Use this to find specific information within large artifacts without loading the entire content."
}

// Parameters 返回参数 Schema
func (t *RetrieveSnippetsTool) Parameters() tools.ParameterSchema {
	return tools.ParameterSchema{
		Type: "object",
		Properties: map[string]tools.PropertySchema{
			"query": {
				Type:        "string",
				Description: "The search query to find relevant content",
			},
			"artifact_id": {
				Type:        "string",
				Description: "Optional artifact ID to limit the search to",
			},
			"max_snippets": {
				Type:        "integer",
				Description: "Maximum number of snippets to return (default: 5)",
			},
		},
		Required: []string{"query"},
	}
}

// Execute 确保目标制品已索引后执行全文检索
func (t *RetrieveSnippetsTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return "", fmt.Errorf("query is required")
	}

	artifactID, _ := args["artifact_id"].(string)
	maxSnippets := intArg(args, "max_snippets", DefaultMaxSnippets)

	if artifactID != "" {
		if _, err := t.index.IndexArtifact(ctx, artifactID); err != nil {
			return "", fmt.Errorf("failed to index artifact: %w", err)
		}
	} else {
		if _, err := t.index.IndexAll(ctx); err != nil {
			return "", fmt.Errorf("failed to index artifacts: %w", err)
		}
	}

	results, err := t.index.SearchWithContext(ctx, query, retrieval.SearchRequest{
		ArtifactID: artifactID,
		TopK:       maxSnippets,
	}, t.contextLines)
	if err != nil {
		return "", fmt.Errorf("retrieval failed: %w", err)
	}

	if len(results) == 0 {
		target := "any artifacts"
		if artifactID != "" {
			target = "artifact " + artifactID
		}
		return fmt.Sprintf("No snippets matching '%s' found in %s", query, target), nil
	}

	lines := []string{fmt.Sprintf("Found %d snippet(s) matching '%s':\n", len(results), query)}
	for _, r := range results {
		preview := r.Snippet
		if len(preview) > snippetPreviewChars {
			preview = preview[:snippetPreviewChars] + "..."
		}
		lines = append(lines, fmt.Sprintf("[%s | Line %d | Score: %.2f]",
			r.ArtifactID, r.LineNumber, r.Score))
		lines = append(lines, preview)
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n"), nil
}

// compile-time interface check
var _ tools.Tool = (*RetrieveSnippetsTool)(nil)
