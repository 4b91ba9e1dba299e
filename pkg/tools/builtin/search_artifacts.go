package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/easyops/compaction-go/pkg/artifact"
	"github.com/easyops/compaction-go/pkg/tools"
)

// DefaultSearchLimit 默认返回的最大制品数
const DefaultSearchLimit = 20

// SearchArtifactsTool 按元数据过滤检索制品的工具
type SearchArtifactsTool struct {
	store ArtifactStore
}

// NewSearchArtifactsTool 创建制品检索工具
func NewSearchArtifactsTool(store ArtifactStore) *SearchArtifactsTool {
	return &SearchArtifactsTool{store: store}
}

// Name 返回工具名称
func (t *SearchArtifactsTool) Name() string {
	return "search_artifacts"
}

// Description 返回工具描述
func (t *SearchArtifactsTool) Description() string {
	return "Search stored artifacts by tool name, tags, or source URL. Returns matching artifact IDs with their metadata."
}

// Parameters 返回参数 Schema
func (t *SearchArtifactsTool) Parameters() tools.ParameterSchema {
	return tools.ParameterSchema{
		Type: "object",
		Properties: map[string]tools.PropertySchema{
			"tool_name": {
				Type:        "string",
				Description: "Filter by the tool that created the artifact",
			},
			"tags": {
				Type:        "string",
				Description: "Comma-separated tags to filter by",
			},
			"url_contains": {
				Type:        "string",
				Description: "Filter by source URL substring",
			},
			"limit": {
				Type:        "integer",
				Description: "Maximum number of results (default: 20)",
			},
		},
	}
}

// Execute 检索制品元数据并格式化为列表
func (t *SearchArtifactsTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	toolName, _ := args["tool_name"].(string)
	urlContains, _ := args["url_contains"].(string)
	limit := intArg(args, "limit", DefaultSearchLimit)

	var tagList []string
	if tags, ok := args["tags"].(string); ok && tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			tagList = append(tagList, strings.TrimSpace(tag))
		}
	}

	results := t.store.List(artifact.ListFilter{
		ToolName:          toolName,
		Tags:              tagList,
		SourceURLContains: urlContains,
		Limit:             limit,
	})

	if len(results) == 0 {
		return "No artifacts found matching the criteria.", nil
	}

	lines := []string{fmt.Sprintf("Found %d artifact(s):\n", len(results))}
	for _, meta := range results {
		title := meta.Title
		if title == "" {
			title = "(untitled)"
		}
		url := ""
		if meta.SourceURL != "" {
			url = " | URL: " + meta.SourceURL
		}
		lines = append(lines, fmt.Sprintf("- %s: %s | %s | %d bytes%s",
			meta.ArtifactID, title, meta.ToolName, meta.SizeBytes, url))
	}
	return strings.Join(lines, "\n"), nil
}

// compile-time interface check
var _ tools.Tool = (*SearchArtifactsTool)(nil)
