// Package builtin 提供制品管理的内置工具实现
package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/easyops/compaction-go/pkg/artifact"
	"github.com/easyops/compaction-go/pkg/tools"
)

// ArtifactStore 内置工具依赖的制品存储接口
type ArtifactStore interface {
	WriteText(ctx context.Context, content string, req artifact.WriteRequest) (*artifact.Meta, error)
	ReadText(ctx context.Context, artifactID string) (string, error)
	List(filter artifact.ListFilter) []artifact.Meta
}

// SaveArtifactTool 保存内容为持久化制品的工具
type SaveArtifactTool struct {
	store ArtifactStore
}

// NewSaveArtifactTool 创建制品保存工具
func NewSaveArtifactTool(store ArtifactStore) *SaveArtifactTool {
	return &SaveArtifactTool{store: store}
}

// Name 返回工具名称
func (t *SaveArtifactTool) Name() string {
	return "save_artifact"
}

// Description 返回工具描述
func (t *SaveArtifactTool) Description() string {
	return "Save content as a persistent artifact for later retrieval. Use this to save important content such as research findings, extracted data, or important quotes."
}

// Parameters 返回参数 Schema
func (t *SaveArtifactTool) Parameters() tools.ParameterSchema {
	return tools.ParameterSchema{
		Type: "object",
		Properties: map[string]tools.PropertySchema{
			"content": {
				Type:        "string",
				Description: "The content to save",
			},
			"title": {
				Type:        "string",
				Description: "Optional title for the artifact",
			},
			"source_url": {
				Type:        "string",
				Description: "Optional source URL",
			},
			"tags": {
				Type:        "string",
				Description: "Optional comma-separated tags",
			},
		},
		Required: []string{"content"},
	}
}

// Execute 保存内容并返回制品 ID
func (t *SaveArtifactTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	content, ok := args["content"].(string)
	if !ok || content == "" {
		return "", fmt.Errorf("content is required")
	}

	title, _ := args["title"].(string)
	sourceURL, _ := args["source_url"].(string)

	var tagList []string
	if tags, ok := args["tags"].(string); ok && tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			tagList = append(tagList, strings.TrimSpace(tag))
		}
	}

	meta, err := t.store.WriteText(ctx, content, artifact.WriteRequest{
		ToolName:  "save_artifact",
		SourceURL: sourceURL,
		Title:     title,
		Tags:      tagList,
	})
	if err != nil {
		return "", fmt.Errorf("failed to save artifact: %w", err)
	}

	return fmt.Sprintf("Saved artifact %s (%s chars)", meta.ArtifactID, formatThousands(len(content))), nil
}

// formatThousands 按千位分隔格式化整数
func formatThousands(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	rem := len(s) % 3
	if rem > 0 {
		b.WriteString(s[:rem])
	}
	for i := rem; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteString(",")
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// compile-time interface check
var _ tools.Tool = (*SaveArtifactTool)(nil)
