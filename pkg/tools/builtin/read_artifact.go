package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/easyops/compaction-go/pkg/tools"
)

// DefaultReadLimit 默认返回的最大行数
const DefaultReadLimit = 500

// ReadArtifactTool 按 ID 读取制品内容的工具
//
// 支持按行偏移和行数限制分页读取大制品。
type ReadArtifactTool struct {
	store ArtifactStore
}

// NewReadArtifactTool 创建制品读取工具
func NewReadArtifactTool(store ArtifactStore) *ReadArtifactTool {
	return &ReadArtifactTool{store: store}
}

// Name 返回工具名称
func (t *ReadArtifactTool) Name() string {
	return "read_artifact"
}

// Description 返回工具描述
func (t *ReadArtifactTool) Description() string {
	return "Read content from a stored artifact by ID. Supports line offset and limit for paging through large artifacts."
}

// Parameters 返回参数 Schema
func (t *ReadArtifactTool) Parameters() tools.ParameterSchema {
	return tools.ParameterSchema{
		Type: "object",
		Properties: map[string]tools.PropertySchema{
			"artifact_id": {
				Type:        "string",
				Description: "The artifact ID to read",
			},
			"offset": {
				Type:        "integer",
				Description: "Line offset to start reading from (default: 0)",
			},
			"limit": {
				Type:        "integer",
				Description: "Maximum number of lines to return (default: 500)",
			},
		},
		Required: []string{"artifact_id"},
	}
}

// Execute 读取制品内容，超出范围的部分附带分页说明
func (t *ReadArtifactTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	artifactID, ok := args["artifact_id"].(string)
	if !ok || artifactID == "" {
		return "", fmt.Errorf("artifact_id is required")
	}

	offset := intArg(args, "offset", 0)
	limit := intArg(args, "limit", DefaultReadLimit)
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultReadLimit
	}

	content, err := t.store.ReadText(ctx, artifactID)
	if err != nil {
		return "", fmt.Errorf("failed to read artifact: %w", err)
	}

	lines := strings.Split(content, "\n")
	if offset >= len(lines) {
		return fmt.Sprintf("[No content: offset %d is beyond the %d lines of %s]",
			offset, len(lines), artifactID), nil
	}

	end := offset + limit
	if end > len(lines) {
		end = len(lines)
	}
	result := strings.Join(lines[offset:end], "\n")

	if offset > 0 || end < len(lines) {
		result += fmt.Sprintf("\n\n[Showing lines %d-%d of %d]", offset+1, end, len(lines))
	}
	return result, nil
}

// intArg 从参数表读取整数，JSON 解码的数值为 float64
func intArg(args map[string]interface{}, key string, def int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

// compile-time interface check
var _ tools.Tool = (*ReadArtifactTool)(nil)
