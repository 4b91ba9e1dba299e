package otel

import "go.opentelemetry.io/otel/attribute"

// 预定义的语义属性键
// 遵循 OpenTelemetry 语义约定
const (
	// Artifact 相关属性
	AttrArtifactID    = "artifact.id"
	AttrArtifactKind  = "artifact.content_type"
	AttrArtifactBytes = "artifact.size_bytes"
	AttrArtifactPath  = "artifact.path"

	// Tool 相关属性
	AttrToolName = "tool.name"

	// Masking 相关属性
	AttrMaskThreshold = "mask.threshold_chars"
	AttrMaskedChars   = "mask.masked_chars"

	// Retrieval 相关属性
	AttrSearchQuery  = "search.query"
	AttrSearchTopK   = "search.top_k"
	AttrSearchScore  = "search.score"
	AttrChunkCount   = "index.chunk_count"
	AttrContextLines = "search.context_lines"

	// Assembly 相关属性
	AttrBlockName   = "assembly.block"
	AttrBlockBudget = "assembly.block_budget"
	AttrBlockTokens = "assembly.block_tokens"

	// Engine 相关属性
	AttrEngineStep = "engine.step"

	// Error 相关属性
	AttrErrorType    = "error.type"
	AttrErrorMessage = "error.message"
)

// ArtifactID 创建制品 ID 属性
func ArtifactID(id string) attribute.KeyValue {
	return attribute.String(AttrArtifactID, id)
}

// ArtifactKind 创建制品内容类型属性
func ArtifactKind(kind string) attribute.KeyValue {
	return attribute.String(AttrArtifactKind, kind)
}

// ArtifactBytes 创建制品大小属性
func ArtifactBytes(n int64) attribute.KeyValue {
	return attribute.Int64(AttrArtifactBytes, n)
}

// ToolName 创建工具名称属性
func ToolName(name string) attribute.KeyValue {
	return attribute.String(AttrToolName, name)
}

// SearchQuery 创建检索查询属性
func SearchQuery(query string) attribute.KeyValue {
	return attribute.String(AttrSearchQuery, query)
}

// SearchTopK 创建检索 TopK 属性
func SearchTopK(k int) attribute.KeyValue {
	return attribute.Int(AttrSearchTopK, k)
}

// BlockName 创建上下文块名称属性
func BlockName(name string) attribute.KeyValue {
	return attribute.String(AttrBlockName, name)
}

// EngineStep 创建引擎步数属性
func EngineStep(step int) attribute.KeyValue {
	return attribute.Int(AttrEngineStep, step)
}

// ErrorAttrs 创建错误属性
func ErrorAttrs(errType, message string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrErrorType, errType),
		attribute.String(AttrErrorMessage, message),
	}
}
