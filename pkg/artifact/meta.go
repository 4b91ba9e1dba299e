// Package artifact 提供制品的持久化存储与元数据账本
//
// 制品是工具或外部来源产生的存储对象，例如 HTML、PDF、提取的文本、
// 截图、JSON、日志等。
package artifact

import "time"

// 常见内容类型
const (
	// ContentTypeText 纯文本
	ContentTypeText = "text/plain"
	// ContentTypeHTML HTML 文档
	ContentTypeHTML = "text/html"
	// ContentTypeJSON JSON 数据
	ContentTypeJSON = "application/json"
	// ContentTypePDF PDF 文档
	ContentTypePDF = "application/pdf"
	// ContentTypePNG PNG 图片
	ContentTypePNG = "image/png"
	// ContentTypeJPEG JPEG 图片
	ContentTypeJPEG = "image/jpeg"
)

// extByContentType 内容类型到文件扩展名的映射
var extByContentType = map[string]string{
	ContentTypeHTML: ".html",
	ContentTypeText: ".txt",
	ContentTypeJSON: ".json",
	ContentTypePDF:  ".pdf",
	ContentTypePNG:  ".png",
	ContentTypeJPEG: ".jpg",
}

// ExtForContentType 返回内容类型对应的文件扩展名，未知类型返回 ".bin"
func ExtForContentType(contentType string) string {
	if ext, ok := extByContentType[contentType]; ok {
		return ext
	}
	return ".bin"
}

// IsTextContentType 判断内容类型是否按文本读取
func IsTextContentType(contentType string) bool {
	if contentType == ContentTypeJSON {
		return true
	}
	return len(contentType) >= 5 && contentType[:5] == "text/"
}

// Meta 制品元数据
//
// 每条元数据以一行 JSON 的形式追加到账本文件中。
type Meta struct {
	// ArtifactID 制品唯一标识
	ArtifactID string `json:"artifact_id"`
	// CreatedAt 创建时间（UTC）
	CreatedAt time.Time `json:"created_at"`
	// ToolName 产生该制品的工具名称
	ToolName string `json:"tool_name"`
	// SourceURL 来源 URL（从网络抓取时）
	SourceURL string `json:"source_url,omitempty"`
	// ContentType 内容的 MIME 类型
	ContentType string `json:"content_type"`
	// ContentHash 内容的 SHA256 哈希
	ContentHash string `json:"content_hash"`
	// StoredRawPath 原始制品文件路径
	StoredRawPath string `json:"stored_raw_path"`
	// SizeBytes 制品大小（字节）
	SizeBytes int64 `json:"size_bytes"`
	// PublishDate 发布日期（已知时）
	PublishDate *time.Time `json:"publish_date,omitempty"`
	// Title 制品标题或摘要
	Title string `json:"title,omitempty"`
	// Tags 分类标签
	Tags []string `json:"tags,omitempty"`
}
