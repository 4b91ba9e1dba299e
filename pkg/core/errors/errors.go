// Package errors 定义压缩引擎的通用错误类型
package errors

import (
	"errors"
	"fmt"
)

// 通用错误
var (
	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrContextCanceled 上下文被取消
	ErrContextCanceled = errors.New("context canceled")
)

// Artifact 相关错误
var (
	// ErrArtifactNotFound 制品未找到（元数据缺失或文件被外部删除）
	ErrArtifactNotFound = errors.New("artifact not found")
	// ErrMalformedRecord 账本记录解析失败
	ErrMalformedRecord = errors.New("malformed ledger record")
	// ErrNotTextContent 制品内容不是文本，无法按文本处理
	ErrNotTextContent = errors.New("artifact content is not text")
)

// Retrieval 相关错误
var (
	// ErrIndexClosed 检索索引已关闭
	ErrIndexClosed = errors.New("retrieval index closed")
	// ErrEmptyQuery 查询清理后没有可用词项
	ErrEmptyQuery = errors.New("empty query")
)

// Tool 相关错误
var (
	// ErrToolNotFound 工具未找到
	ErrToolNotFound = errors.New("tool not found")
	// ErrInvalidTool 工具无效（为 nil 或名称为空）
	ErrInvalidTool = errors.New("invalid tool")
	// ErrInvalidToolArgs 工具参数无效
	ErrInvalidToolArgs = errors.New("invalid tool arguments")
	// ErrToolAlreadyRegistered 工具已注册
	ErrToolAlreadyRegistered = errors.New("tool already registered")
)

// WrapError 包装错误并添加上下文信息
func WrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// IsNotFound 判断错误是否为"未找到"类错误
func IsNotFound(err error) bool {
	return errors.Is(err, ErrArtifactNotFound) || errors.Is(err, ErrToolNotFound)
}
