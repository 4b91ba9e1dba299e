package message

import "errors"

var (
	// ErrInvalidRole 无效的消息角色
	ErrInvalidRole = errors.New("invalid message role")
	// ErrEmptyContent 消息内容为空
	ErrEmptyContent = errors.New("empty message content")
	// ErrMissingToolCallID 缺少工具调用 ID
	ErrMissingToolCallID = errors.New("missing tool call ID")
)
