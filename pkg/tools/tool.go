// Package tools 提供制品管理工具的接口定义和注册表
package tools

import (
	"context"
)

// Tool 定义工具的核心接口
//
// 工具是模型与制品存储交互的方式。通过实现此接口，
// 模型可以保存、读取和检索被遮蔽的大输出。
type Tool interface {
	// Name 返回工具唯一名称
	// 名称用于 LLM Function Calling 识别和调用
	Name() string

	// Description 返回工具描述
	// 描述应清晰说明工具的功能，帮助 LLM 理解何时使用此工具
	Description() string

	// Parameters 返回参数 Schema
	// 遵循 JSON Schema 格式，用于 Function Calling 参数验证
	Parameters() ParameterSchema

	// Execute 执行工具
	//
	// 参数:
	//   - ctx: 上下文，用于超时和取消控制
	//   - args: 工具参数（由 LLM 提供）
	//
	// 返回:
	//   - string: 工具执行结果（将返回给 LLM）
	//   - error: 执行错误
	Execute(ctx context.Context, args map[string]interface{}) (string, error)
}

// ToolWithValidation 支持参数验证的工具接口
type ToolWithValidation interface {
	Tool
	// Validate 验证参数
	Validate(args map[string]interface{}) error
}
