package message_test

import (
	"errors"
	"testing"

	"github.com/easyops/compaction-go/pkg/core/message"
)

func TestConstructors(t *testing.T) {
	user := message.NewUserMessage("hello")
	if user.Role != message.RoleUser || user.Content != "hello" {
		t.Errorf("unexpected user message %+v", user)
	}
	if user.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}

	tool := message.NewToolMessage("call_1", "fetch_page", "result")
	if tool.Role != message.RoleTool || tool.ToolCallID != "call_1" || tool.Name != "fetch_page" {
		t.Errorf("unexpected tool message %+v", tool)
	}
}

func TestValidate(t *testing.T) {
	valid := message.NewAssistantMessage("thinking")
	if err := valid.Validate(); err != nil {
		t.Errorf("expected valid message, got %v", err)
	}

	bad := message.Message{Role: message.Role("robot"), Content: "x"}
	if err := bad.Validate(); !errors.Is(err, message.ErrInvalidRole) {
		t.Errorf("expected ErrInvalidRole, got %v", err)
	}

	empty := message.Message{Role: message.RoleUser}
	if err := empty.Validate(); !errors.Is(err, message.ErrEmptyContent) {
		t.Errorf("expected ErrEmptyContent, got %v", err)
	}

	noID := message.Message{Role: message.RoleTool, Content: "result"}
	if err := noID.Validate(); !errors.Is(err, message.ErrMissingToolCallID) {
		t.Errorf("expected ErrMissingToolCallID, got %v", err)
	}
}

func TestAssistantMessageWithToolCallsOnly(t *testing.T) {
	msg := message.Message{
		Role: message.RoleAssistant,
		ToolCalls: []message.ToolCall{
			{ID: "call_1", Name: "fetch_page"},
		},
	}
	if err := msg.Validate(); err != nil {
		t.Errorf("expected tool-call-only assistant message to be valid, got %v", err)
	}
	if !msg.HasToolCalls() {
		t.Error("expected HasToolCalls to be true")
	}
}
