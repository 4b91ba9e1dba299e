package tools_test

import (
	"context"
	"errors"
	"testing"

	coreerrors "github.com/easyops/compaction-go/pkg/core/errors"
	"github.com/easyops/compaction-go/pkg/tools"
)

type stubTool struct {
	name string
}

func (t *stubTool) Name() string        { return t.name }
func (t *stubTool) Description() string { return "stub tool" }
func (t *stubTool) Parameters() tools.ParameterSchema {
	return tools.ParameterSchema{Type: "object"}
}
func (t *stubTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	return "ok", nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := tools.NewRegistry()

	if err := r.Register(&stubTool{name: "alpha"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tool, err := r.Get("alpha")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if tool.Name() != "alpha" {
		t.Errorf("unexpected tool name %q", tool.Name())
	}
	if !r.Has("alpha") {
		t.Error("expected Has to report registered tool")
	}
	if r.Count() != 1 {
		t.Errorf("expected 1 tool, got %d", r.Count())
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := tools.NewRegistry()

	if err := r.Register(&stubTool{name: "alpha"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	err := r.Register(&stubTool{name: "alpha"})
	if !errors.Is(err, coreerrors.ErrToolAlreadyRegistered) {
		t.Errorf("expected ErrToolAlreadyRegistered, got %v", err)
	}
}

func TestRegistryRejectsInvalidTool(t *testing.T) {
	r := tools.NewRegistry()

	if err := r.Register(nil); !errors.Is(err, coreerrors.ErrInvalidTool) {
		t.Errorf("expected ErrInvalidTool for nil, got %v", err)
	}
	if err := r.Register(&stubTool{name: ""}); !errors.Is(err, coreerrors.ErrInvalidTool) {
		t.Errorf("expected ErrInvalidTool for empty name, got %v", err)
	}
}

func TestRegistryGetNotFound(t *testing.T) {
	r := tools.NewRegistry()

	_, err := r.Get("missing")
	if !errors.Is(err, coreerrors.ErrToolNotFound) {
		t.Errorf("expected ErrToolNotFound, got %v", err)
	}
	if !coreerrors.IsNotFound(err) {
		t.Error("expected IsNotFound to match")
	}
}

func TestRegistryUnregister(t *testing.T) {
	r := tools.NewRegistry()

	r.MustRegister(&stubTool{name: "alpha"})
	if err := r.Unregister("alpha"); err != nil {
		t.Fatalf("Unregister failed: %v", err)
	}
	if r.Has("alpha") {
		t.Error("expected tool removed")
	}
	if err := r.Unregister("alpha"); !errors.Is(err, coreerrors.ErrToolNotFound) {
		t.Errorf("expected ErrToolNotFound, got %v", err)
	}
}

func TestRegistryToDefinitions(t *testing.T) {
	r := tools.NewRegistry()

	if err := r.RegisterAll(&stubTool{name: "alpha"}, &stubTool{name: "beta"}); err != nil {
		t.Fatalf("RegisterAll failed: %v", err)
	}

	defs := r.ToDefinitions()
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}
	for _, def := range defs {
		if def.Description != "stub tool" {
			t.Errorf("unexpected description %q", def.Description)
		}
	}
}
