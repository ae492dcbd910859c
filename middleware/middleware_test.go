package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/sweetpotato0/pharmacy-assistant/message"
)

type recording struct {
	name  string
	order *[]string
}

func (m *recording) Name() string { return m.name }

func (m *recording) Execute(ctx *Context, next Handler) error {
	*m.order = append(*m.order, m.name+":before")
	err := next(ctx)
	*m.order = append(*m.order, m.name+":after")
	return err
}

func TestChainOrder(t *testing.T) {
	var order []string
	chain := NewChain(
		&recording{name: "a", order: &order},
		&recording{name: "b", order: &order},
	)

	err := chain.Execute(NewContext(context.Background()), func(ctx *Context) error {
		order = append(order, "handler")
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	want := []string{"a:before", "b:before", "handler", "b:after", "a:after"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestErrorHandlerFallback(t *testing.T) {
	chain := NewChain(NewErrorHandler("something went wrong"))

	ctx := NewContext(context.Background())
	err := chain.Execute(ctx, func(*Context) error {
		return errors.New("downstream failure")
	})
	if err != nil {
		t.Fatalf("fallback should swallow the error, got %v", err)
	}
	if ctx.Error == nil {
		t.Error("original error should be recorded in the context")
	}
	if ctx.Response == nil || ctx.Response.Content != "something went wrong" {
		t.Errorf("fallback response = %+v", ctx.Response)
	}
	if ctx.Response != nil && ctx.Response.Role != message.RoleAssistant {
		t.Errorf("fallback role = %s", ctx.Response.Role)
	}
}

func TestErrorHandlerPropagatesWithoutFallback(t *testing.T) {
	chain := NewChain(NewErrorHandler(""))

	want := errors.New("boom")
	err := chain.Execute(NewContext(context.Background()), func(*Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Errorf("error = %v, want %v", err, want)
	}
}
