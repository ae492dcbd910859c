// Package middleware provides an interception pipeline around agent runs.
package middleware

import (
	"context"

	"github.com/sweetpotato0/pharmacy-assistant/message"
)

// Context represents the middleware execution context
type Context struct {
	// Original user input (the latest user message)
	Input string

	// Messages before processing
	Messages []*message.Message

	// Response produced by the agent
	Response *message.Message

	// Error from execution
	Error error

	// Metadata for passing data between middlewares
	Metadata map[string]interface{}

	// Internal state
	context context.Context
}

// NewContext creates a new middleware context
func NewContext(ctx context.Context) *Context {
	return &Context{
		Metadata: make(map[string]interface{}),
		context:  ctx,
	}
}

// Context returns the underlying context.Context
func (c *Context) Context() context.Context {
	return c.context
}

// Middleware defines the interface for middleware components.
// Middlewares can intercept and modify requests/responses around an agent run.
type Middleware interface {
	// Name returns the name of the middleware for logging and debugging
	Name() string

	// Execute runs the middleware logic. It receives the current context
	// and a next handler to continue the chain. Returning an error stops
	// the chain.
	Execute(ctx *Context, next Handler) error
}

// Handler is the function called to pass control to the next middleware
type Handler func(*Context) error

// Chain represents a sequence of middleware to be executed
type Chain struct {
	middlewares []Middleware
}

// NewChain creates a new middleware chain
func NewChain(middlewares ...Middleware) *Chain {
	return &Chain{middlewares: middlewares}
}

// Add appends a middleware to the chain
func (c *Chain) Add(m Middleware) *Chain {
	c.middlewares = append(c.middlewares, m)
	return c
}

// Len returns the number of middlewares in the chain
func (c *Chain) Len() int {
	return len(c.middlewares)
}

// Execute runs all middlewares in the chain followed by the final handler
func (c *Chain) Execute(ctx *Context, finalHandler Handler) error {
	return c.execute(ctx, 0, finalHandler)
}

func (c *Chain) execute(ctx *Context, index int, final Handler) error {
	if index >= len(c.middlewares) {
		return final(ctx)
	}
	current := c.middlewares[index]
	return current.Execute(ctx, func(next *Context) error {
		return c.execute(next, index+1, final)
	})
}
