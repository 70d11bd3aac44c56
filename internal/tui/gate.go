package tui

import (
	"context"

	"github.com/xldeveloper/foreman/internal/process"
)

// gateRequest pairs a raised breakpoint with its reply channel.
type gateRequest struct {
	breakpoint process.Breakpoint
	reply      chan process.Decision
}

// Gate is a process.Gate whose resolutions are driven by the TUI event loop.
// The process goroutine blocks in Resolve until the user answers on screen.
type Gate struct {
	requests chan gateRequest
}

// NewGate builds an unresolved gate for one app instance.
func NewGate() *Gate {
	return &Gate{requests: make(chan gateRequest)}
}

// Resolve implements process.Gate.
func (g *Gate) Resolve(ctx context.Context, breakpoint process.Breakpoint) (process.Decision, error) {
	request := gateRequest{breakpoint: breakpoint, reply: make(chan process.Decision, 1)}
	select {
	case g.requests <- request:
	case <-ctx.Done():
		return process.Decision{}, ctx.Err()
	}
	select {
	case decision := <-request.reply:
		return decision, nil
	case <-ctx.Done():
		return process.Decision{}, ctx.Err()
	}
}
