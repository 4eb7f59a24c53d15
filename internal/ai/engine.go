// Package ai drives text generation for code assistance. Responses are
// produced either as a complete string or as a lazy, finite token stream
// pulled one fragment at a time.
package ai

import (
	"context"
	"errors"
	"fmt"
)

// Mode selects the assistant behavior for a request.
type Mode string

// Supported generation modes.
const (
	ModeGenerate Mode = "generate"
	ModeDebug    Mode = "debug"
	ModeExplain  Mode = "explain"
)

// ErrUnknownMode is returned for a mode outside the supported set.
var ErrUnknownMode = errors.New("ai: unknown mode")

// ParseMode validates a wire-level mode string. An empty mode defaults to
// generate.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeGenerate, nil
	case ModeGenerate, ModeDebug, ModeExplain:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// RequiresContext reports whether the mode needs source code attached to the
// prompt.
func (m Mode) RequiresContext() bool {
	return m == ModeDebug || m == ModeExplain
}

// Request describes one generation request.
type Request struct {
	Prompt      string
	Mode        Mode
	CodeContext string
}

// TokenStream is a finite, non-restartable sequence of text fragments. Next
// advances to the next fragment and reports whether one is available; Err
// reports a mid-stream generation failure after Next returns false.
type TokenStream interface {
	Next() bool
	Current() string
	Err() error
	Close() error
}

// Engine produces assistant responses for code generation, debugging, and
// explanation requests.
type Engine interface {
	// Complete runs the request to completion and returns the full response.
	Complete(ctx context.Context, req Request) (string, error)
	// Stream begins an incremental generation for the request.
	Stream(ctx context.Context, req Request) (TokenStream, error)
}
