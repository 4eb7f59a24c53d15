package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"", ModeGenerate},
		{"generate", ModeGenerate},
		{"debug", ModeDebug},
		{"explain", ModeExplain},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		require.NoError(t, err, "mode %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseModeRejectsUnknown(t *testing.T) {
	_, err := ParseMode("summarize")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestRequiresContext(t *testing.T) {
	assert.False(t, ModeGenerate.RequiresContext())
	assert.True(t, ModeDebug.RequiresContext())
	assert.True(t, ModeExplain.RequiresContext())
}

func TestPromptsPerMode(t *testing.T) {
	system, user := prompts(Request{Prompt: "make a fib function", Mode: ModeGenerate})
	assert.Contains(t, system, "expert programmer")
	assert.Equal(t, "make a fib function", user)

	system, user = prompts(Request{Prompt: "it panics", Mode: ModeDebug, CodeContext: "func f() {}"})
	assert.Contains(t, system, "expert debugger")
	assert.Contains(t, user, "func f() {}")
	assert.Contains(t, user, "Issue: it panics")

	system, user = prompts(Request{Prompt: "the loop", Mode: ModeExplain, CodeContext: "for {}"})
	assert.Contains(t, system, "instructor")
	assert.Contains(t, user, "for {}")
	assert.Contains(t, user, "Focus: the loop")
}

func TestTemperaturePerMode(t *testing.T) {
	assert.Equal(t, 0.7, temperature(ModeGenerate))
	assert.Equal(t, 0.3, temperature(ModeDebug))
	assert.Equal(t, 0.5, temperature(ModeExplain))
}
