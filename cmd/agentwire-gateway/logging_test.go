// ABOUTME: Tests for the colorized console handler: level gating and
// ABOUTME: group-qualified attribute keys.

package main

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func newTestLogger(level slog.Level) (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(&colorHandler{out: &buf, level: level}), &buf
}

func TestColorHandler_LevelGating(t *testing.T) {
	color.NoColor = true

	log, buf := newTestLogger(slog.LevelInfo)
	log.Debug("not shown")
	log.Info("shown")

	out := buf.String()
	assert.NotContains(t, out, "not shown")
	assert.Contains(t, out, "INF shown")
}

func TestColorHandler_GroupsQualifyKeys(t *testing.T) {
	color.NoColor = true

	log, buf := newTestLogger(slog.LevelDebug)
	log.WithGroup("server").With("addr", ":8080").WithGroup("ws").Info("listening", "conn_id", "c1")

	out := buf.String()
	assert.Contains(t, out, "server.addr=:8080")
	assert.Contains(t, out, "server.ws.conn_id=c1")
}
