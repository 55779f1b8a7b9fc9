package logging

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		wantDebug bool
		wantInfo  bool
	}{
		{name: "DefaultIsInfo", opts: Options{}, wantDebug: false, wantInfo: true},
		{name: "UnknownFallsBackToInfo", opts: Options{Level: "loud"}, wantDebug: false, wantInfo: true},
		{name: "Warn", opts: Options{Level: "warn"}, wantDebug: false, wantInfo: false},
		{name: "DebugFlagWins", opts: Options{Level: "warn", Debug: true}, wantDebug: true, wantInfo: true},
		{name: "TraceStaysTrace", opts: Options{Level: "trace", Debug: true}, wantDebug: true, wantInfo: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.opts.Output = &buf
			logger := New(tt.opts)

			assert.Equal(t, tt.wantDebug, logger.IsDebug())
			assert.Equal(t, tt.wantInfo, logger.IsInfo())
		})
	}
}

func TestLogErrorTree_LogsNestedErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Output: &buf})

	err := fmt.Errorf("load failed: %w", errors.Join(errors.New("missing type A"), errors.New("missing type B")))
	LogErrorTree(logger, "install failed", err, "plugin", "Foo")

	out := buf.String()
	assert.Contains(t, out, "install failed")
	assert.Equal(t, 2, strings.Count(out, "nested error"))
	assert.Contains(t, out, "plugin=Foo")

	buf.Reset()
	LogErrorTree(logger, "install failed", errors.New("plain"), "plugin", "Foo")
	assert.NotContains(t, buf.String(), "nested error")
}
