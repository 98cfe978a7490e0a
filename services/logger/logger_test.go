package logsvc

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/trezcool/studyplan/core/user"
)

func newObservedLogger() (*Logger, *observer.ObservedLogs) {
	zc, logs := observer.New(zapcore.DebugLevel)
	l := newLogger(zap.New(zc))
	l.Enable(false)
	return l, logs
}

func TestLogger_fields(t *testing.T) {
	l, logs := newObservedLogger()
	usr := user.User{ID: "42", Name: "Ada", Email: "ada@example.com"}

	l.Info("plan created", map[string]interface{}{"planId": "p1"}, usr, 7)
	l.Debug("debugging")
	l.Warn("generation failed", errors.New("boom"))

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)

	fields := entries[0].ContextMap()
	assert.Equal(t, "plan created", entries[0].Message)
	assert.Equal(t, "p1", fields["planId"])
	assert.Equal(t, "42", fields["userId"])
	assert.Equal(t, "ada@example.com", fields["userEmail"])
	assert.EqualValues(t, 7, fields["arg2"])

	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)

	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, "boom", entries[2].ContextMap()["error"])
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Enable(false)
	assert.NotPanics(t, func() {
		l.Info("ignored")
		l.Error("ignored", errors.New("boom"))
	})
}
