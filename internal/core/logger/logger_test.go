package logger

import (
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestBuild_WritesRotatedFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.log")
	l, flush := Build(Options{
		Level: "debug",
		JSON:  true,
		Rotate: FileRotate{
			Enable:    true,
			Filename:  file,
			MaxSizeMB: 1,
		},
	})
	l.Info("hello")
	flush()

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Contains(t, string(b), `"msg":"hello"`)
}

func TestBuild_LevelFilters(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.log")
	l, flush := Build(Options{
		Level:  "warn",
		JSON:   true,
		Rotate: FileRotate{Enable: true, Filename: file},
	})
	l.Info("dropped")
	l.Warn("kept")
	flush()

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	require.NotContains(t, string(b), "dropped")
	require.Contains(t, string(b), "kept")
}

func TestBuild_BadLevelFallsBackToInfo(t *testing.T) {
	l, flush := Build(Options{Level: "loud"})
	defer flush()
	require.True(t, l.Core().Enabled(zapcore.InfoLevel))
	require.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestRedirectStdLog(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.log")
	l, flush := Build(Options{Level: "info", JSON: true, Rotate: FileRotate{Enable: true, Filename: file}})
	undo := RedirectStdLog(l, zapcore.WarnLevel)
	log.Print("from stdlib")
	undo()
	flush()

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Contains(t, string(b), "from stdlib")
	require.Contains(t, string(b), `"level":"warn"`)
}
