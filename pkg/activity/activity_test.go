package activity

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerRecordsMessages(t *testing.T) {
	l := New(10)
	log := slog.New(l.Handler(slog.LevelInfo, nil))

	log.Info("no points met the distance criteria", "op", "distance")
	log.Debug("hidden")

	lines := l.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "INFO", lines[0].Level)
	assert.Equal(t, "no points met the distance criteria op=distance", lines[0].Message)
	assert.Contains(t, lines[0].String(), "INFO")
}

func TestRingKeepsNewest(t *testing.T) {
	l := New(3)
	log := slog.New(l.Handler(slog.LevelInfo, nil))
	for _, m := range []string{"a", "b", "c", "d", "e"} {
		log.Info(m)
	}
	var got []string
	for _, line := range l.Lines() {
		got = append(got, line.Message)
	}
	assert.Equal(t, []string{"c", "d", "e"}, got)

	l.Clear()
	assert.Empty(t, l.Lines())
}

func TestForwardsToNextHandler(t *testing.T) {
	var buf bytes.Buffer
	next := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	l := New(5)
	log := slog.New(l.Handler(slog.LevelWarn, next)).With("engine", "ops")

	log.Debug("detail")
	log.Warn("skipped item")

	assert.Contains(t, buf.String(), "detail")
	assert.Contains(t, buf.String(), "engine=ops")
	require.Len(t, l.Lines(), 1)
	assert.Equal(t, "skipped item engine=ops", l.Lines()[0].Message)
}

func TestGroupsPrefixAttrs(t *testing.T) {
	l := New(5)
	log := slog.New(l.Handler(slog.LevelInfo, nil)).WithGroup("merge")
	log.Info("merged", "items", 2)
	assert.Equal(t, "merged merge.items=2", l.Lines()[0].Message)
}

func TestSubscribe(t *testing.T) {
	l := New(5)
	var seen []string
	l.Subscribe(func(line Line) { seen = append(seen, line.Message) })
	slog.New(l.Handler(slog.LevelInfo, nil)).Info("hello")
	assert.Equal(t, []string{"hello"}, seen)
}
