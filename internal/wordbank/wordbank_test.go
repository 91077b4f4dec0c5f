package wordbank

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestDefaultIsValid(t *testing.T) {
	b := Default()
	require.NoError(t, b.Validate())
	assert.Len(t, b.KeyLines, 10)
	assert.Len(t, b.Moods, 10)
	assert.True(t, b.IsStopWord("through"))
	assert.False(t, b.IsStopWord("silence"))
}

func TestValidateReportsEveryShortList(t *testing.T) {
	b := &Bank{Prepositions: []string{"over"}}
	err := b.Validate()
	require.Error(t, err)
	for _, name := range []string{"key_lines", "verbs", "prepositions", "nouns", "adjectives", "moods", "punctuation"} {
		assert.Contains(t, err.Error(), name)
	}
}

func TestParseOverlaysDefaults(t *testing.T) {
	b, err := Parse([]byte(`
moods: [calm, storm]
verbs: [hum]
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"calm", "storm"}, b.Moods)
	assert.Equal(t, []string{"hum"}, b.Verbs)
	assert.Equal(t, Default().Nouns, b.Nouns)
}

func TestParseRejectsInvalidBank(t *testing.T) {
	_, err := Parse([]byte(`adjectives: [lonely]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "adjectives")

	_, err = Parse([]byte(`moods: {`))
	assert.Error(t, err)
}

func TestValidateCountsDistinctEntries(t *testing.T) {
	_, err := Parse([]byte(`prepositions: [a, a]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prepositions: need at least 2 distinct entries, have 1")

	_, err = Parse([]byte(`adjectives: [calm, calm, wild]`))
	assert.NoError(t, err)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestStaticSource(t *testing.T) {
	b := Default()
	assert.Same(t, b, Static{Bank: b}.Current())
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "words.yaml")
	require.NoError(t, os.WriteFile(path, []byte("moods: [calm]\n"), 0o644))

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	w, err := NewWatcher(path, logger)
	require.NoError(t, err)
	assert.Equal(t, []string{"calm"}, w.Current().Moods)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("moods: [calm, storm]\n"), 0o644))

	select {
	case err := <-w.reloaded:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload")
	}
	assert.Equal(t, []string{"calm", "storm"}, w.Current().Moods)

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherKeepsPreviousBankOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.yaml")
	require.NoError(t, os.WriteFile(path, []byte("moods: [calm]\n"), 0o644))

	w, err := NewWatcher(path, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("adjectives: [one]\n"), 0o644))
	assert.Error(t, w.Reload())
	assert.Equal(t, []string{"calm"}, w.Current().Moods)
}
