package ui

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSONLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, LogOptions{JSON: true})

	log.Debug().Msg("hidden")
	log.Info().Str("url", "https://example.test").Msg("fetching webpage")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "fetching webpage", entry["message"])
	assert.Equal(t, "https://example.test", entry["url"])
}

func TestNewLogger_Debug(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, LogOptions{Debug: true})

	log.Debug().Msg("reading track")
	assert.Contains(t, buf.String(), "reading track")
}

func TestProgressHandle(t *testing.T) {
	pm := NewProgressManager(io.Discard)
	h := pm.Register("tracks", func() int64 { return 2048 })

	h.SetTotal(3)
	for range 3 {
		h.Increment()
	}
	h.MarkDone()
	h.MarkDone()
	h.Increment()

	pm.Close(h)
	assert.EqualValues(t, 3, h.total.Load())
}

func TestProgressManager_CloseAbortsUnfinished(t *testing.T) {
	pm := NewProgressManager(io.Discard)
	h := pm.Register("tracks", nil)
	h.SetTotal(10)
	h.Increment()

	done := make(chan struct{})
	go func() {
		pm.Close(h)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}
}

func TestStats_Print(t *testing.T) {
	var buf bytes.Buffer
	Stats{Output: "tracks.csv", Rows: 4, Bytes: 2048, Start: time.Now()}.Print(&buf)
	assert.Contains(t, buf.String(), "4 tracks appended to tracks.csv (2.00 KB)")
}
