// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tui

import (
	"bytes"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pdiddy/paper-scout/internal/pipeline"
)

// ExpandCompleted carries the outcome of the expand action.
type ExpandCompleted struct {
	Expansion pipeline.Expansion
	Err       error
}

// SearchCompleted carries the outcome of the search-with-selected action.
type SearchCompleted struct {
	Result pipeline.Result
	Err    error
}

// StatusChanged carries a progress line from a running pipeline step.
type StatusChanged struct {
	Text string
}

// statusWriter turns pipeline progress lines into StatusChanged messages.
type statusWriter struct {
	mu   sync.Mutex
	send func(tea.Msg)
	buf  bytes.Buffer
}

func (w *statusWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Incomplete line: keep it for the next write.
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		if text := strings.TrimSpace(line); text != "" && w.send != nil {
			w.send(StatusChanged{Text: text})
		}
	}
	return len(p), nil
}
