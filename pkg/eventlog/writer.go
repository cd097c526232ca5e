// Package eventlog persists realtime gateway events as JSON files, one file
// per event, under baseDir/<event-type>/. Used for offline inspection of
// presence changes and message fan-outs; disabled when no directory is set.
package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dimasfh/sociagram/pkg/logger"
)

var invalidSegment = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

type Writer struct {
	baseDir string
	log     logger.Log
}

func NewWriter(baseDir string, log logger.Log) *Writer {
	base := strings.TrimSpace(baseDir)
	if base == "" {
		return nil
	}
	return &Writer{baseDir: filepath.Clean(base), log: log}
}

func (w *Writer) Enabled() bool {
	return w != nil && w.baseDir != ""
}

// Write stores the event under baseDir/<eventType>/<timestamp>-<uuid>.json.
// A nil Writer is a no-op, so callers never need to guard.
func (w *Writer) Write(eventType string, payload any) {
	if !w.Enabled() {
		return
	}

	dir := filepath.Join(w.baseDir, sanitizeSegment(eventType))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		w.log.Errorf("eventlog mkdir %s: %v", dir, err)
		return
	}

	ts := time.Now().UTC()
	fileName := fmt.Sprintf("%s-%s.json", ts.Format("20060102T150405Z"), uuid.NewString())
	path := filepath.Join(dir, fileName)

	record := map[string]any{
		"event_type":  eventType,
		"received_at": ts.Format(time.RFC3339Nano),
		"payload":     payload,
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		record["payload"] = fmt.Sprintf("%+v", payload)
		record["marshal_error"] = err.Error()
		data, err = json.MarshalIndent(record, "", "  ")
		if err != nil {
			w.log.Errorf("eventlog marshal fallback: %v", err)
			return
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		w.log.Errorf("eventlog write %s: %v", path, err)
	}
}

func sanitizeSegment(raw string) string {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "unknown"
	}
	sanitized := invalidSegment.ReplaceAllString(candidate, "_")
	sanitized = strings.Trim(sanitized, "._-")
	if sanitized == "" {
		return "unknown"
	}
	return sanitized
}
