package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"
)

// captureStdout redirects os.Stdout through a pipe while f runs. Not safe
// for parallel tests.
func captureStdout(t *testing.T, f func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w

	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		io.Copy(&buf, r) //nolint:errcheck
		close(done)
	}()

	f()

	w.Close()
	<-done
	os.Stdout = orig
	r.Close()
	return buf.String()
}

func TestFormatJSON(t *testing.T) {
	type req struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}

	got := captureStdout(t, func() {
		formatJSON(req{ID: "req-42", Status: "pending"})
	})

	var out req
	if err := json.Unmarshal([]byte(got), &out); err != nil {
		t.Fatalf("output is not valid JSON: %v\noutput: %s", err, got)
	}
	if out.ID != "req-42" || out.Status != "pending" {
		t.Errorf("roundtrip mismatch: %+v", out)
	}
	if !strings.Contains(got, "\n  ") {
		t.Errorf("expected indented JSON, got: %s", got)
	}
}

func TestFormatTable(t *testing.T) {
	tests := []struct {
		name      string
		headers   []string
		rows      [][]string
		wantLines int
	}{
		{
			name:      "rows",
			headers:   []string{"ID", "AGENT", "STATUS"},
			rows:      [][]string{{"req-1", "billing-agent", "pending"}, {"r", "ops", "approved"}},
			wantLines: 4,
		},
		{
			name:      "no rows still prints header and separator",
			headers:   []string{"ID", "STATUS"},
			rows:      nil,
			wantLines: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := captureStdout(t, func() { formatTable(tt.headers, tt.rows) })
			lines := strings.Split(strings.TrimRight(got, "\n"), "\n")

			if len(lines) != tt.wantLines {
				t.Fatalf("got %d lines, want %d:\n%s", len(lines), tt.wantLines, got)
			}
			for _, h := range tt.headers {
				if !strings.Contains(lines[0], h) {
					t.Errorf("header line missing %q: %s", h, lines[0])
				}
			}
			for _, ch := range strings.TrimSpace(lines[1]) {
				if ch != '-' && ch != ' ' {
					t.Fatalf("separator has unexpected char %q: %s", ch, lines[1])
				}
			}
			for i, row := range tt.rows {
				for _, cell := range row {
					if !strings.Contains(lines[2+i], cell) {
						t.Errorf("row %d missing %q: %s", i, cell, lines[2+i])
					}
				}
			}
		})
	}
}

func TestFormatTableAlignsColumns(t *testing.T) {
	got := captureStdout(t, func() {
		formatTable([]string{"ID", "STATUS"}, [][]string{
			{"short", "pending"},
			{"a-much-longer-id", "approved"},
		})
	})
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")

	// The STATUS column must start at the same offset on every line.
	offset := strings.Index(lines[0], "STATUS")
	if offset < 0 {
		t.Fatalf("header missing STATUS: %s", lines[0])
	}
	if idx := strings.Index(lines[2], "pending"); idx != offset {
		t.Errorf("row 0 status at %d, want %d:\n%s", idx, offset, got)
	}
	if idx := strings.Index(lines[3], "approved"); idx != offset {
		t.Errorf("row 1 status at %d, want %d:\n%s", idx, offset, got)
	}
}

func TestOutput(t *testing.T) {
	tests := []struct {
		name   string
		format string
		want   string
		asJSON bool
	}{
		{"json format", "json", `"val"`, true},
		{"quiet prints id only", "quiet", "quiet-id-1\n", false},
		{"table falls back to json", "table", `"val"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origFmt := flagFmt
			t.Cleanup(func() { flagFmt = origFmt })
			flagFmt = tt.format

			got := captureStdout(t, func() {
				output(map[string]string{"key": "val"}, "quiet-id-1")
			})

			if tt.asJSON {
				var out map[string]string
				if err := json.Unmarshal([]byte(got), &out); err != nil {
					t.Fatalf("expected JSON output: %v\noutput: %s", err, got)
				}
				if out["key"] != "val" {
					t.Errorf("got %q, want val", out["key"])
				}
				return
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVersionString(t *testing.T) {
	origCommit, origDate := commit, buildDate
	t.Cleanup(func() { commit, buildDate = origCommit, origDate })

	commit, buildDate = "", ""
	if s := versionString(); !strings.HasSuffix(s, "-dev") || !strings.Contains(s, version) {
		t.Errorf("dev build string wrong: %q", s)
	}

	commit, buildDate = "abc1234", "2026-01-01"
	s := versionString()
	if !strings.Contains(s, "abc1234") || !strings.Contains(s, "2026-01-01") {
		t.Errorf("release build string missing metadata: %q", s)
	}
	if strings.HasSuffix(s, "-dev") {
		t.Errorf("release build should not be -dev: %q", s)
	}
}
