package respkv_test

import (
	"bytes"
	"errors"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/raniellyferreira/respkv"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want respkv.Level
	}{
		{"debug", respkv.LevelDebug},
		{"INFO", respkv.LevelInfo},
		{"", respkv.LevelInfo},
		{"warn", respkv.LevelError},
		{"error", respkv.LevelError},
	}
	for _, tt := range tests {
		got, err := respkv.ParseLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseLevel(%q) = %s, %v, want %s", tt.in, got, err, tt.want)
		}
	}

	if _, err := respkv.ParseLevel("verbose"); !errors.Is(err, respkv.ErrInvalidConfig) {
		t.Errorf("ParseLevel(verbose) error = %v, want ErrInvalidConfig", err)
	}
}

func TestDefaultLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	flags := log.Flags()
	log.SetFlags(0)
	defer func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	}()

	logger := respkv.NewLogger(respkv.LevelInfo)
	logger.Debug("hidden")
	logger.Info("Client connected", respkv.Field{Key: "id", Value: 7}, respkv.Field{Key: "addr", Value: "127.0.0.1:5000"})
	logger.Error("Write failed", respkv.Field{Key: "error", Value: errors.New("broken pipe")})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"INFO: Client connected id=7 addr=127.0.0.1:5000",
		"ERROR: Write failed error=broken pipe",
	}
	if len(lines) != len(want) {
		t.Fatalf("logged %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}
