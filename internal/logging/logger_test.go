package logging_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vcfmerge/internal/logging"
	"vcfmerge/internal/services"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewConsoleWritesAttrs(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("merge finished", logging.Int("cards", 12), logging.String("output", "contacts_final.vcf"))

	content := readLog(t, logPath)
	if !strings.Contains(content, "INFO merge finished") {
		t.Fatalf("expected level and message in output, got %q", content)
	}
	if !strings.Contains(content, "cards=12") || !strings.Contains(content, "output=contacts_final.vcf") {
		t.Fatalf("expected attrs in output, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	if content := readLog(t, logPath); strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "debug",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	if content := readLog(t, logPath); !strings.Contains(content, ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleComponentBecomesPrefix(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "component.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "ingest").Info("file parsed")

	content := readLog(t, logPath)
	if !strings.Contains(content, "ingest: file parsed") {
		t.Fatalf("expected component prefix, got %q", content)
	}
	if strings.Contains(content, "component=") {
		t.Fatalf("expected component attr to be folded into prefix, got %q", content)
	}
}

func TestNewJSONLoggerShapesRecord(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "out.json")

	logger, err := logging.New(logging.Options{
		Format:           "json",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("json message", logging.String("k", "v"))

	var record map[string]any
	if err := json.Unmarshal([]byte(readLog(t, logPath)), &record); err != nil {
		t.Fatalf("unmarshal log record: %v", err)
	}
	if record["level"] != "info" {
		t.Fatalf("expected lowercase level, got %v", record["level"])
	}
	if record["msg"] != "json message" {
		t.Fatalf("unexpected msg: %v", record["msg"])
	}
	if record["k"] != "v" {
		t.Fatalf("unexpected attr: %v", record["k"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatal("expected ts key in json record")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "level.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "invalid",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Debug("hidden")
	logger.Info("visible")

	content := readLog(t, logPath)
	if strings.Contains(content, "hidden") {
		t.Fatalf("expected debug record suppressed, got %q", content)
	}
	if !strings.Contains(content, "visible") {
		t.Fatalf("expected info record, got %q", content)
	}
}

func TestRunLogPath(t *testing.T) {
	start := time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)
	got := logging.RunLogPath("/var/log/vcfmerge", start)
	want := filepath.Join("/var/log/vcfmerge", "vcfmerge-20240131T120000Z.log")
	if got != want {
		t.Fatalf("unexpected run log path: got %q want %q", got, want)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "context.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-42")
	ctx = services.WithPhase(ctx, "merge")
	ctx = services.WithIdentity(ctx, "doe john")

	logging.WithContext(ctx, logger).Info("contextual log")

	content := readLog(t, logPath)
	if !strings.Contains(content, "run_id=run-42") {
		t.Fatalf("expected run_id field, got %q", content)
	}
	if !strings.Contains(content, "phase=merge") {
		t.Fatalf("expected phase field, got %q", content)
	}
	if !strings.Contains(content, `identity="doe john"`) {
		t.Fatalf("expected quoted identity field, got %q", content)
	}
}

func TestWithLevelOverrideRaisesAndLowersFloor(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "override.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "debug",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	quiet := logging.WithLevelOverride(logger, slog.LevelWarn)
	quiet.Info("suppressed info")
	quiet.Warn("kept warning")

	verbose := logging.WithLevelOverride(quiet, slog.LevelDebug)
	verbose.Debug("traced detail")

	content := readLog(t, logPath)
	if strings.Contains(content, "suppressed info") {
		t.Fatalf("expected info suppressed under warn override, got %q", content)
	}
	if !strings.Contains(content, "kept warning") {
		t.Fatalf("expected warning to pass override, got %q", content)
	}
	if !strings.Contains(content, "traced detail") {
		t.Fatalf("expected debug record after override reset, got %q", content)
	}
}
