package logger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveLogFilePathDefaultDir(t *testing.T) {
	tmpDir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("get wd failed: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}

	got, err := resolveLogFilePath(Options{})
	if err != nil {
		t.Fatalf("resolve default log path failed: %v", err)
	}
	if filepath.Base(got) != defaultLogFilename {
		t.Fatalf("unexpected log filename: %s", filepath.Base(got))
	}
	if filepath.Base(filepath.Dir(got)) != defaultLogDirName {
		t.Fatalf("unexpected log dir: %s", filepath.Dir(got))
	}
	if _, err := os.Stat(got); err != nil {
		t.Fatalf("expected log file to be created: %v", err)
	}
}

func TestResolveLogFilePathCustom(t *testing.T) {
	tmpDir := t.TempDir()
	got, err := resolveLogFilePath(Options{Dir: tmpDir, Filename: "cart.log"})
	if err != nil {
		t.Fatalf("resolve custom log path failed: %v", err)
	}
	if got != filepath.Join(tmpDir, "cart.log") {
		t.Fatalf("unexpected log path: %s", got)
	}
}

func TestNewDebugModeNeverNil(t *testing.T) {
	log := New("debug", Options{})
	if log == nil {
		t.Fatal("expected non-nil logger in debug mode")
	}
	log.Sugar().Debugw("logger_test_debug", "key", "value")
}
