package main

import (
	"os"
	"testing"
)

func TestRun_Help(t *testing.T) {
	old := os.Args
	t.Cleanup(func() { os.Args = old })

	os.Args = []string{"critique", "--help"}
	if code := run(); code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	old := os.Args
	t.Cleanup(func() { os.Args = old })

	os.Args = []string{"critique", "invalid-cmd-999"}
	if code := run(); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}

func TestRun_NotInitialized(t *testing.T) {
	old := os.Args
	t.Cleanup(func() { os.Args = old })

	os.Args = []string{"critique", "analyze", "-C", t.TempDir()}
	if code := run(); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}
