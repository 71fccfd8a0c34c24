package cli

import (
	"bytes"
	"testing"
)

// resetFlags restores package-level flag values between command runs.
func resetFlags() {
	projectPath, logLevel, logFormat = "", "", ""
	initProvider, initModel = "ollama", ""
	analyzeTone, analyzeSimplified, analyzeGrouped, analyzePost, analyzeJSON = "", false, false, false, false
	synthesizeJSON = false
	serveAddr, serveWatch = "", false
	watchOnce = false
	mcpTransport, mcpAddr = "stdio", ":8090"
}

// runCLI executes the root command with args and returns what it printed.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	var buf bytes.Buffer
	RootCmd.SetOut(&buf)
	RootCmd.SetErr(&buf)
	RootCmd.SetArgs(args)
	defer func() {
		RootCmd.SetOut(nil)
		RootCmd.SetErr(nil)
		RootCmd.SetArgs(nil)
	}()

	err := RootCmd.Execute()
	return buf.String(), err
}

// newWorkspace initializes a mock-backed workspace in a temp dir.
func newWorkspace(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("CRITIQUE_AI_PROVIDER", "mock")
	t.Setenv("CRITIQUE_LOG_LEVEL", "error")
	dir := t.TempDir()
	initArgs := append([]string{"init", "-C", dir, "--provider", "mock"}, args...)
	if _, err := runCLI(t, initArgs...); err != nil {
		t.Fatalf("init: %v", err)
	}
	return dir
}
