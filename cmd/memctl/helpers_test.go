package main

import (
	"bytes"
	"os"
	"testing"
)

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	done := make(chan struct{})
	var buf bytes.Buffer
	go func() {
		_, _ = buf.ReadFrom(r)
		close(done)
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout
	<-done
	return buf.String(), fnErr
}

// execRoot runs the root command with args and fresh global flags.
func execRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	verbose, quiet, jsonOut, logLevel, langTag = false, false, false, "", "en"
	runCapacity, runOps, runFrameCount, runSeed = 64<<10, 256, 8, 1
	defragCapacity, defragOps, defragSteps, defragSeed = 64<<10, 2000, 64, 1

	rootCmd.SetArgs(args)
	return captureOutput(t, rootCmd.Execute)
}
