package testutil

import (
	"runtime"
	"strings"
	"testing"
	"time"
)

// WaitForGoroutineExit polls the full goroutine dump until no goroutine
// has fn in its stack, failing the test if one is still running after two
// seconds. Used to assert stream producers shut down on cancellation.
func WaitForGoroutineExit(t *testing.T, fn string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !goroutineRunning(fn) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("goroutine still running in %s after cancellation", fn)
}

func goroutineRunning(fn string) bool {
	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, true)
	return strings.Contains(string(buf[:n]), fn)
}
