package image

import (
	"context"
	"sync"
)

// fakeRunner records every subprocess invocation made through it, safe for
// concurrent use by the errgroup-based fan-outs under test.
type fakeRunner struct {
	mu       sync.Mutex
	calls    [][]string
	failName string
	err      error
	out      []byte
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.failName != "" {
		for _, a := range args {
			if a == f.failName {
				return nil, f.err
			}
		}
	}
	return f.out, f.err
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
