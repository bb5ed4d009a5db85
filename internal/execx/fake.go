package execx

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Result is a scripted outcome for Fake.
type Result struct {
	Stdout string
	Err    error
}

// Fake is a Runner that answers from a script keyed by command line.
// Commands without a script entry fail with ErrNotFound, which mirrors a
// host where the tool is not installed.
type Fake struct {
	mu      sync.Mutex
	script  map[string]Result
	calls   []string
	timeout map[string]time.Duration
}

func NewFake() *Fake {
	return &Fake{
		script:  map[string]Result{},
		timeout: map[string]time.Duration{},
	}
}

// Set scripts the result for name+args.
func (f *Fake) Set(r Result, name string, args ...string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script[CommandLine(name, args...)] = r
	return f
}

func (f *Fake) Run(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	line := CommandLine(name, args...)

	f.mu.Lock()
	f.calls = append(f.calls, line)
	f.timeout[line] = timeout
	r, ok := f.script[line]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	if !ok {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return r.Stdout, r.Err
}

// Calls returns the command lines run so far, in call order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// TimeoutFor returns the timeout the last call of the command line was given.
func (f *Fake) TimeoutFor(name string, args ...string) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timeout[CommandLine(name, args...)]
}
