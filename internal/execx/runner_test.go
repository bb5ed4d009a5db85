package execx

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"
	"testing"
	"time"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestOSRunnerCapturesStdout(t *testing.T) {
	requireShell(t)

	out, err := OSRunner{}.Run(context.Background(), 5*time.Second, "sh", "-c", "echo hello; echo noise >&2")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "hello\n" {
		t.Fatalf("stdout = %q, want %q", out, "hello\n")
	}
}

func TestOSRunnerNotFound(t *testing.T) {
	_, err := OSRunner{}.Run(context.Background(), time.Second, "attestd-no-such-tool-xyz")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_, err = OSRunner{}.Run(context.Background(), time.Second, "/nonexistent/path/tool")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for absolute path, got %v", err)
	}
}

func TestOSRunnerTimeoutKillsProcess(t *testing.T) {
	requireShell(t)

	start := time.Now()
	_, err := OSRunner{}.Run(context.Background(), 100*time.Millisecond, "sh", "-c", "sleep 30")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("runner blocked for %v after timeout", elapsed)
	}
}

func TestOSRunnerNonZeroExit(t *testing.T) {
	requireShell(t)

	_, err := OSRunner{}.Run(context.Background(), 5*time.Second, "sh", "-c", "exit 3")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrTimeout) {
		t.Fatalf("unexpected classification: %v", err)
	}
	if !strings.Contains(err.Error(), "exit status 3") {
		t.Fatalf("error should carry exit status: %v", err)
	}
}

func TestOSRunnerParentCancel(t *testing.T) {
	requireShell(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	_, err := OSRunner{}.Run(ctx, 10*time.Second, "sh", "-c", "sleep 30")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFakeScript(t *testing.T) {
	f := NewFake().Set(Result{Stdout: "ok"}, "dmesg")

	out, err := f.Run(context.Background(), 5*time.Second, "dmesg")
	if err != nil || out != "ok" {
		t.Fatalf("dmesg = %q, %v", out, err)
	}
	if _, err := f.Run(context.Background(), time.Second, "nvidia-smi", "-q"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unscripted command should be not found, got %v", err)
	}
	if got := f.Calls(); len(got) != 2 || got[1] != "nvidia-smi -q" {
		t.Fatalf("calls = %v", got)
	}
	if got := f.TimeoutFor("dmesg"); got != 5*time.Second {
		t.Fatalf("timeout = %v", got)
	}
}
