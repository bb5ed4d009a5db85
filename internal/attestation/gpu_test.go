package attestation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aspect-build/attestd/internal/execx"
)

const sampleNvidiaSMI = `==============NVSMI LOG==============

Timestamp                                 : Thu Jan 29 12:00:00 2026
Driver Version                            : 550.90.07

Attached GPUs                             : 1
GPU 00000001:00:00.0
    Product Name                          : H100
    Product Brand                         : NVIDIA
    Confidential Computing Mode           : ON
`

func TestNvidiaSMIMissing(t *testing.T) {
	status := NvidiaSMI{Runner: execx.NewFake()}.InspectGPU(context.Background())
	if status.Detected || status.Verified {
		t.Fatalf("expected not detected, got %+v", status)
	}
	if status.Mode != GPUModeUnknown || status.Model != "" || status.Error != "" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestNvidiaSMIConfidentialComputing(t *testing.T) {
	fake := execx.NewFake().Set(execx.Result{Stdout: sampleNvidiaSMI}, "nvidia-smi", "-q")

	status := NvidiaSMI{Runner: fake}.InspectGPU(context.Background())
	want := GPUStatus{Detected: true, Verified: true, Mode: GPUModeOn, Model: "H100"}
	if status != want {
		t.Fatalf("status = %+v, want %+v", status, want)
	}
	if got := fake.TimeoutFor("nvidia-smi", "-q"); got != 10*time.Second {
		t.Fatalf("timeout = %v", got)
	}
}

func TestNvidiaSMIWithoutCC(t *testing.T) {
	fake := execx.NewFake().Set(execx.Result{Stdout: "GPU 0\n    Product Name : NVIDIA A100 80GB PCIe\n"}, "nvidia-smi", "-q")

	status := NvidiaSMI{Runner: fake}.InspectGPU(context.Background())
	if !status.Detected || status.Verified || status.Mode != GPUModeOff {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.Model != "NVIDIA A100 80GB PCIe" {
		t.Fatalf("model = %q", status.Model)
	}
}

func TestNvidiaSMINoProductName(t *testing.T) {
	fake := execx.NewFake().Set(execx.Result{Stdout: "Driver Version : 550\n"}, "nvidia-smi", "-q")

	status := NvidiaSMI{Runner: fake}.InspectGPU(context.Background())
	if !status.Detected || status.Model != "" || status.Error != "" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestNvidiaSMIFailureDegradesToNotDetected(t *testing.T) {
	for _, err := range []error{
		fmt.Errorf("nvidia-smi: %w", execx.ErrTimeout),
		errors.New("command nvidia-smi returned non-zero exit status 9"),
	} {
		fake := execx.NewFake().Set(execx.Result{Err: err}, "nvidia-smi", "-q")
		status := NvidiaSMI{Runner: fake}.InspectGPU(context.Background())
		if status.Detected || status.Verified || status.Mode != GPUModeUnknown {
			t.Fatalf("unexpected status %+v", status)
		}
		if status.Error != err.Error() {
			t.Fatalf("error = %q, want %q", status.Error, err.Error())
		}
	}
}

func TestNvidiaSMIProductNameWithoutColon(t *testing.T) {
	out := "Product Name H100\nConfidential Computing Mode : ON\n"
	fake := execx.NewFake().Set(execx.Result{Stdout: out}, "nvidia-smi", "-q")

	status := NvidiaSMI{Runner: fake}.InspectGPU(context.Background())
	if !status.Detected || !status.Verified || status.Model != "" || status.Error != "" {
		t.Fatalf("unexpected status %+v", status)
	}
}
