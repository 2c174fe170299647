package isolation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"trueedits/internal/process"
	"trueedits/internal/services"
)

type fakeExecutor struct {
	cmd process.Command
	run func(process.Command) error
}

func (f *fakeExecutor) Exec(_ context.Context, cmd process.Command) (process.Result, error) {
	f.cmd = cmd
	if f.run != nil {
		if err := f.run(cmd); err != nil {
			return process.Result{}, err
		}
	}
	return process.Result{}, nil
}

func writeInput(t *testing.T, dir string) string {
	t.Helper()
	input := filepath.Join(dir, "clip_voice48k.wav")
	if err := os.WriteFile(input, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	return input
}

func TestIsolateFindsModelSuffixedOutput(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir)
	outDir := filepath.Join(dir, "isolated")
	exec := &fakeExecutor{run: func(cmd process.Command) error {
		return os.WriteFile(filepath.Join(outDir, "clip_voice48k_DeepFilterNet3.wav"), []byte("RIFFclean"), 0o644)
	}}
	svc := NewService("", exec, nil, WithPostFilter(true))

	out, err := svc.Isolate(context.Background(), input, outDir)
	if err != nil {
		t.Fatalf("Isolate: %v", err)
	}
	if filepath.Base(out) != "clip_voice48k_DeepFilterNet3.wav" {
		t.Fatalf("unexpected output %q", out)
	}
	if exec.cmd.Name != DefaultCommand {
		t.Fatalf("expected default command, got %q", exec.cmd.Name)
	}
	if !slices.Contains(exec.cmd.Args, "--pf") || !slices.Contains(exec.cmd.Args, outDir) {
		t.Fatalf("unexpected args %v", exec.cmd.Args)
	}
}

func TestIsolateMissingInput(t *testing.T) {
	svc := NewService("deepFilter", &fakeExecutor{}, nil)
	_, err := svc.Isolate(context.Background(), filepath.Join(t.TempDir(), "none.wav"), t.TempDir())
	if !errors.Is(err, services.ErrMissingInput) {
		t.Fatalf("expected missing input, got %v", err)
	}
}

func TestIsolateNoOutput(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir)
	svc := NewService("deepFilter", &fakeExecutor{}, nil)
	// The input itself sits in outDir and must not be mistaken for output.
	_, err := svc.Isolate(context.Background(), input, dir)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestIsolateToolFailure(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir)
	exec := &fakeExecutor{run: func(process.Command) error {
		return &process.ExitError{Command: "deepFilter", ExitCode: 2}
	}}
	svc := NewService("deepFilter", exec, nil)
	_, err := svc.Isolate(context.Background(), input, dir)
	var exitErr *process.ExitError
	if !errors.As(err, &exitErr) || !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected wrapped exit error, got %v", err)
	}
}
