package pipeline

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/Gronis/wasmdev/internal/buildcfg"
)

// reentryGuardVar is set to "1" by the pipeline before it shells out to
// the toolchain, so a nested invocation from within the build can detect
// it's already running under wasmdev — the Go equivalent of the original
// CARGO_WASMDEV=1 reentry guard.
const reentryGuardVar = "WASMDEV_CHILD_BUILD"

// Toolchain compiles the developer's program to WebAssembly. It's an
// external collaborator per spec — out of scope to implement, but this
// rework supplies a default that shells out to `go build` the way the
// original shelled out to `cargo build` via xshell.
type Toolchain interface {
	// BuildWasm compiles cfg.SourceRoot to cfg.WasmIn, producing an
	// intermediate .wasm file that Bindgen then processes.
	BuildWasm(ctx context.Context, cfg buildcfg.Config) error
}

// Bindgen turns the intermediate .wasm produced by Toolchain into the
// final (wasmOut, jsOut) pair the browser loads. Also an external
// collaborator, standing in for wasm-bindgen.
type Bindgen interface {
	Generate(ctx context.Context, cfg buildcfg.Config) (wasm []byte, js []byte, err error)
}

// ExecToolchain is the default Toolchain: `go build` cross-compiled to
// js/wasm, matching `cargo build --target wasm32-unknown-unknown` with
// `--release` toggled by mode.
type ExecToolchain struct{}

func (ExecToolchain) BuildWasm(ctx context.Context, cfg buildcfg.Config) error {
	args := []string{"build", "-o", cfg.WasmIn}
	if cfg.IsRelease {
		args = append(args, "-ldflags=-s -w")
	}
	args = append(args, filepath.Join(cfg.ProjectDir, cfg.SourceRoot))

	cmd := exec.CommandContext(ctx, "go", args...)
	cmd.Dir = cfg.ProjectDir
	cmd.Env = append(os.Environ(),
		"GOOS=js", "GOARCH=wasm",
		reentryGuardVar+"=1",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("pipeline: toolchain build failed: %w: %s", err, out)
	}
	return nil
}

// ExecBindgen is the default Bindgen: it expects the binding generator to
// already be on PATH as `wasmdev-bindgen` (a stand-in for wasm-bindgen),
// invoked with web-target flags — debug/demangle toggled by mode,
// name/producers sections stripped on release.
type ExecBindgen struct {
	// BinaryName overrides the default "wasmdev-bindgen" lookup, mainly for
	// tests.
	BinaryName string
}

func (b ExecBindgen) Generate(ctx context.Context, cfg buildcfg.Config) ([]byte, []byte, error) {
	bin := b.BinaryName
	if bin == "" {
		bin = "wasmdev-bindgen"
	}
	args := []string{"--target", "web", "--out-dir", cfg.TargetDir, cfg.WasmIn}
	if !cfg.IsRelease {
		args = append(args, "--debug", "--keep-debug")
	} else {
		args = append(args, "--remove-name-section", "--remove-producers-section")
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = cfg.ProjectDir
	cmd.Env = append(os.Environ(), reentryGuardVar+"=1")
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, nil, fmt.Errorf("pipeline: bindgen failed: %w: %s", err, out)
	}

	wasm, err := os.ReadFile(filepath.Join(cfg.ProjectDir, cfg.TargetDir, cfg.WasmOut))
	if err != nil {
		return nil, nil, fmt.Errorf("pipeline: reading generated wasm: %w", err)
	}
	js, err := os.ReadFile(filepath.Join(cfg.ProjectDir, cfg.TargetDir, cfg.JSOut))
	if err != nil {
		return nil, nil, fmt.Errorf("pipeline: reading generated js: %w", err)
	}
	return wasm, js, nil
}
