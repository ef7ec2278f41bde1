package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Gronis/wasmdev/internal/buildcfg"
	"github.com/Gronis/wasmdev/internal/registry"
)

type fakeToolchain struct{ calls int }

func (f *fakeToolchain) BuildWasm(ctx context.Context, cfg buildcfg.Config) error {
	f.calls++
	return nil
}

type fakeBindgen struct {
	wasm, js []byte
}

func (f *fakeBindgen) Generate(ctx context.Context, cfg buildcfg.Config) ([]byte, []byte, error) {
	return f.wasm, f.js, nil
}

func newTestPipeline(t *testing.T) (*Pipeline, *registry.Registry, []string) {
	t.Helper()
	reg := registry.New()
	var broadcasts []string
	cfg := buildcfg.Default(t.TempDir())
	tc := &fakeToolchain{}
	bg := &fakeBindgen{wasm: []byte("wasmbytes"), js: []byte("console.log(1)")}
	p := New(reg, func(msg string) { broadcasts = append(broadcasts, msg) }, tc, bg, cfg, nil)
	return p, reg, broadcasts
}

func TestNewInstallsBaseline(t *testing.T) {
	p, reg, _ := newTestPipeline(t)
	_ = p
	ep, ok := reg.Get("/")
	if !ok {
		t.Fatal("expected / to be registered")
	}
	if _, ok := ep.Action.(registry.InternalRedirect); !ok {
		t.Errorf("Action = %#v, want InternalRedirect", ep.Action)
	}
	if _, ok := reg.Get("/index.html"); !ok {
		t.Fatal("expected /index.html to be registered")
	}
}

func TestRebuildAppBroadcastsOnChange(t *testing.T) {
	reg := registry.New()
	var broadcasts []string
	cfg := buildcfg.Default(t.TempDir())
	tc := &fakeToolchain{}
	bg := &fakeBindgen{wasm: []byte("wasmbytes"), js: []byte("console.log(1)")}
	p := New(reg, func(msg string) { broadcasts = append(broadcasts, msg) }, tc, bg, cfg, nil)

	if err := p.RebuildApp(context.Background()); err != nil {
		t.Fatalf("RebuildApp: %v", err)
	}
	if tc.calls != 1 {
		t.Errorf("toolchain calls = %d, want 1", tc.calls)
	}
	found := false
	for _, b := range broadcasts {
		if b == "reload /index.wasm" {
			found = true
		}
	}
	if !found {
		t.Errorf("broadcasts = %v, want to contain reload /index.wasm", broadcasts)
	}
}

func TestRebuildAppIdempotentNoChangeNoBroadcast(t *testing.T) {
	reg := registry.New()
	var broadcasts []string
	cfg := buildcfg.Default(t.TempDir())
	tc := &fakeToolchain{}
	bg := &fakeBindgen{wasm: []byte("wasmbytes"), js: []byte("console.log(1)")}
	p := New(reg, func(msg string) { broadcasts = append(broadcasts, msg) }, tc, bg, cfg, nil)

	if err := p.RebuildApp(context.Background()); err != nil {
		t.Fatalf("RebuildApp: %v", err)
	}
	broadcasts = nil
	if err := p.RebuildApp(context.Background()); err != nil {
		t.Fatalf("RebuildApp (2nd): %v", err)
	}
	if len(broadcasts) != 0 {
		t.Errorf("broadcasts = %v, want none on unchanged rebuild", broadcasts)
	}
}

func TestServeStaticTreeRegistersLazyLoad(t *testing.T) {
	reg := registry.New()
	var broadcasts []string
	projDir := t.TempDir()
	cfg := buildcfg.Default(projDir)
	cfg.StaticRoot = "src"

	staticDir := filepath.Join(projDir, "src", "sub")
	if err := os.MkdirAll(staticDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(staticDir, "a.css"), []byte("body{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	tc := &fakeToolchain{}
	bg := &fakeBindgen{}
	p := New(reg, func(msg string) { broadcasts = append(broadcasts, msg) }, tc, bg, cfg, nil)

	if err := p.ServeStaticTree(); err != nil {
		t.Fatalf("ServeStaticTree: %v", err)
	}
	ep, ok := reg.Get("/sub/a.css")
	if !ok {
		t.Fatal("expected /sub/a.css to be registered")
	}
	if _, ok := ep.Action.(registry.LazyLoad); !ok {
		t.Errorf("Action = %#v, want LazyLoad", ep.Action)
	}
}

func TestOnFSEventBroadcastsForChangedFile(t *testing.T) {
	projDir := t.TempDir()
	cfg := buildcfg.Default(projDir)
	cfg.StaticRoot = "src"
	staticDir := filepath.Join(projDir, "src")
	if err := os.MkdirAll(staticDir, 0o755); err != nil {
		t.Fatal(err)
	}
	filePath := filepath.Join(staticDir, "a.css")
	if err := os.WriteFile(filePath, []byte("body{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := registry.New()
	var broadcasts []string
	p := New(reg, func(msg string) { broadcasts = append(broadcasts, msg) }, &fakeToolchain{}, &fakeBindgen{}, cfg, nil)

	p.OnFSEvent([]string{filePath})
	found := false
	for _, b := range broadcasts {
		if b == "reload /a.css" {
			found = true
		}
	}
	if !found {
		t.Errorf("broadcasts = %v, want to contain reload /a.css", broadcasts)
	}
}

func TestOnFSEventSkipsIndexHTML(t *testing.T) {
	projDir := t.TempDir()
	cfg := buildcfg.Default(projDir)
	cfg.StaticRoot = "src"
	staticDir := filepath.Join(projDir, "src")
	if err := os.MkdirAll(staticDir, 0o755); err != nil {
		t.Fatal(err)
	}
	filePath := filepath.Join(staticDir, "index.html")
	if err := os.WriteFile(filePath, []byte("<html></html>"), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := registry.New()
	var broadcasts []string
	p := New(reg, func(msg string) { broadcasts = append(broadcasts, msg) }, &fakeToolchain{}, &fakeBindgen{}, cfg, nil)
	before, _ := reg.Get("/index.html")

	p.OnFSEvent([]string{filePath})

	after, _ := reg.Get("/index.html")
	if string(after.Action.(registry.Content)) != string(before.Action.(registry.Content)) {
		t.Error("expected /index.html endpoint to be untouched by OnFSEvent")
	}
	for _, b := range broadcasts {
		if b == "reload /index.html" {
			t.Error("expected OnFSEvent to skip /index.html")
		}
	}
}
