// Package pipeline implements the asset build-and-serve pipeline —
// component F: invoking the WebAssembly toolchain, loading the resulting
// artifacts and static files into the registry, minifying JavaScript, and
// broadcasting reload messages.
package pipeline

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/js"

	"github.com/Gronis/wasmdev/internal/assets"
	"github.com/Gronis/wasmdev/internal/buildcfg"
	"github.com/Gronis/wasmdev/internal/registry"
)

// maxWalkDepth caps static-tree recursion as a safety net against
// symlink cycles — "unbounded-with-a-safety-cap" per the design notes.
const maxWalkDepth = 256

// Pipeline wires the registry, broadcaster, and external collaborators
// together. Every exported method is idempotent — safe to invoke
// repeatedly, per §4.F.
type Pipeline struct {
	Registry  *registry.Registry
	Broadcast func(string)
	Toolchain Toolchain
	Bindgen   Bindgen
	Config    buildcfg.Config
	Logger    *log.Logger

	minifier *minify.M
}

// New returns a Pipeline and installs the baseline `/ -> /index.html`
// redirect plus an inline `/index.html` using the embedded template, so
// the first request during a cold rebuild still succeeds (§4.F).
func New(reg *registry.Registry, broadcast func(string), tc Toolchain, bg Bindgen, cfg buildcfg.Config, logger *log.Logger) *Pipeline {
	m := minify.New()
	m.AddFunc("text/javascript", js.Minify)

	p := &Pipeline{
		Registry:  reg,
		Broadcast: broadcast,
		Toolchain: tc,
		Bindgen:   bg,
		Config:    cfg,
		Logger:    logger,
		minifier:  m,
	}
	reg.OnGet("/").InternalRedirect("/index.html").Build()
	reg.OnGet("/index.html").SetBody(assets.IndexHTML(cfg.IsRelease)).Build()
	return p
}

func (p *Pipeline) logf(format string, args ...any) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
	}
}

// RebuildApp invokes the toolchain and bindgen, minifies JS on release,
// and updates /index.wasm and /index.js. If either body actually changed,
// it broadcasts "reload /index.wasm" — a toolchain or bindgen failure
// leaves the previous artifacts installed and does not broadcast (§7).
func (p *Pipeline) RebuildApp(ctx context.Context) error {
	if err := p.Toolchain.BuildWasm(ctx, p.Config); err != nil {
		p.logf("rebuild: toolchain failed: %v", err)
		return err
	}
	wasm, js, err := p.Bindgen.Generate(ctx, p.Config)
	if err != nil {
		p.logf("rebuild: bindgen failed: %v", err)
		return err
	}
	if p.Config.IsRelease {
		minified, err := p.minifyJS(js)
		if err != nil {
			// Minifier failure in release mode is fatal per the open-question
			// decision: surface the error rather than falling back.
			p.logf("rebuild: minify failed: %v", err)
			return err
		}
		js = minified
	}

	wasmChanged := p.Registry.OnGet("/index.wasm").SetBody(wasm).Build()
	jsChanged := p.Registry.OnGet("/index.js").SetBody(js).Build()
	if wasmChanged || jsChanged {
		p.Broadcast("reload /index.wasm")
	}
	return nil
}

func (p *Pipeline) minifyJS(src []byte) ([]byte, error) {
	return p.minifier.Bytes("text/javascript", src)
}

// ServeStaticTree enumerates files recursively under Config.StaticRoot and
// registers each as LazyLoad, under its request path (prefix stripped,
// backslashes normalized). /index.html is excluded — it's handled by
// ServeIndexHTML.
func (p *Pipeline) ServeStaticTree() error {
	root := filepath.Join(p.Config.ProjectDir, p.Config.StaticRoot)
	return walkTree(root, maxWalkDepth, func(absPath string) error {
		reqPath := requestPathFor(root, absPath)
		if reqPath == "/index.html" {
			return nil
		}
		p.Registry.OnGet(reqPath).LazyLoad(absPath).Build()
		return nil
	})
}

// ServeIndexHTML reads the developer-supplied index.html if present, else
// falls back to the embedded template, appends the reload-client script,
// and installs it at /index.html. If changed, broadcasts "reload
// /index.html".
func (p *Pipeline) ServeIndexHTML() error {
	body := assets.IndexHTML(p.Config.IsRelease)
	if p.Config.HTMLTemplatePath != "" {
		if custom, err := os.ReadFile(p.Config.HTMLTemplatePath); err == nil {
			body = assets.InjectReloadScript(custom, p.Config.IsRelease)
		}
		// A missing or unreadable custom template is not an error — fall
		// back to the embedded one, much as OnFSEvent skips unreadable
		// files.
	}
	changed := p.Registry.OnGet("/index.html").SetBody(body).Build()
	if changed {
		p.Broadcast("reload /index.html")
	}
	return nil
}

// OnFSEvent registers each changed path as Content and broadcasts
// "reload <path>" for any that actually changed. /index.html is skipped —
// it has its own dedicated watcher. Unreadable files are skipped silently
// (§7: "File read failures during static-tree events: skip the file
// silently").
func (p *Pipeline) OnFSEvent(paths []string) {
	root := filepath.Join(p.Config.ProjectDir, p.Config.StaticRoot)
	for _, absPath := range paths {
		reqPath := requestPathFor(root, absPath)
		if reqPath == "/index.html" {
			continue
		}
		body, err := os.ReadFile(absPath)
		if err != nil {
			p.logf("fs event: skipping unreadable %s: %v", absPath, err)
			continue
		}
		changed := p.Registry.OnGet(reqPath).SetBody(body).Build()
		if changed {
			p.Broadcast("reload " + reqPath)
		}
	}
}

// requestPathFor maps an absolute file path under root to its request
// path: root prefix stripped, backslashes converted to forward slashes.
func requestPathFor(root, absPath string) string {
	rel, err := filepath.Rel(root, absPath)
	if err != nil {
		rel = absPath
	}
	rel = strings.ReplaceAll(rel, "\\", "/")
	return "/" + rel
}

// walkTree recursively visits every regular file under root, capped at
// maxDepth directory layers to guard against symlink cycles.
func walkTree(root string, maxDepth int, visit func(absPath string) error) error {
	return walkTreeDepth(root, maxDepth, visit)
}

func walkTreeDepth(dir string, depthRemaining int, visit func(absPath string) error) error {
	if depthRemaining <= 0 {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		full := filepath.Join(dir, e.Name())
		if e.IsDir() {
			if err := walkTreeDepth(full, depthRemaining-1, visit); err != nil {
				return err
			}
			continue
		}
		if err := visit(full); err != nil {
			return err
		}
	}
	return nil
}
