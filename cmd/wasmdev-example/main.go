//go:build !(js && wasm)

// Command wasmdev-example is a sample host-side entry point for a
// WebAssembly client application: it builds the app, serves it plus the
// static tree, watches for changes in watch mode, or produces a release
// distribution when run with -release.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"

	"github.com/Gronis/wasmdev/internal/buildcfg"
	"github.com/Gronis/wasmdev/internal/conn"
	"github.com/Gronis/wasmdev/internal/pipeline"
	"github.com/Gronis/wasmdev/internal/release"
	"github.com/Gronis/wasmdev/internal/registry"
	"github.com/Gronis/wasmdev/internal/watch"
)

func main() {
	addr := flag.String("addr", "127.0.0.1", "bind address (IP literal)")
	port := flag.Uint("port", 8080, "bind port")
	path := flag.String("path", "src", "root of static assets, relative to the project directory")
	watchFlag := flag.Bool("watch", true, "enable watchers (forced off with -release)")
	releaseFlag := flag.Bool("release", false, "produce a release distribution instead of running the server")
	flag.Parse()

	projectDir, err := os.Getwd()
	if err != nil {
		log.Fatalf("wasmdev: could not resolve project directory: %v", err)
	}

	cfg := buildcfg.Default(projectDir)
	cfg.Addr = *addr
	cfg.Port = uint16(*port)
	cfg.StaticRoot = *path
	cfg.SourceRoot = *path
	cfg.Watch = *watchFlag && !*releaseFlag
	cfg.IsRelease = *releaseFlag
	cfg.WasmIn = filepath.Join(cfg.TargetDir, "intermediate.wasm")

	if err := cfg.Validate(); err != nil {
		log.Fatalf("wasmdev: %v", err)
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)

	tc := pipeline.ExecToolchain{}
	bg := pipeline.ExecBindgen{}

	if cfg.IsRelease {
		if err := release.Run(context.Background(), cfg, tc, bg); err != nil {
			log.Fatalf("wasmdev: release build failed: %v", err)
		}
		return
	}

	runServer(cfg, tc, bg, logger)
}

func runServer(cfg buildcfg.Config, tc pipeline.Toolchain, bg pipeline.Bindgen, logger *log.Logger) {
	reg := registry.New()
	server := conn.NewServer(reg, logger)

	p := pipeline.New(reg, server.Broadcast, tc, bg, cfg, logger)

	if err := p.ServeStaticTree(); err != nil {
		log.Fatalf("wasmdev: could not read static tree: %v", err)
	}
	if err := p.ServeIndexHTML(); err != nil {
		logger.Printf("wasmdev: index.html not installed: %v", err)
	}
	if err := p.RebuildApp(context.Background()); err != nil {
		logger.Printf("wasmdev: initial build failed: %v", err)
	}

	if cfg.Watch {
		startWatchers(cfg, p, logger)
	}

	ln, err := net.Listen("tcp", cfg.BindAddr())
	if err != nil {
		log.Fatalf("wasmdev: unable to bind %s: %v", cfg.BindAddr(), err)
	}
	printBanner(cfg.URL())

	if err := server.Serve(ln); err != nil {
		log.Fatalf("wasmdev: accept loop terminated: %v", err)
	}
}

// startWatchers wires the three watchers §4.G names: static tree ->
// OnFSEvent, source tree -> RebuildApp, index.html -> ServeIndexHTML. The
// last is allowed to fail silently.
func startWatchers(cfg buildcfg.Config, p *pipeline.Pipeline, logger *log.Logger) {
	staticRoot := filepath.Join(cfg.ProjectDir, cfg.StaticRoot)
	if _, err := watch.Watch(staticRoot, p.OnFSEvent); err != nil {
		log.Fatalf("wasmdev: could not watch static tree %s: %v", staticRoot, err)
	}

	sourceRoot := filepath.Join(cfg.ProjectDir, cfg.SourceRoot)
	if _, err := watch.Watch(sourceRoot, func(paths []string) {
		if err := p.RebuildApp(context.Background()); err != nil {
			logger.Printf("wasmdev: rebuild failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("wasmdev: could not watch source tree %s: %v", sourceRoot, err)
	}

	if cfg.HTMLTemplatePath != "" {
		htmlDir := filepath.Dir(cfg.HTMLTemplatePath)
		watch.Watch(htmlDir, func(paths []string) {
			p.ServeIndexHTML()
		})
	}
}

func printBanner(url string) {
	width := len(url) + 2
	top := "┏" + repeat("━", width) + "┓"
	bottom := "┗" + repeat("━", width) + "┛"
	fmt.Printf("%s\n", top)
	fmt.Printf("┃ %s ┃ <- Click to open your app!\n", url)
	fmt.Printf("%s\n", bottom)
}

func repeat(s string, n int) string {
	out := make([]byte, 0, n*len(s))
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
