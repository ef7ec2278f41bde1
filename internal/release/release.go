// Package release implements the release-mode packager — component H: a
// one-shot writer of dist/<project>/ containing the three fixed artifacts
// plus a mirrored, minified static tree, with stale-file pruning against
// whatever a previous run left behind.
package release

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/js"

	"github.com/Gronis/wasmdev/internal/assets"
	"github.com/Gronis/wasmdev/internal/buildcfg"
)

// maxWalkDepth mirrors pipeline's safety cap on directory recursion.
const maxWalkDepth = 256

// fixedArtifacts are the three files the packager always writes at the
// dist root; stale-pruning never removes these by name.
var fixedArtifacts = map[string]bool{
	"index.wasm": true,
	"index.js":   true,
	"index.html": true,
}

// Toolchain and Bindgen mirror pipeline's collaborator interfaces; release
// packaging needs the same external build step, just invoked once instead
// of on every file-system event.
type Toolchain interface {
	BuildWasm(ctx context.Context, cfg buildcfg.Config) error
}

type Bindgen interface {
	Generate(ctx context.Context, cfg buildcfg.Config) (wasm []byte, js []byte, err error)
}

// projectName derives the dist subdirectory name from the project
// directory's base name, standing in for Cargo's CARGO_PKG_NAME.
func projectName(cfg buildcfg.Config) string {
	return filepath.Base(cfg.ProjectDir)
}

// Run builds cfg.ProjectDir in release mode and writes
// dist/<project>/ — ported from wasmdev_macro::config::build_all_web_assets.
func Run(ctx context.Context, cfg buildcfg.Config, tc Toolchain, bg Bindgen) error {
	cfg.IsRelease = true

	if err := tc.BuildWasm(ctx, cfg); err != nil {
		return fmt.Errorf("release: toolchain build failed: %w", err)
	}
	wasm, jsCode, err := bg.Generate(ctx, cfg)
	if err != nil {
		return fmt.Errorf("release: bindgen failed: %w", err)
	}

	m := minify.New()
	m.AddFunc("text/javascript", js.Minify)

	minifiedJS, err := m.Bytes("text/javascript", jsCode)
	if err != nil {
		// Minifier failure in release mode is fatal, per the open-question
		// decision — surface the error rather than writing unminified JS.
		return fmt.Errorf("release: minify index.js failed: %w", err)
	}

	htmlCode := assets.IndexHTML(true)
	if cfg.HTMLTemplatePath != "" {
		if custom, err := os.ReadFile(cfg.HTMLTemplatePath); err == nil {
			htmlCode = assets.InjectReloadScript(custom, true)
		}
	}

	distPath := filepath.Join(cfg.ProjectDir, cfg.DistDir, projectName(cfg))
	if err := os.MkdirAll(distPath, 0o755); err != nil {
		return fmt.Errorf("release: creating dist dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(distPath, "index.wasm"), wasm, 0o644); err != nil {
		return fmt.Errorf("release: writing index.wasm: %w", err)
	}
	if err := os.WriteFile(filepath.Join(distPath, "index.js"), minifiedJS, 0o644); err != nil {
		return fmt.Errorf("release: writing index.js: %w", err)
	}
	if err := os.WriteFile(filepath.Join(distPath, "index.html"), htmlCode, 0o644); err != nil {
		return fmt.Errorf("release: writing index.html: %w", err)
	}

	staticRoot := filepath.Join(cfg.ProjectDir, cfg.StaticRoot)
	var currentRelPaths []string
	err = walkTree(staticRoot, maxWalkDepth, func(absPath string) error {
		rel := relSlash(staticRoot, absPath)
		if rel == "/index.html" || strings.HasSuffix(rel, ".go") {
			return nil
		}
		currentRelPaths = append(currentRelPaths, rel)

		contents, err := os.ReadFile(absPath)
		if err != nil {
			return err
		}
		if strings.HasSuffix(rel, ".js") {
			minified, err := m.Bytes("text/javascript", contents)
			if err != nil {
				return fmt.Errorf("minify %s: %w", rel, err)
			}
			contents = minified
		}
		destPath := filepath.Join(distPath, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return err
		}
		return os.WriteFile(destPath, contents, 0o644)
	})
	if err != nil {
		return fmt.Errorf("release: writing static tree: %w", err)
	}

	if err := pruneStale(distPath, currentRelPaths); err != nil {
		return fmt.Errorf("release: pruning stale files: %w", err)
	}
	return removeEmptyDirs(distPath)
}

// pruneStale deletes every file under distPath whose relative path is
// neither a fixed artifact nor present in currentRelPaths.
func pruneStale(distPath string, currentRelPaths []string) error {
	keep := make(map[string]bool, len(currentRelPaths))
	for _, p := range currentRelPaths {
		keep[p] = true
	}

	var toRemove []string
	err := walkTree(distPath, maxWalkDepth, func(absPath string) error {
		rel := relSlash(distPath, absPath)
		name := strings.TrimPrefix(rel, "/")
		if fixedArtifacts[name] {
			return nil
		}
		if keep[rel] {
			return nil
		}
		toRemove = append(toRemove, absPath)
		return nil
	})
	if err != nil {
		return err
	}
	for _, p := range toRemove {
		if err := os.Remove(p); err != nil {
			return err
		}
	}
	return nil
}

// removeEmptyDirs removes now-empty directories under root, bottom-up,
// without removing root itself.
func removeEmptyDirs(root string) error {
	var dirs []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	// Deepest first, so a directory is considered empty after its own
	// now-empty children have been removed.
	for i := len(dirs) - 1; i >= 0; i-- {
		entries, err := os.ReadDir(dirs[i])
		if err != nil {
			continue
		}
		if len(entries) == 0 {
			os.Remove(dirs[i])
		}
	}
	return nil
}

func relSlash(root, absPath string) string {
	rel, err := filepath.Rel(root, absPath)
	if err != nil {
		rel = absPath
	}
	return "/" + strings.ReplaceAll(rel, "\\", "/")
}

func walkTree(root string, maxDepth int, visit func(absPath string) error) error {
	if _, err := os.Stat(root); err != nil {
		return nil
	}
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
