//go:build js && wasm

// This file is the browser-side counterpart of main.go: the same command
// compiled with GOOS=js GOARCH=wasm runs the client application instead
// of the host dev server.
package main

func main() {
	runApp()
}

// runApp is where the developer's actual WebAssembly client code lives.
// This example has nothing to render; it exists to exercise the
// host/wasm split described in the equivalence table.
func runApp() {}
