package registry

// HashBytes computes a cheap rolling hash over data using a
// Fibonacci-weighted accumulator, ported verbatim from the original
// wasmdev_server::utils::hash_bytes. It is not cryptographic — it exists
// only to detect "did this endpoint's body change" between builds, and to
// let the file watcher collapse duplicate filesystem events by comparing
// hashes of event paths. uint32 arithmetic wraps naturally in Go, so no
// explicit wrapping-add is needed.
func HashBytes(data []byte) uint32 {
	var a, b uint32 = 1, 1
	var res uint32
	for _, by := range data {
		ab := a + b
		res += uint32(by) * ab
		a, b = b, ab
	}
	return res
}
