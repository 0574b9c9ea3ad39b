// Package libpostal is a postal.Backend backed by the system libpostal
// library through cgo.
//
// The native backend is compiled only when cgo is enabled and the libpostal
// build tag is set:
//
//	go build -tags libpostal ./...
//
// pkg-config must be able to locate libpostal. Other builds get a stub whose
// Open reports an unsupported error, so the rest of the module stays usable
// with the wasm backend alone.
//
// libpostal keeps its models in process-wide state. Open reference counts the
// native setup: every handle shares it and the last Close tears it down.
package libpostal
