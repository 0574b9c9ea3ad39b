// Package postal provides Go bindings for libpostal, the statistical address
// parsing and normalization library.
//
// The package exposes one explicit handle, Client, over a pluggable native
// Backend. Two backends ship with the module:
//
//	postal/              Client, Backend interface, options, enums, validation
//	├── libpostal/       cgo backend linked against the system libpostal
//	├── guest/           wazero backend hosting a wasm32-wasi libpostal build
//	├── instrument/      Prometheus and OpenTelemetry Backend decorator
//	├── config/          configuration loading and logger construction
//	├── server/          HTTP API over a Client
//	├── errors/          structured error types
//	└── cmd/postal/      command line interface
//
// # Quick Start
//
//	backend, err := libpostal.Open(libpostal.Config{Parser: true, LanguageClassifier: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := postal.New(backend)
//	defer client.Close(ctx)
//
//	parsed, err := client.ParseAddress(ctx, "781 Franklin Ave Crown Heights Brooklyn NY 11216", postal.ParseOptions{})
//	for _, c := range parsed {
//	    fmt.Println(c.Label, c.Value)
//	}
//
// # Lifecycle
//
// libpostal loads its models once per process. A backend performs that setup
// when it is opened and the matching teardown when it is closed. Opening
// fails with a setup error if the data files cannot be loaded; there is no
// half-initialized handle. Calls on a closed Client return a
// not_initialized error and never reach native code.
//
// # Arguments and Results
//
// Every operation validates its arguments before touching native code:
// strings must be valid UTF-8 without NUL bytes, language codes must be
// shorter than MaxLanguageLen bytes, and parallel arrays (labels/values,
// tokens/scores) must have equal length. When libpostal declines to produce a
// result the operation returns a nil slice and a nil error.
//
// # Thread Safety
//
// Client is safe for concurrent use. Backends serialize access to native
// state where the underlying engine requires it.
package postal
