// Package testing provides a standardised test suite for backends that satisfy
// the backend.IBackend interface, plus recording doubles for the backend and lock
// capabilities that make the store's interaction with them observable.
//
// The package contains:
//   - RunBackendTests: A conformance suite for the IBackend contract
//   - Recorder: Wraps any backend, counts calls and fails configured keys
//   - CountingMutex: Wraps any lock, counts Lock/Unlock calls and can refuse locks
//
// Example usage:
//
//	func Test(t *testing.T) {
//		backendtesting.RunBackendTests(t, "MyBackend", func() backend.IBackend {
//			return NewMyBackend()
//		})
//	}
package testing
