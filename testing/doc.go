// Package testing provides test utilities for the rolecall library.
//
// It follows Go's convention of shipping test helpers in a dedicated package
// (similar to net/http/httptest). The central helper is StartEmbeddedNATS,
// which runs an in-process NATS server with JetStream so store, hub and
// coordinator tests need no external dependencies.
//
// Example usage:
//
//	import (
//	    "testing"
//	    rctest "github.com/teamflow/rolecall/testing"
//	)
//
//	func TestSubmissions(t *testing.T) {
//	    nc := rctest.StartEmbeddedNATS(t)
//	    // Use nc for your tests
//	}
package testing
