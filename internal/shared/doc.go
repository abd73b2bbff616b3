// Package shared provides common utilities and test helpers used across the
// attendance codebase. It serves as a central location for shared functionality
// that doesn't belong to any specific domain or architectural layer.
//
// # Structure
//
// The package is organized into the following components:
//
// - testutil: Testing utilities including log capture and assertions
//
// # Usage Guidelines
//
// This package should only contain:
//
// 1. Test utilities used by multiple packages
// 2. Generic helper functions with no domain-specific logic
// 3. Common constants or types used across packages
//
// It should NOT contain:
//
// 1. Business logic or domain-specific code
// 2. External dependencies beyond standard library
// 3. Circular dependencies with other internal packages
//
// # Test Utilities
//
// The testutil subpackage provides:
//
//	- A buffered slog handler that captures records for assertions
//	- Helpers for asserting on log messages, attributes, and levels
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, handler := testutil.NewTestLogger(t)
//	    component := NewComponent(logger)
//
//	    component.Do()
//	    testutil.AssertLogContains(t, handler, slog.LevelInfo, "done")
//	}
package shared
