// Package testing provides test utilities, builders, and fixtures for unit tests.
//
// This package centralizes common testing patterns to avoid duplication across test files:
//   - ConfigBuilder: Fluent builder for creating test configurations
//   - Project: A sample project tree (training code, scoring code, model, requests) on disk
//   - PlatformFixture: A stateful fake workspace that records every call in order
//   - MockServingClient: testify mock of the endpoint side of the platform
//
// Usage:
//
//	project := testing.NewProject(t)
//	cfg := testing.NewConfigBuilder().
//	    WithProject(project.Dir).
//	    WithModel("iris", "3").
//	    Build()
//
//	platform := testing.NewPlatformFixture()
//	client := platform.Client()
package testing
