// Package testutil provides utilities for testing qlbundle components.
//
// Key components:
//   - TestBundle: a bundle and workspace laid out in a temp directory
//   - PackSpec: declarative description of a pack written as qlpack.yml
//   - FakeToolchain: a toolchain.Toolchain that performs the filesystem
//     effects of bundle/create by copying pack trees, and records every call
//
// All test data should be defined inline, not in external files, and each
// test should build its own isolated bundle.
package testutil
