// Package toolchain drives the external pack toolchain (the CodeQL CLI) as a
// subprocess.
//
// The toolchain is a black box with a fixed command contract: every call
// captures stdout and stderr in full and a non-zero exit is always returned
// as a ToolchainError. Capability dependent behavior, such as requesting
// precompiled query output, is gated on the version the toolchain reports
// rather than probed by trial.
package toolchain
