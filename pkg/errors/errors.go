package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"
	ErrConfigValid ErrorCode = "CONFIG_INVALID"

	// Toolchain errors
	ErrToolchain     ErrorCode = "TOOLCHAIN"
	ErrIntrospection ErrorCode = "INTROSPECTION"

	// Pack errors
	ErrMissingCompatibilityTag ErrorCode = "MISSING_COMPATIBILITY_TAG"
	ErrAmbiguousOrMissingBase  ErrorCode = "AMBIGUOUS_BASE"
	ErrMissingDependency       ErrorCode = "MISSING_DEPENDENCY"
	ErrUnsupportedConfig       ErrorCode = "UNSUPPORTED_CONFIGURATION"
	ErrDependencyCycle         ErrorCode = "DEPENDENCY_CYCLE"

	// Manifest errors
	ErrManifestParse ErrorCode = "MANIFEST_PARSE"
	ErrManifestWrite ErrorCode = "MANIFEST_WRITE"

	// FileSystem errors
	ErrFileNotFound ErrorCode = "FILE_NOT_FOUND"
	ErrFileAccess   ErrorCode = "FILE_ACCESS"
	ErrFileWrite    ErrorCode = "FILE_WRITE"
	ErrFileMove     ErrorCode = "FILE_MOVE"
	ErrFileCopy     ErrorCode = "FILE_COPY"
	ErrFileRemove   ErrorCode = "FILE_REMOVE"
)

// BundleError represents a structured error with code and details
type BundleError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *BundleError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *BundleError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *BundleError) Is(target error) bool {
	var targetErr *BundleError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new BundleError with the given code and message
func New(code ErrorCode, message string) *BundleError {
	return &BundleError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new BundleError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *BundleError {
	return &BundleError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a BundleError
func Wrap(err error, code ErrorCode, message string) *BundleError {
	if err == nil {
		return nil
	}
	return &BundleError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *BundleError {
	if err == nil {
		return nil
	}
	return &BundleError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *BundleError) WithDetail(key string, value interface{}) *BundleError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *BundleError) WithDetails(details map[string]interface{}) *BundleError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// ToolchainError is returned when a toolchain subprocess exits non-zero.
type ToolchainError struct {
	ExitCode int
	Stderr   string
	Args     []string
}

func (e *ToolchainError) Error() string {
	return fmt.Sprintf("toolchain exited with code %d running %q: %s",
		e.ExitCode, strings.Join(e.Args, " "), strings.TrimSpace(e.Stderr))
}

// Toolchain wraps a ToolchainError so it can be matched by code and by type.
func Toolchain(exitCode int, stderr string, args []string) *BundleError {
	return Wrap(&ToolchainError{ExitCode: exitCode, Stderr: stderr, Args: args},
		ErrToolchain, "toolchain command failed").
		WithDetail("exit_code", exitCode).
		WithDetail("args", args)
}

// MissingCompatibilityTag reports a customization pack without an extractor.
func MissingCompatibilityTag(pack string) *BundleError {
	return Newf(ErrMissingCompatibilityTag,
		"pack %s containing customizations doesn't define an extractor required to determine the pack to customize", pack).
		WithDetail("pack", pack)
}

// AmbiguousOrMissingBase reports that a customization matched zero or several
// base packs. The candidates are listed in the message.
func AmbiguousOrMissingBase(pack, tag string, candidates []string) *BundleError {
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)
	return Newf(ErrAmbiguousOrMissingBase,
		"found %d compatible base packs for %s (extractor %q) when exactly 1 was expected: [%s]",
		len(sorted), pack, tag, strings.Join(sorted, ",")).
		WithDetail("pack", pack).
		WithDetail("extractor", tag).
		WithDetail("candidates", sorted)
}

// MissingDependency reports packs that were requested but are not present.
func MissingDependency(root string, names []string) *BundleError {
	return Newf(ErrMissingDependency, "%s doesn't contain the packs: %s", root, strings.Join(names, ",")).
		WithDetail("root", root).
		WithDetail("missing", names)
}

// UnsupportedConfiguration reports a run layout the weaver refuses to guess at.
func UnsupportedConfiguration(message string) *BundleError {
	return New(ErrUnsupportedConfig, message)
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var bundleErr *BundleError
	if errors.As(err, &bundleErr) {
		return bundleErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a BundleError
func GetErrorCode(err error) ErrorCode {
	var bundleErr *BundleError
	if errors.As(err, &bundleErr) {
		return bundleErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a BundleError
func GetErrorDetails(err error) map[string]interface{} {
	var bundleErr *BundleError
	if errors.As(err, &bundleErr) {
		return bundleErr.Details
	}
	return nil
}
