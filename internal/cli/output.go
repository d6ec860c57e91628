package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/damz/jackalope/internal/ir"
)

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the repository refused the operation
	ExitCommandError = 2 // bad usage, config, or database access
)

// commandErrorCode is reported for failures that carry no repository code.
const commandErrorCode = "E_COMMAND"

// ExitError is a command failure together with the exit code it maps to.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns a failure with no underlying error.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns a failure caused by err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// failure wraps an error returned by a session or the catalog. The
// repository refusing an operation is ExitFailure; an unreachable
// repository or any other error is ExitCommandError.
func failure(message string, err error) *ExitError {
	if re, ok := repositoryError(err); ok && re.Code != ir.ErrCodeRepositoryUnavailable {
		return WrapExitError(ExitFailure, message, err)
	}
	return WrapExitError(ExitCommandError, message, err)
}

func repositoryError(err error) (*ir.RepositoryError, bool) {
	var re *ir.RepositoryError
	ok := errors.As(err, &re)
	return re, ok
}

// exitCode maps err to a process exit code. Errors not raised by a command
// count as ExitFailure.
func exitCode(err error) int {
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitFailure
}

// errorCode is the code reported for err: its repository error code, or
// E_COMMAND.
func errorCode(err error) string {
	if re, ok := repositoryError(err); ok {
		return string(re.Code)
	}
	return commandErrorCode
}

// CLIResponse is the envelope written for every command in json format.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" | "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError describes a failed command. Details holds the offending node or
// property path when there is one.
type CLIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// OutputFormatter writes command results as text or as a CLIResponse.
// Diagnostics go to ErrWriter, or Writer when it is nil.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetEscapeHTML(false)
	return enc.Encode(resp)
}

// Success writes a command result. Text output prints data with fmt, so
// result views implement fmt.Stringer.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error writes a failure. In text format details are only shown when
// verbose, one "key: value" line each.
func (f *OutputFormatter) Error(code, message string, details map[string]string) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	if _, err := fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message); err != nil {
		return err
	}
	if !f.Verbose {
		return nil
	}
	for _, k := range slices.Sorted(maps.Keys(details)) {
		if _, err := fmt.Fprintf(f.Writer, "  %s: %s\n", k, details[k]); err != nil {
			return err
		}
	}
	return nil
}

// Report writes err and returns the exit code for it.
func (f *OutputFormatter) Report(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var details map[string]string
	if re, ok := repositoryError(err); ok && re.Path != "" {
		details = map[string]string{"path": re.Path}
	}
	_ = f.Error(errorCode(err), err.Error(), details)
	return exitCode(err)
}

// VerboseLog writes a diagnostic line when verbose.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
