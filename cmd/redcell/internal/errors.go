package internal

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redcell-ai/redcell/internal/pipeline"
	"github.com/redcell-ai/redcell/internal/types"
)

// Exit code constants for the CLI
const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitError indicates a general error
	ExitError = 1
	// ExitStageFailed indicates a pipeline stage failed
	ExitStageFailed = 2
	// ExitTimeout indicates the operation timed out
	ExitTimeout = 3
	// ExitCancelled indicates the operation was cancelled or aborted
	ExitCancelled = 4
	// ExitConfigError indicates a configuration error
	ExitConfigError = 10
	// ExitScopeError indicates a scope file error
	ExitScopeError = 11
)

// CLIError represents a CLI-specific error with an exit code
type CLIError struct {
	Code    int
	Message string
	Cause   error
}

// Error implements the error interface
func (e *CLIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *CLIError) Unwrap() error {
	return e.Cause
}

// WrapError creates a new CLIError wrapping an existing error
func WrapError(code int, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Cause: err}
}

// NewCLIError creates a new CLIError with the given code and message
func NewCLIError(code int, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// HandleError prints an error to the command's error output and
// returns the exit code the process should use. Anticipated conditions
// map to dedicated codes and never surface a stack trace.
func HandleError(cmd *cobra.Command, err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, context.Canceled) {
		cmd.PrintErrln("Operation cancelled")
		return ExitCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		cmd.PrintErrln("Operation timed out")
		return ExitTimeout
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		cmd.PrintErrln("Error:", cliErr.Message)
		if cliErr.Cause != nil && IsVerbose() {
			cmd.PrintErrln("Cause:", cliErr.Cause)
		}
		return cliErr.Code
	}

	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		cmd.PrintErrf("Error: stage '%s' failed: %v\n", stageErr.Stage, stageErr.Err)
		return ExitStageFailed
	}

	var rcErr *types.RedcellError
	if errors.As(err, &rcErr) {
		cmd.PrintErrln("Error:", rcErr.Message)
		if rcErr.Cause != nil && IsVerbose() {
			cmd.PrintErrln("Cause:", rcErr.Cause)
		}
		return mapErrorCode(rcErr.Code)
	}

	cmd.PrintErrln("Error:", err)
	return ExitError
}

func mapErrorCode(code types.ErrorCode) int {
	switch code {
	case types.CONFIG_LOAD_FAILED,
		types.CONFIG_PARSE_FAILED,
		types.CONFIG_VALIDATION_FAILED,
		types.CONFIG_NOT_FOUND:
		return ExitConfigError
	case types.SCOPE_NOT_FOUND,
		types.SCOPE_PARSE_FAILED:
		return ExitScopeError
	case types.PIPELINE_ABORTED:
		return ExitCancelled
	case types.STAGE_FAILED,
		types.RETRY_EXHAUSTED:
		return ExitStageFailed
	default:
		return ExitError
	}
}
