package investigation

import "fmt"

// ClassificationError marks a failed or invalid investigation-type decision.
// It is always recovered locally via the fallback type, never surfaced to the
// caller.
type ClassificationError struct {
	RawValue string
	Err      error
}

func (e *ClassificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classification failed: %v", e.Err)
	}
	return fmt.Sprintf("classification returned unknown type %q", e.RawValue)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// ToolExecutionError marks a failed tool invocation inside the agent loop.
// Recorded as an error-status action; the loop continues.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// OrchestrationError is fatal to an investigation: the final model output
// could not be parsed, or the overall time budget ran out.
type OrchestrationError struct {
	Reason string
	Err    error
}

func (e *OrchestrationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *OrchestrationError) Unwrap() error { return e.Err }
