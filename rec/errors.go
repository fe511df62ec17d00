package rec

import "fmt"

// RecordingError reports a non-zero exit from the media tool.
type RecordingError struct {
	ExitCode int
	Err      error
}

func (e *RecordingError) Error() string {
	return fmt.Sprintf("media tool exited with code %d", e.ExitCode)
}

func (e *RecordingError) Unwrap() error { return e.Err }

// ToolUnavailableError reports that the media tool could not be
// started at all, as opposed to starting and then failing.
type ToolUnavailableError struct {
	Tool string
	Err  error
}

func (e *ToolUnavailableError) Error() string {
	return fmt.Sprintf("media tool %s could not be started: %v", e.Tool, e.Err)
}

func (e *ToolUnavailableError) Unwrap() error { return e.Err }
