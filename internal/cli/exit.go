package cli

import "fmt"

// ExitError carries a specific process exit code out of a command. The main
// package unwraps it instead of mapping every failure to exit code 1.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}
