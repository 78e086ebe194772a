package cmd

import "fmt"

// Process exit codes besides the ones mirrored from the child
const (
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitError carries the exit code the process should end with. Err may be nil
// when the child already reported the failure itself.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}
