package commands

import (
	"errors"
	"fmt"
	"io"

	"tasksync/internal/exitcode"
	"tasksync/internal/model"
)

// fail prints err and maps it to an exit code: rejected input and
// missing entities are user errors, everything else is on the backend.
func fail(errOut io.Writer, err error) int {
	fmt.Fprintf(errOut, "error: %v\n", err)
	if errors.Is(err, model.ErrValidation) || errors.Is(err, model.ErrNotFound) {
		return exitcode.UserError
	}
	return exitcode.BackendError
}
