package cli

import (
	"fmt"
	"os"

	"github.com/localmem/memsys/internal/errs"
)

// exitCode maps a sentinel error kind to the CLI's documented exit
// codes: 0 success, 1 usage error, 2 not-found, 3 invalid state, 4
// downstream dependency failure.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errs.Is(err, errs.ErrInvalidInput):
		return 1
	case errs.Is(err, errs.ErrNotFound):
		return 2
	case errs.Is(err, errs.ErrConflictingEdit), errs.Is(err, errs.ErrCorruption):
		return 3
	case errs.Is(err, errs.ErrCircuitOpen), errs.Is(err, errs.ErrDependencyFailed):
		return 4
	default:
		return 1
	}
}

// dieOnError prints err to stderr and exits with the code its sentinel
// kind maps to. Commands call this from their Run functions rather
// than returning err to cobra, since cobra always exits 1.
func dieOnError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(exitCode(err))
}
