package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/steveyegge/lasso"
	"github.com/steveyegge/lasso/internal/rpc"
)

// FatalError prints an error message to stderr and exits with code 1.
func FatalError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// FatalErrorWithHint prints an error message plus an actionable hint, then
// exits with code 1.
func FatalErrorWithHint(message, hint string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
	os.Exit(1)
}

// WarnError prints a warning to stderr and returns.
func WarnError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
}

// fatalClassified reports a failure from the in-process service with its
// taxonomy code and exits.
func fatalClassified(err error) {
	code := string(lasso.Classify(err))
	if jsonOutput {
		outputJSONError(err, code)
	}
	FatalError("%v (%s)", err, code)
}

// fatalCallError reports a failed server call and exits. Server-side errors
// carry a taxonomy code worth preserving for scripts.
func fatalCallError(err error) {
	var callErr *rpc.CallError
	hasCall := errors.As(err, &callErr)

	if jsonOutput {
		if hasCall {
			outputJSONError(errors.New(callErr.Message), callErr.Code)
		}
		outputJSONError(err, "")
	}
	if hasCall && callErr.Code != "" {
		FatalError("%s (%s)", callErr.Message, callErr.Code)
	}
	FatalError("%v", err)
}
