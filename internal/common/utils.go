package common

import (
	"fmt"
	"os"
)

// LogError prints an error message to stderr.
// When critic is true the program exits with code 1, optionally showing
// the command help first.
func LogError(
	message string,
	critic bool,
	helpMenu bool,
	helpCallback func() error,
) {
	fmt.Fprintf(os.Stderr, "%s\n", message)

	if critic {
		if helpMenu && helpCallback != nil {
			helpCallback() //nolint:errcheck
		}
		os.Exit(1)
	}
}

// LogInfo prints a plain informational line to stdout.
func LogInfo(
	message string,
	callback func(),
) {
	fmt.Printf("%s\n", message)

	if callback != nil {
		callback()
	}
}

// LogDebug prints a "[debug]" prefixed line to stderr when debug is on.
func LogDebug(debug bool, format string, args ...interface{}) {
	if !debug {
		return
	}
	fmt.Fprintf(os.Stderr, "[debug] "+format+"\n", args...)
}
