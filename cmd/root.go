package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = getVersion()

var rootCmd = &cobra.Command{
	Use:   "idxmaint",
	Short: "Budget-bounded index fragmentation maintenance",
	Long: `idxmaint inspects index fragmentation, plans reorganize and rebuild
actions, and executes them one at a time within a wall-clock budget.

Every attempt is written to a durable maintenance log.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	flagEnvironment string
	flagLogLevel    string
	flagOutput      string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagEnvironment, "env", "e", "", "Environment from idxmaint.toml (default: default_environment or \"local\")")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides [logging] level)")
}

// exitError carries a process exit code. A nil err exits silently.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	code := 1
	var exit *exitError
	if errors.As(err, &exit) {
		code = exit.code
		if exit.err == nil {
			os.Exit(code)
		}
	}
	_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(code)
}
