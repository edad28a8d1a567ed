package main

import (
	"github.com/spf13/cobra"
)

// inputError marks failures caused by the user's files or flags.
type inputError struct {
	err error
}

func (e *inputError) Error() string { return e.err.Error() }
func (e *inputError) Unwrap() error { return e.err }

func badInput(err error) error {
	return &inputError{err: err}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "timesheet",
		Short: "Offline pay period reports from exported clock messages",
		Long: `timesheet reads a JSON export of a clock channel and prints the
hours of every member for a two week pay period, the same way the bot does.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return badInput(err)
	})
	root.AddCommand(newReportCmd())
	return root
}
