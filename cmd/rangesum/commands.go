package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/utkarsh5026/forkjoin/internal/app"
	"github.com/utkarsh5026/forkjoin/internal/config"
	apperrors "github.com/utkarsh5026/forkjoin/internal/errors"
)

// run executes the command line and returns the process exit code.
func run(args []string, out, errOut io.Writer) int {
	code := apperrors.ExitSuccess

	// A nil slice would make cobra fall back to os.Args.
	if args == nil {
		args = []string{}
	}

	root := newRootCmd(out, errOut, &code)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	if err := root.ExecuteContext(context.Background()); err != nil {
		_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		return apperrors.ExitErrorConfig
	}
	return code
}

func newRootCmd(out, errOut io.Writer, code *int) *cobra.Command {
	cfg := config.Default()

	cmd := &cobra.Command{
		Use:   "rangesum",
		Short: "Sum an integer range with fork/join",
		Long: `rangesum sums the inclusive range [start, end] on a work-stealing pool.

Ranges wider than the threshold are split at their midpoint and both halves
are forked; narrower ranges are summed directly. Each task writes a
"Computing..." line to stderr before it computes. The result goes to stdout
without a trailing newline.

Every flag can also be set through RANGESUM_<FLAG> (for example
RANGESUM_END=100); explicit flags win.`,
		Version:       app.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.ApplyEnv(cmd.Flags()); err != nil {
				return err
			}
			*code = app.RunReference(cmd.Context(), cfg, out, errOut)
			return nil
		},
	}
	cfg.BindFlags(cmd.Flags())

	cmd.AddCommand(newBatchCmd(out, errOut, code))
	cmd.AddCommand(newBenchCmd(out, errOut, code))
	return cmd
}

func newBatchCmd(out, errOut io.Writer, code *int) *cobra.Command {
	cfg := config.Default()

	cmd := &cobra.Command{
		Use:   "batch START:END [START:END...]",
		Short: "Sum several ranges concurrently, one line per range",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.ApplyEnv(cmd.Flags()); err != nil {
				return err
			}
			*code = app.RunBatch(cmd.Context(), cfg, args, out, errOut)
			return nil
		},
	}
	cfg.BindFlags(cmd.Flags())
	return cmd
}

func newBenchCmd(out, errOut io.Writer, code *int) *cobra.Command {
	cfg := config.DefaultBench()

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Compare pool sizes across range sizes and verify every sum",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.ApplyEnv(cmd.Flags()); err != nil {
				return err
			}
			*code = app.RunBench(cmd.Context(), cfg, out, errOut)
			return nil
		},
	}
	cfg.BindFlags(cmd.Flags())
	return cmd
}
