package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Norgate-AV/lazydi/internal/codes"
	"github.com/Norgate-AV/lazydi/internal/version"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "lazydi [dir]",
		Short:        "Lazy service container compiler",
		Long:         `Generate memoizing containers for Go types whose Get methods build services.`,
		RunE:         runGenerate,
		SilenceUsage: true,
		Args:         cobra.MaximumNArgs(1),
	}

	root.Version = fmt.Sprintf("%s (%s) %s", version.Version, version.Commit, version.BuildTime)
	root.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	addGenerateFlags(root)

	root.AddCommand(newGenerateCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newCompileCmd())
	root.AddCommand(newCacheCmd())

	return root
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		code := codes.FromError(err)
		fmt.Fprintf(os.Stderr, "%s (exit code %d)\n", codes.GetErrorMessage(code), code)
		os.Exit(code)
	}
}

// newLogger returns a development logger when verbose, otherwise a no-op one
func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}

	return log
}
