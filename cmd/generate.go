package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/lazydi/internal/config"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "generate [dir]",
		Short:        "Generate the derived container",
		Long:         `Read a blueprint type from the Go package in dir and write its memoizing derived container.`,
		RunE:         runGenerate,
		SilenceUsage: true,
		Args:         cobra.MaximumNArgs(1),
	}

	addGenerateFlags(cmd)

	return cmd
}

func addGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("type", "t", "", "Blueprint type name")
	cmd.Flags().StringP("out", "o", "", `Output file, "-" for stdout (default <dir>/<type>_compiled.go)`)
	cmd.Flags().String("package", "", "Fail unless the blueprint is in this package")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader().LoadForCommand(cmd, args)
	if err != nil {
		return err
	}

	log := newLogger(cfg.Verbose)
	defer func() { _ = log.Sync() }()

	c, err := newSourceCompiler(cfg, log)
	if err != nil {
		return err
	}

	src, err := c.GenerateCode()
	if err != nil {
		return err
	}

	if cfg.Output == config.Stdout {
		_, err := fmt.Fprint(cmd.OutOrStdout(), src)
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Output), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(cfg.Output, []byte(src), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", cfg.Output, err)
	}

	if cfg.Verbose {
		fmt.Fprintf(cmd.OutOrStdout(), "Type: %s\nDir: %s\nOutput: %s\n", cfg.Type, cfg.Dir, cfg.Output)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", cfg.Output)

	return nil
}
