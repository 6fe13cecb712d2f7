package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/Norgate-AV/lazydi/internal/config"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "check [dir]",
		Short:        "Validate a blueprint",
		Long:         `Report every Get method of the blueprint that breaks the service contract.`,
		RunE:         runCheck,
		SilenceUsage: true,
		Args:         cobra.MaximumNArgs(1),
	}

	cmd.Flags().StringP("type", "t", "", "Blueprint type name")
	cmd.Flags().String("package", "", "Fail unless the blueprint is in this package")

	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
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

	services, err := c.Check()
	out := cmd.OutOrStdout()

	for _, e := range multierr.Errors(err) {
		fmt.Fprintf(out, "invalid: %v\n", e)
	}

	if err != nil {
		return fmt.Errorf("%d invalid service definitions: %w", len(multierr.Errors(err)), err)
	}

	for _, s := range services {
		fmt.Fprintf(out, "service: %s\n", s.Name)
	}

	fmt.Fprintf(out, "%s: %d services ok\n", cfg.Type, len(services))

	return nil
}
