package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/lazydi/internal/cache"
	"github.com/Norgate-AV/lazydi/internal/config"
)

func newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "compile [dir]",
		Short:        "Compile through the source cache",
		Long:         `Regenerate the cached container when it is missing or older than --max-age, then load it.`,
		RunE:         runCompile,
		SilenceUsage: true,
		Args:         cobra.MaximumNArgs(1),
	}

	cmd.Flags().StringP("type", "t", "", "Blueprint type name")
	cmd.Flags().String("package", "", "Fail unless the blueprint is in this package")
	addCacheFlags(cmd)

	return cmd
}

func addCacheFlags(cmd *cobra.Command) {
	cmd.Flags().String("cache", "", "Cache location (default <dir>/.lazydi-cache/...)")
	cmd.Flags().String("store", "", "Cache store: file or bolt")
	cmd.Flags().String("max-age", "", "Regenerate cached source older than this; seconds or a duration, 0 never expires")
}

func runCompile(cmd *cobra.Command, args []string) (err error) {
	cfg, err := config.NewLoader().LoadForCommand(cmd, args)
	if err != nil {
		return err
	}

	log := newLogger(cfg.Verbose)
	defer func() { _ = log.Sync() }()

	inner, err := newSourceCompiler(cfg, log)
	if err != nil {
		return err
	}

	name, err := inner.CompiledName()
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(cfg, name)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeStore(); err == nil {
			err = cerr
		}
	}()

	c, err := cache.NewCompiler(inner, store, cfg.MaxAge, cache.WithLogger(log))
	if err != nil {
		return err
	}

	if _, err := c.Compile(); err != nil {
		return err
	}

	def, err := inner.Space().Lookup(name)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if c.Outcome() == cache.Hit {
		fmt.Fprintf(out, "cache hit: %s\n", store.Location())
	} else {
		fmt.Fprintf(out, "regenerated: %s\n", store.Location())
	}

	fmt.Fprintf(out, "loaded %s with %d services\n", def.QualifiedName(), len(def.Services))

	return nil
}
