package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/Norgate-AV/lazydi/internal/cache"
	"github.com/Norgate-AV/lazydi/internal/config"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear cached containers",
	}

	statusCmd := &cobra.Command{
		Use:          "status [dir]",
		Short:        "Show the state of a cached container",
		Long:         `Show whether the cached source exists and is fresh. With --type, also compare it with freshly generated source.`,
		RunE:         runCacheStatus,
		SilenceUsage: true,
		Args:         cobra.MaximumNArgs(1),
	}
	statusCmd.Flags().StringP("type", "t", "", "Blueprint type name, enables the drift check")
	statusCmd.Flags().Bool("json", false, "Print the status as JSON")
	addCacheFlags(statusCmd)

	clearCmd := &cobra.Command{
		Use:          "clear [dir]",
		Short:        "Remove cached source",
		Long:         `Remove cached source so the next compile regenerates it. A bolt store without --type is emptied.`,
		RunE:         runCacheClear,
		SilenceUsage: true,
		Args:         cobra.MaximumNArgs(1),
	}
	clearCmd.Flags().StringP("type", "t", "", "Blueprint type name")
	clearCmd.Flags().String("cache", "", "Cache location (default <dir>/.lazydi-cache/...)")
	clearCmd.Flags().String("store", "", "Cache store: file or bolt")

	cmd.AddCommand(statusCmd, clearCmd)

	return cmd
}

// report is the cache status output
type report struct {
	cache.Status

	// Drift is set when a type was given; true when generated source differs
	Drift *bool `json:"drift,omitempty"`
}

func runCacheStatus(cmd *cobra.Command, args []string) (err error) {
	cfg, err := config.NewLoader().LoadForCommand(cmd, args)
	if err != nil {
		return err
	}

	log := newLogger(cfg.Verbose)
	defer func() { _ = log.Sync() }()

	var (
		key       string
		generated string
	)

	if cfg.Type != "" {
		c, err := newSourceCompiler(cfg, log)
		if err != nil {
			return err
		}

		if key, err = c.CompiledName(); err != nil {
			return err
		}

		if generated, err = c.GenerateCode(); err != nil {
			return err
		}
	}

	store, closeStore, err := openStore(cfg, key)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeStore(); err == nil {
			err = cerr
		}
	}()

	st, err := cache.Inspect(store, cfg.MaxAge, nil)
	if err != nil {
		return err
	}

	r := report{Status: st}
	if cfg.Type != "" && st.Exists {
		drift := st.Digest != cache.Digest([]byte(generated))
		r.Drift = &drift
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	printReport(cmd.OutOrStdout(), r)

	return nil
}

func printReport(w io.Writer, r report) {
	fmt.Fprintf(w, "Location: %s\n", r.Location)

	if !r.Exists {
		fmt.Fprintln(w, "Exists: no")
		return
	}

	maxAge := "never expires"
	if r.MaxAge > 0 {
		maxAge = r.MaxAge.String()
	}

	fmt.Fprintf(w, "Written: %s\n", r.ModTime.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Age: %s\n", r.Age.Round(time.Second))
	fmt.Fprintf(w, "Max age: %s\n", maxAge)
	fmt.Fprintf(w, "Fresh: %t\n", r.Fresh)
	fmt.Fprintf(w, "Digest: %s\n", r.Digest)

	if r.Drift != nil {
		fmt.Fprintf(w, "Drift: %t\n", *r.Drift)
	}
}

func runCacheClear(cmd *cobra.Command, args []string) (err error) {
	cfg, err := config.NewLoader().LoadForCommand(cmd, args)
	if err != nil {
		return err
	}

	log := newLogger(cfg.Verbose)
	defer func() { _ = log.Sync() }()

	var key string
	if cfg.Type != "" {
		c, err := newSourceCompiler(cfg, log)
		if err != nil {
			return err
		}

		if key, err = c.CompiledName(); err != nil {
			return err
		}
	}

	store, closeStore, err := openStore(cfg, key)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeStore(); err == nil {
			err = cerr
		}
	}()

	bolt, ok := store.(*cache.BoltStore)
	if !ok || key != "" {
		if err := cache.Invalidate(store); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", store.Location())
		return nil
	}

	keys, err := bolt.Keys()
	if err != nil {
		return err
	}

	var errs error
	for _, k := range keys {
		errs = multierr.Append(errs, cache.Invalidate(bolt.ForKey(k)))
	}

	if errs != nil {
		return fmt.Errorf("failed to clear cache: %w", errs)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "cleared %d entries from %s\n", len(keys), cfg.CachePath)

	return nil
}
