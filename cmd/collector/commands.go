package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/wyfcoding/datacollector/pkg/config"
	"github.com/wyfcoding/datacollector/pkg/logger"
)

// --- Global Command Variables ---
var (
	configPath   string
	qlibDir      string
	freq         string
	requestRetry int
	retrySleep   int
	publish      bool

	panoFilter string
	panoAnd    []string
	panoOr     []string

	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:           "collector",
		Short:         "Collect index membership, calendars and prices from Compustat",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			applyOverrides(cmd, loaded)
			if err := loaded.Validate(); err != nil {
				return fmt.Errorf("config validation failed: %w", err)
			}
			if err := logger.Init(loaded.Logger); err != nil {
				return fmt.Errorf("failed to init logger: %w", err)
			}
			cfg = loaded
			return nil
		},
	}

	compustatCmd = &cobra.Command{
		Use:   "compustat <gvkeyx> <action>",
		Short: "Query a Compustat index: " + joinActions(compustatActions),
		Args:  cobra.ExactArgs(2),
		RunE:  runCompustat,
	}

	panoCmd = &cobra.Command{
		Use:   "pano <name> <action>",
		Short: "Build an index from a security filter: " + joinActions(indexActions),
		Example: `  collector pano cheap --filter 'sec_dprc.prccd<5' --and 'security.exchg=11' new-companies
  collector pano listed --filter 'security.exchg=11' --or 'security.exchg=14' parse-instruments`,
		Args: cobra.ExactArgs(2),
		RunE: runPano,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the Compustat index HTTP API with /metrics and /health",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "configs/collector.toml", "config file path")
	pf.StringVar(&qlibDir, "qlib-dir", "", "qlib data directory (overrides collector.qlib_dir)")
	pf.StringVar(&freq, "freq", "", "data frequency, only day is supported")
	pf.IntVar(&requestRetry, "request-retry", 0, "attempts per database read")
	pf.IntVar(&retrySleep, "retry-sleep", 0, "seconds between read attempts")
	pf.BoolVar(&publish, "publish", false, "publish constituents to kafka after loading")

	panoCmd.Flags().StringVar(&panoFilter, "filter", "", "base filter expression, e.g. 'sec_dprc.prccd>=5'")
	panoCmd.Flags().StringArrayVar(&panoAnd, "and", nil, "AND the current filter with this expression (repeatable)")
	panoCmd.Flags().StringArrayVar(&panoOr, "or", nil, "OR the current filter with this expression (repeatable, applied after --and)")
	_ = panoCmd.MarkFlagRequired("filter")

	rootCmd.AddCommand(compustatCmd, panoCmd, serveCmd)
}

// applyOverrides 命令行参数覆盖配置文件
func applyOverrides(cmd *cobra.Command, c *config.Config) {
	changed := func(name string) bool {
		f := cmd.Flag(name)
		return f != nil && f.Changed
	}
	if changed("qlib-dir") {
		c.Collector.QlibDir = qlibDir
	}
	if changed("freq") {
		c.Collector.Freq = freq
	}
	if changed("request-retry") {
		c.Collector.RequestRetry = requestRetry
	}
	if changed("retry-sleep") {
		c.Collector.RetrySleep = retrySleep
	}
}

func retrySleepDuration(c *config.Config) time.Duration {
	return time.Duration(c.Collector.RetrySleep) * time.Second
}
