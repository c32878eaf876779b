package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/stakeledger-go/config"
)

func newInitCmd(a *app) *cobra.Command {
	cfg := config.DefaultConfig()
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the data directory and its configuration file",
		Long: `Write a configuration file into the data directory.

Examples:
  stakeledger init
  stakeledger --datadir ./pool init --backend bolt --refuse 0x000000000000000000000000000000000000e2c2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.DataDir = a.dataDir
			if err := config.ValidateConfig(cfg); err != nil {
				return err
			}
			path := config.ConfigPath(a.dataDir)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := config.SaveConfig(path, cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), success("initialized "+a.dataDir))
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.Backend, "backend", cfg.Backend, "storage backend: bolt or memory")
	cmd.Flags().StringVar(&cfg.PoolAddress, "pool", cfg.PoolAddress, "pool custody account")
	cmd.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "host:port served by serve-metrics")
	cmd.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	cmd.Flags().StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "write logs to this file instead of stderr")
	cmd.Flags().StringSliceVar(&cfg.RefusingAccounts, "refuse", nil, "accounts that refuse incoming transfers")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration")
	return cmd
}
