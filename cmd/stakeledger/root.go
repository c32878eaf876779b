package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/stakeledger-go/config"
	"github.com/bitfsorg/stakeledger-go/logging"
	"github.com/bitfsorg/stakeledger-go/vault"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X main.Version=1.2.3" ./cmd/stakeledger
var Version = "0.1.0"

// app carries the state shared by the subcommands of one invocation.
type app struct {
	dataDir string
	wait    bool
	cfg     config.Config
	log     *logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{dataDir: config.DefaultDataDir()}

	root := &cobra.Command{
		Use:   "stakeledger",
		Short: "Staking pool ledger with pro-rata reward distribution",
		Long: `stakeledger keeps a staking pool in a local data directory.

Holders stake tokens for shares at the pool exchange rate. Rewards sent to the
pool accrue to current share holders in proportion to their shares and can be
claimed at any time. Amounts are base units unless suffixed with "ether" or
"gwei", e.g. 1.5ether.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "init" || cmd.Name() == "completion" {
				return nil
			}
			return a.load()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.log != nil {
				return a.log.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.dataDir, "datadir", a.dataDir, "data directory")
	root.PersistentFlags().BoolVar(&a.wait, "wait", false, "wait for the data directory lock instead of failing")

	root.AddCommand(
		newInitCmd(a),
		newFundCmd(a),
		newDepositCmd(a),
		newWithdrawCmd(a),
		newTransferCmd(a),
		newRewardCmd(a),
		newYieldCmd(a),
		newClaimCmd(a),
		newRefuseCmd(a),
		newBalanceCmd(a),
		newHoldersCmd(a),
		newEventsCmd(a),
		newAuditCmd(a),
		newPreviewCmd(a),
		newServeMetricsCmd(a),
	)
	return root
}

// load reads the configuration and builds the logger.
func (a *app) load() error {
	cfg, err := config.LoadConfig(config.ConfigPath(a.dataDir))
	if errors.Is(err, config.ErrConfigNotFound) {
		return fmt.Errorf("%s is not initialized; run stakeledger init", a.dataDir)
	}
	if err != nil {
		return err
	}
	cfg.DataDir = a.dataDir
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}
	a.cfg = cfg

	a.log, err = logging.New(cfg.LogLevel, cfg.LogFile)
	return err
}

// openVault opens the configured vault. The caller must Close it.
func (a *app) openVault(opts vault.Options) (*vault.Vault, error) {
	opts.Logger = a.log
	opts.Wait = a.wait
	return vault.Open(a.cfg, opts)
}

// withVault runs fn against an open vault and closes it afterwards.
func (a *app) withVault(fn func(v *vault.Vault) error) (err error) {
	v, err := a.openVault(vault.Options{})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := v.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(v)
}
