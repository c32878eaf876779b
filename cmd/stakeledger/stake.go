package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/stakeledger-go/bank"
	"github.com/bitfsorg/stakeledger-go/vault"
)

func newFundCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fund <address> <tokens|value> <amount>",
		Short: "Credit an account with tokens or reward value",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			asset, err := bank.ParseAsset(args[1])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[2])
			if err != nil {
				return err
			}
			return a.withVault(func(v *vault.Vault) error {
				if err := v.Fund(asset, to, amount); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), success(fmt.Sprintf("funded %s with %s %s", to.Hex(), amount.Dec(), asset)))
				return nil
			})
		},
	}
}

func newDepositCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "deposit <address> <amount>",
		Aliases: []string{"stake"},
		Short:   "Stake tokens and mint shares",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			holder, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			return a.withVault(func(v *vault.Vault) error {
				shares, err := v.Stake(cmd.Context(), holder, amount)
				if err != nil {
					return err
				}
				printBlock(cmd.OutOrStdout(), "Deposit", [][2]string{
					{"Holder", styledAddr(holder.Hex())},
					{"Principal", styledVal(amountString(amount))},
					{"Shares minted", styledVal(shares.Dec())},
				})
				return nil
			})
		},
	}
}

func newWithdrawCmd(a *app) *cobra.Command {
	var claim bool
	cmd := &cobra.Command{
		Use:     "withdraw <address> <shares|all>",
		Aliases: []string{"unstake"},
		Short:   "Burn shares and return their tokens",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			holder, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			return a.withVault(func(v *vault.Vault) error {
				shares := v.Ledger.SharesOf(holder)
				if args[1] != "all" {
					if shares, err = parseAmount(args[1]); err != nil {
						return err
					}
				}
				principal, rewards, err := v.Unstake(cmd.Context(), holder, shares, claim)
				if err != nil {
					return err
				}
				printBlock(cmd.OutOrStdout(), "Withdraw", [][2]string{
					{"Holder", styledAddr(holder.Hex())},
					{"Shares burned", styledVal(shares.Dec())},
					{"Principal", styledVal(amountString(principal))},
					{"Rewards paid", styledVal(amountString(rewards))},
				})
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&claim, "claim", false, "also pay out claimable rewards")
	return cmd
}

func newTransferCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "transfer <from> <to> <shares>",
		Short: "Move shares between holders",
		Long: `Move shares between holders. Rewards accrued before the transfer stay
claimable by the sender.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			to, err := parseAddress(args[1])
			if err != nil {
				return err
			}
			shares, err := parseAmount(args[2])
			if err != nil {
				return err
			}
			return a.withVault(func(v *vault.Vault) error {
				if err := v.Transfer(cmd.Context(), from, to, shares); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), success(fmt.Sprintf("transferred %s shares from %s to %s", shares.Dec(), from.Hex(), to.Hex())))
				return nil
			})
		},
	}
}

func newRefuseCmd(a *app) *cobra.Command {
	var off bool
	cmd := &cobra.Command{
		Use:   "refuse <address>",
		Short: "Make an account refuse incoming transfers",
		Long: `Make an account refuse incoming transfers, or accept them again with --off.
Accounts listed in refusing_accounts of the configuration always refuse.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acct, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			return a.withVault(func(v *vault.Vault) error {
				v.Bank.SetRefusing(acct, !off)
				state := "refusing"
				if off {
					state = "accepting"
				}
				fmt.Fprintln(cmd.OutOrStdout(), success(fmt.Sprintf("%s is %s transfers", acct.Hex(), state)))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&off, "off", false, "accept transfers again")
	return cmd
}
