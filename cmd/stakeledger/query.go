package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/stakeledger-go/vault"
)

func newBalanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <address>",
		Short: "Show an account's tokens, shares and rewards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			holder, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			return a.withVault(func(v *vault.Vault) error {
				acct := v.Account(holder)
				printBlock(cmd.OutOrStdout(), "Account", [][2]string{
					{"Address", styledAddr(holder.Hex())},
					{"Tokens", styledVal(amountString(acct.Tokens))},
					{"Value", styledVal(amountString(acct.Value))},
					{"Shares", styledVal(acct.Shares.Dec())},
					{"Staked", styledVal(amountString(acct.Staked))},
					{"Claimable", styledVal(amountString(acct.Claimable))},
					{"Claimed", styledVal(amountString(acct.Claimed))},
				})
				return nil
			})
		},
	}
}

func newHoldersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "holders",
		Short: "List holders with their shares and rewards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withVault(func(v *vault.Vault) error {
				holders := v.Ledger.Holders()
				rows := make([][]string, 0, len(holders))
				for _, h := range holders {
					rows = append(rows, []string{
						h.Address.Hex(),
						h.Shares.Dec(),
						v.Ledger.ClaimableRewardsOf(h.Address).Dec(),
						h.Claimed.Dec(),
					})
				}
				printTable(cmd.OutOrStdout(), []string{"HOLDER", "SHARES", "CLAIMABLE", "CLAIMED"}, rows)

				st := v.Ledger.Snapshot()
				printBlock(cmd.OutOrStdout(), "Pool", [][2]string{
					{"Total shares", st.TotalShares.Dec()},
					{"Pooled value", amountString(st.TotalPooledValue)},
					{"Rewards received", amountString(st.TotalRewards)},
					{"Rewards claimed", amountString(st.TotalClaimed)},
				})
				return nil
			})
		},
	}
}

func newEventsCmd(a *app) *cobra.Command {
	var after uint64
	var limit int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List journaled ledger events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withVault(func(v *vault.Vault) error {
				events, err := v.Ledger.Events(after, limit)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(events))
				for _, ev := range events {
					rows = append(rows, []string{
						strconv.FormatUint(ev.Seq, 10),
						ev.Kind.String(),
						ev.Holder.Hex(),
						ev.Counterparty.Hex(),
						ev.Amount.Dec(),
						ev.Shares.Dec(),
					})
				}
				printTable(cmd.OutOrStdout(), []string{"SEQ", "KIND", "HOLDER", "COUNTERPARTY", "AMOUNT", "SHARES"}, rows)
				return nil
			})
		},
	}
	cmd.Flags().Uint64Var(&after, "after", 0, "only events with a greater sequence number")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of events (0 for all)")
	return cmd
}

func newAuditCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check the ledger invariants and the pool's balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withVault(func(v *vault.Vault) error {
				if err := v.Audit(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), success("ledger consistent"))
				return nil
			})
		},
	}
}
