package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/stakeledger-go/vault"
)

func newRewardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reward <from> <amount>",
		Short: "Send reward value to the pool for pro-rata distribution",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			return a.withVault(func(v *vault.Vault) error {
				if err := v.SendRewards(cmd.Context(), from, amount); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), success("distributed "+amountString(amount)))
				return nil
			})
		},
	}
}

func newYieldCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "yield <from> <amount>",
		Short: "Send tokens to the pool without minting shares",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			return a.withVault(func(v *vault.Vault) error {
				if err := v.SendYield(cmd.Context(), from, amount); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), success("pooled value is now "+amountString(v.Ledger.TotalPooledValue())))
				return nil
			})
		},
	}
}

func newClaimCmd(a *app) *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "claim <holder>",
		Short: "Pay out a holder's claimable rewards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			holder, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			recipient := holder
			if to != "" {
				if recipient, err = parseAddress(to); err != nil {
					return err
				}
			}
			return a.withVault(func(v *vault.Vault) error {
				paid, err := v.Claim(cmd.Context(), holder, recipient)
				if err != nil {
					return err
				}
				if paid.IsZero() {
					fmt.Fprintln(cmd.OutOrStdout(), "nothing to claim")
					return nil
				}
				printBlock(cmd.OutOrStdout(), "Claim", [][2]string{
					{"Holder", styledAddr(holder.Hex())},
					{"Recipient", styledAddr(recipient.Hex())},
					{"Paid", styledVal(amountString(paid))},
				})
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "recipient (default: the holder)")
	return cmd
}

func newPreviewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <amount>",
		Short: "Show how a reward would be split across current holders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			return a.withVault(func(v *vault.Vault) error {
				dists, rem, err := v.Ledger.PreviewDistribution(amount)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(dists))
				for _, d := range dists {
					rows = append(rows, []string{d.Address.Hex(), d.Amount.Dec()})
				}
				printTable(cmd.OutOrStdout(), []string{"HOLDER", "AMOUNT"}, rows)
				fmt.Fprintf(cmd.OutOrStdout(), "remainder %s\n", rem.Dec())
				return nil
			})
		},
	}
}
