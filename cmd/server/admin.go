package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/catbutler/credits-engine/config"
	"github.com/catbutler/credits-engine/credits"
)

// withStore opens the configured store for a one-shot operator command.
func withStore(ctx context.Context, fn func(credits.Store) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.ConfigureLogging()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(st)
}

// userHistory reads a user's stored balance and transactions without
// opening a session, so no daily reward is granted.
func userHistory(st credits.Store, userID string) (int, []credits.Transaction, error) {
	balance, _, err := credits.LoadInt(st, credits.Key(credits.EntityCredits, userID))
	if err != nil {
		return 0, nil, err
	}
	var txs []credits.Transaction
	if _, err := credits.LoadJSON(st, credits.Key(credits.EntityTransactions, userID), &txs); err != nil {
		return 0, nil, err
	}
	return balance, txs, nil
}

func listUsers(ctx context.Context, st credits.Store) ([]string, error) {
	lister, ok := st.(credits.KeyLister)
	if !ok {
		return nil, fmt.Errorf("store %T cannot list users", st)
	}
	return credits.UserIDs(ctx, lister)
}

func newUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List every user with a stored balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(st credits.Store) error {
				ids, err := listUsers(cmd.Context(), st)
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			})
		},
	}
}

func newVerifyCmd() *cobra.Command {
	var (
		userID string
		all    bool
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check stored balances against their history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (userID == "") == !all {
				return fmt.Errorf("pass exactly one of --user or --all")
			}
			return withStore(cmd.Context(), func(st credits.Store) error {
				ids := []string{userID}
				if all {
					var err error
					if ids, err = listUsers(cmd.Context(), st); err != nil {
						return err
					}
				}

				failed := 0
				for _, id := range ids {
					balance, txs, err := userHistory(st, id)
					if err == nil {
						err = credits.VerifyHistory(balance, txs)
					}
					if err != nil {
						failed++
						fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", id, err)
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: ok, balance %d over %d transactions\n", id, balance, len(txs))
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d users failed verification", failed, len(ids))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().BoolVar(&all, "all", false, "verify every stored user")
	return cmd
}

func newBalanceCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Print a user's stored balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(st credits.Store) error {
				balance, _, err := userHistory(st, userID)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), balance)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
