package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/okane-app/okane/internal/cli"
	"github.com/okane-app/okane/internal/config"
	"github.com/okane-app/okane/internal/model"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage accounts",
		Long:  `List, add, and archive the accounts that hold your money.`,
	}

	cmd.AddCommand(listAccountsCmd())
	cmd.AddCommand(addAccountCmd())
	cmd.AddCommand(archiveAccountCmd())

	return cmd
}

func listAccountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			accounts, err := store.ListAccounts(ctx, config.UserID())
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}

			if len(accounts) == 0 {
				fmt.Println(cli.FormatInfo("No accounts found. Use 'okane accounts add' to create one."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				cli.HeaderStyle.Render("ID"),
				cli.HeaderStyle.Render("Name"),
				cli.HeaderStyle.Render("Type"),
				cli.HeaderStyle.Render("Balance"),
				cli.HeaderStyle.Render("Currency"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				strings.Repeat("-", 8),
				strings.Repeat("-", 20),
				strings.Repeat("-", 12),
				strings.Repeat("-", 12),
				strings.Repeat("-", 8))

			for _, account := range accounts {
				name := account.Name
				if account.Archived {
					name = cli.SubtleStyle.Render(name + " (archived)")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					account.ID[:8], name, account.Type,
					cli.FormatAmount(account.Balance), account.Currency)
			}
			return nil
		},
	}
}

func addAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a new account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			accountType, _ := cmd.Flags().GetString("type")
			balanceStr, _ := cmd.Flags().GetString("balance")
			currency, _ := cmd.Flags().GetString("currency")

			balance, err := parseAmount(balanceStr)
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			account := &model.Account{
				UserID:   config.UserID(),
				Name:     args[0],
				Type:     model.AccountType(accountType),
				Balance:  balance,
				Currency: currencyOrDefault(currency),
			}

			id, err := store.CreateAccount(ctx, account)
			if err != nil {
				return fmt.Errorf("failed to create account: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created account %q (%s)", account.Name, id[:8])))
			return nil
		},
	}

	cmd.Flags().StringP("type", "t", "bank", "account type (bank, cash, credit_card, investment, loan, emoney, point, wallet)")
	cmd.Flags().StringP("balance", "b", "0", "opening balance")
	cmd.Flags().StringP("currency", "c", "", "currency code (default from config)")

	return cmd
}

func archiveAccountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive [id]",
		Short: "Archive an account",
		Long:  `Hide an account from day-to-day use without deleting its history.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.SetAccountArchived(ctx, args[0], true); err != nil {
				return fmt.Errorf("failed to archive account: %w", err)
			}

			fmt.Println(cli.FormatSuccess("Account archived"))
			return nil
		},
	}
}
