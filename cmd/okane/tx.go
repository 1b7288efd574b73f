package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/okane-app/okane/internal/cli"
	"github.com/okane-app/okane/internal/common"
	"github.com/okane-app/okane/internal/config"
	"github.com/okane-app/okane/internal/ledger"
	"github.com/okane-app/okane/internal/model"
	"github.com/okane-app/okane/internal/service"
)

func txCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Record and manage transactions",
		Long: `Create, edit, delete, and list transactions.

Every mutation updates the affected account balances atomically, so the
ledger and balances can never disagree.`,
	}

	cmd.AddCommand(addTxCmd())
	cmd.AddCommand(editTxCmd())
	cmd.AddCommand(deleteTxCmd())
	cmd.AddCommand(listTxCmd())

	return cmd
}

func addTxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an income or expense",
		Example: `  okane tx add --account 1a2b3c4d --type expense --amount 3000 --category food
  okane tx add --account 1a2b3c4d --type income --amount 250000 --desc "July salary"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			accountID, _ := cmd.Flags().GetString("account")
			txnType, _ := cmd.Flags().GetString("type")
			amountStr, _ := cmd.Flags().GetString("amount")
			categoryID, _ := cmd.Flags().GetString("category")
			description, _ := cmd.Flags().GetString("desc")
			dateStr, _ := cmd.Flags().GetString("date")
			currency, _ := cmd.Flags().GetString("currency")
			tags, _ := cmd.Flags().GetStringSlice("tag")

			amount, err := parseAmount(amountStr)
			if err != nil {
				return err
			}
			date, err := parseDate(dateStr)
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			txn := &model.Transaction{
				UserID:      config.UserID(),
				AccountID:   accountID,
				Type:        model.TransactionType(txnType),
				Amount:      amount,
				CategoryID:  categoryID,
				Description: description,
				Date:        date,
				Currency:    currencyOrDefault(currency),
				Tags:        tags,
			}

			mutator := ledger.NewMutator(store)
			var id string
			err = common.WithRetry(ctx, func() error {
				var createErr error
				id, createErr = mutator.Create(ctx, txn)
				return createErr
			}, retryOptions())
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Recorded %s of %s (%s)",
				txnType, amount.StringFixed(2), id[:8])))
			return nil
		},
	}

	cmd.Flags().StringP("account", "a", "", "account id (required)")
	cmd.Flags().StringP("type", "t", "expense", "transaction type (income, expense)")
	cmd.Flags().String("amount", "", "amount (required, non-negative)")
	cmd.Flags().StringP("category", "c", "", "category id")
	cmd.Flags().StringP("desc", "d", "", "description")
	cmd.Flags().String("date", "", "date (YYYY-MM-DD, default today)")
	cmd.Flags().String("currency", "", "currency code (default from config)")
	cmd.Flags().StringSlice("tag", nil, "tag (repeatable)")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func transferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Move money between two accounts",
		Long: `Record a transfer: the amount leaves the source account and arrives
at the destination account in one atomic operation.`,
		Example: `  okane transfer --from 1a2b3c4d --to 9f8e7d6c --amount 30000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			fromID, _ := cmd.Flags().GetString("from")
			toID, _ := cmd.Flags().GetString("to")
			amountStr, _ := cmd.Flags().GetString("amount")
			dateStr, _ := cmd.Flags().GetString("date")
			description, _ := cmd.Flags().GetString("desc")

			amount, err := parseAmount(amountStr)
			if err != nil {
				return err
			}
			date, err := parseDate(dateStr)
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			txn := &model.Transaction{
				UserID:      config.UserID(),
				AccountID:   fromID,
				ToAccountID: toID,
				Type:        model.TypeTransfer,
				Amount:      amount,
				Description: description,
				Date:        date,
				Currency:    currencyOrDefault(""),
			}

			mutator := ledger.NewMutator(store)
			var id string
			err = common.WithRetry(ctx, func() error {
				var createErr error
				id, createErr = mutator.Create(ctx, txn)
				return createErr
			}, retryOptions())
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Transferred %s (%s)", amount.StringFixed(2), id[:8])))
			return nil
		},
	}

	cmd.Flags().String("from", "", "source account id (required)")
	cmd.Flags().String("to", "", "destination account id (required)")
	cmd.Flags().String("amount", "", "amount (required)")
	cmd.Flags().String("date", "", "date (YYYY-MM-DD, default today)")
	cmd.Flags().StringP("desc", "d", "", "description")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func editTxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit [id]",
		Short: "Edit a transaction",
		Long: `Replace a transaction's fields. The old balance effect is reversed
and the new one applied in a single atomic operation, even when the
edit moves the transaction to different accounts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			existing, err := store.GetTransaction(ctx, args[0])
			if err != nil {
				return err
			}

			updated := *existing
			if cmd.Flags().Changed("amount") {
				amountStr, _ := cmd.Flags().GetString("amount")
				if updated.Amount, err = parseAmount(amountStr); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("account") {
				updated.AccountID, _ = cmd.Flags().GetString("account")
			}
			if cmd.Flags().Changed("to-account") {
				updated.ToAccountID, _ = cmd.Flags().GetString("to-account")
			}
			if cmd.Flags().Changed("category") {
				updated.CategoryID, _ = cmd.Flags().GetString("category")
			}
			if cmd.Flags().Changed("desc") {
				updated.Description, _ = cmd.Flags().GetString("desc")
			}
			if cmd.Flags().Changed("date") {
				dateStr, _ := cmd.Flags().GetString("date")
				if updated.Date, err = parseDate(dateStr); err != nil {
					return err
				}
			}

			mutator := ledger.NewMutator(store)
			err = common.WithRetry(ctx, func() error {
				return mutator.Update(ctx, existing.ID, updated)
			}, retryOptions())
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess("Transaction updated"))
			return nil
		},
	}

	cmd.Flags().String("amount", "", "new amount")
	cmd.Flags().StringP("account", "a", "", "new account id")
	cmd.Flags().String("to-account", "", "new destination account id (transfers)")
	cmd.Flags().StringP("category", "c", "", "new category id")
	cmd.Flags().StringP("desc", "d", "", "new description")
	cmd.Flags().String("date", "", "new date (YYYY-MM-DD)")

	return cmd
}

func deleteTxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a transaction",
		Long:  `Remove a transaction and reverse its balance effect atomically.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			mutator := ledger.NewMutator(store)
			err = common.WithRetry(ctx, func() error {
				return mutator.Delete(ctx, args[0])
			}, retryOptions())
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess("Transaction deleted"))
			return nil
		},
	}
}

func listTxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			accountID, _ := cmd.Flags().GetString("account")
			categoryID, _ := cmd.Flags().GetString("category")
			fromStr, _ := cmd.Flags().GetString("from")
			toStr, _ := cmd.Flags().GetString("to")
			limit, _ := cmd.Flags().GetInt("limit")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			filter := service.TransactionFilter{
				UserID: config.UserID(),
				Limit:  limit,
			}
			if accountID != "" {
				filter.AccountIDs = []string{accountID}
			}
			if categoryID != "" {
				filter.CategoryIDs = []string{categoryID}
			}
			if fromStr != "" {
				from, err := parseDate(fromStr)
				if err != nil {
					return err
				}
				filter.Start = &from
			}
			if toStr != "" {
				to, err := parseDate(toStr)
				if err != nil {
					return err
				}
				filter.End = &to
			}

			txns, err := store.ListTransactions(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to list transactions: %w", err)
			}

			if len(txns) == 0 {
				fmt.Println(cli.FormatInfo("No transactions found."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				cli.HeaderStyle.Render("ID"),
				cli.HeaderStyle.Render("Date"),
				cli.HeaderStyle.Render("Type"),
				cli.HeaderStyle.Render("Amount"),
				cli.HeaderStyle.Render("Category"),
				cli.HeaderStyle.Render("Description"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				strings.Repeat("-", 8),
				strings.Repeat("-", 10),
				strings.Repeat("-", 8),
				strings.Repeat("-", 12),
				strings.Repeat("-", 12),
				strings.Repeat("-", 24))

			for _, txn := range txns {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					txn.ID[:8],
					txn.Date.Format("2006-01-02"),
					txn.Type,
					cli.FormatAmount(txn.SignedAmount()),
					txn.CategoryID,
					txn.Description)
			}
			return nil
		},
	}

	cmd.Flags().StringP("account", "a", "", "filter by account id")
	cmd.Flags().StringP("category", "c", "", "filter by category id")
	cmd.Flags().String("from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "end date (YYYY-MM-DD)")
	cmd.Flags().IntP("limit", "n", 50, "maximum rows")

	return cmd
}
