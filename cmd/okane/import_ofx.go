package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/okane-app/okane/internal/cli"
	"github.com/okane-app/okane/internal/common"
	"github.com/okane-app/okane/internal/config"
	"github.com/okane-app/okane/internal/ledger"
	"github.com/okane-app/okane/internal/model"
	"github.com/okane-app/okane/internal/ofx"
)

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Import transactions from OFX/QFX files",
		Long: `Import bank statement files into a ledger account.

Statement lines become income or expense transactions and are applied
through the same atomic balance machinery as manual entries. Lines whose
bank-assigned FITID was already imported are skipped.

Examples:
  okane import-ofx --account 1a2b3c4d ~/Downloads/statement_jan.qfx
  okane import-ofx --account 1a2b3c4d ~/Downloads/*.ofx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}

	cmd.Flags().StringP("account", "a", "", "ledger account to import into (required)")
	cmd.Flags().BoolP("dry-run", "d", false, "preview import without saving")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	accountID, _ := cmd.Flags().GetString("account")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	var allFiles []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil {
				allFiles = append(allFiles, pattern)
			}
			continue
		}
		allFiles = append(allFiles, matches...)
	}
	if len(allFiles) == 0 {
		return fmt.Errorf("no files found to import")
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	// Confirm the target account exists before touching any file.
	if _, err := store.GetAccount(ctx, accountID); err != nil {
		return err
	}

	parser := ofx.NewParser()
	var pending []model.Transaction
	seen := make(map[string]bool)

	for _, filePath := range allFiles {
		f, err := os.Open(filePath)
		if err != nil {
			common.LogError(err, "Failed to open file", common.Fields{"file": filePath})
			continue
		}

		transactions, err := parser.ParseFile(f)
		_ = f.Close()
		if err != nil {
			common.LogError(err, "Failed to parse OFX file", common.Fields{"file": filePath})
			continue
		}

		for _, txn := range transactions {
			if txn.ExternalID != "" {
				if seen[txn.ExternalID] {
					continue
				}
				seen[txn.ExternalID] = true
			}
			txn.UserID = config.UserID()
			txn.AccountID = accountID
			txn.Currency = currencyOrDefault("")
			pending = append(pending, txn)
		}
	}

	if len(pending) == 0 {
		fmt.Println(cli.FormatInfo("No transactions found in the given files."))
		return nil
	}

	if dryRun {
		fmt.Println(cli.FormatInfo(fmt.Sprintf("Dry run: %d transactions would be imported from %d files.",
			len(pending), len(allFiles))))
		return nil
	}

	bar := progressbar.Default(int64(len(pending)), "importing")
	mutator := ledger.NewMutator(store)

	imported, skipped := 0, 0
	for i := range pending {
		txn := pending[i]

		// Skip lines already imported in a previous run.
		if txn.ExternalID != "" {
			if _, err := store.GetTransactionByExternalID(ctx, txn.ExternalID); err == nil {
				skipped++
				_ = bar.Add(1)
				continue
			} else if !errors.Is(err, common.ErrTransactionNotFound) {
				return err
			}
		}

		err := common.WithRetry(ctx, func() error {
			_, createErr := mutator.Create(ctx, &txn)
			return createErr
		}, retryOptions())
		if err != nil {
			return fmt.Errorf("import failed at %q: %w", txn.Description, err)
		}
		imported++
		_ = bar.Add(1)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d transactions (%d duplicates skipped)", imported, skipped)))
	return nil
}
