// Package ofx parses OFX/QFX bank statement files into ledger
// transactions ready for the balance mutator.
package ofx

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/okane-app/okane/internal/model"
)

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// preprocess fixes common formatting issues in real-world OFX exports:
// leading whitespace before the header, mixed-case SEVERITY values, and
// SGML-style tags missing their closing bracket.
func (p *Parser) preprocess(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// ParseFile parses an OFX/QFX file and returns the transactions it
// contains, mapped to ledger types: OFX debits become expenses, credits
// become income, both with non-negative amounts and the bank's FITID
// carried as ExternalID for deduplication. The returned transactions
// have no account id; the importer assigns the target ledger account.
func (p *Parser) ParseFile(reader io.Reader) ([]model.Transaction, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocess(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var transactions []model.Transaction
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			if stmt.BankTranList == nil {
				continue
			}
			for _, ofxTxn := range stmt.BankTranList.Transactions {
				transactions = append(transactions, p.convert(ofxTxn))
			}
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			if stmt.BankTranList == nil {
				continue
			}
			for _, ofxTxn := range stmt.BankTranList.Transactions {
				transactions = append(transactions, p.convert(ofxTxn))
			}
		}
	}

	slog.Info("Parsed OFX file",
		"total_transactions", len(transactions),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return transactions, nil
}

// convert maps one OFX transaction to a ledger transaction. OFX signs
// amounts from the bank's perspective: negative is money leaving the
// account.
func (p *Parser) convert(ofxTxn ofxgo.Transaction) model.Transaction {
	amount := decimal.NewFromBigRat(&ofxTxn.TrnAmt.Rat, 2)

	txnType := model.TypeIncome
	if amount.IsNegative() {
		txnType = model.TypeExpense
		amount = amount.Neg()
	}

	return model.Transaction{
		ExternalID:  string(ofxTxn.FiTID),
		Date:        ofxTxn.DtPosted.Time,
		Description: p.description(ofxTxn),
		Amount:      amount,
		Type:        txnType,
		Status:      model.StatusCompleted,
	}
}

// description picks the cleanest label available for a statement line.
func (p *Parser) description(ofxTxn ofxgo.Transaction) string {
	if ofxTxn.Payee != nil && ofxTxn.Payee.Name != "" {
		return strings.TrimSpace(string(ofxTxn.Payee.Name))
	}
	name := strings.TrimSpace(string(ofxTxn.Name))
	if name == "" {
		name = strings.TrimSpace(string(ofxTxn.Memo))
	}
	return name
}
