package ledger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"financas/internal/core"
)

// DecodeTransactions reads a JSON array of transactions, the same shape the
// API returns. Rows are not validated.
func DecodeTransactions(r io.Reader) ([]core.Transaction, error) {
	var txs []core.Transaction
	if err := json.NewDecoder(r).Decode(&txs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	return txs, nil
}

// ReadTransactionsFile opens path and decodes it with DecodeTransactions.
func ReadTransactionsFile(path string) ([]core.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeTransactions(f)
}
