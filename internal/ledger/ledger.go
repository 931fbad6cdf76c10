// Package ledger submits health record transactions to a Hyperledger
// Fabric network and reports failures without retrying them.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Stage identifies the transaction phase that produced an error.
type Stage string

const (
	StageEndorse Stage = "endorse"
	StageSubmit  Stage = "submit"
	StageCommit  Stage = "commit"
)

// Submitter is the ledger client used by the record service. Submit
// invokes a transaction and waits for commit; Evaluate runs a query
// without writing to the ledger.
type Submitter interface {
	Submit(ctx context.Context, name string, args ...string) (payload []byte, txID string, err error)
	Evaluate(ctx context.Context, name string, args ...string) ([]byte, error)
}

// TransactionError reports a failed ledger transaction. The caller
// decides whether to resubmit; nothing retries automatically.
type TransactionError struct {
	Stage Stage
	TxID  string
	Err   error
}

func (e *TransactionError) Error() string {
	if e.TxID == "" {
		return fmt.Sprintf("ledger %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("ledger %s (tx %s): %v", e.Stage, e.TxID, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// Unavailable reports whether the failure looks like a connectivity
// problem with the gateway peer rather than a rejected transaction.
func (e *TransactionError) Unavailable() bool {
	for err := e.Err; err != nil; err = errors.Unwrap(err) {
		s, ok := status.FromError(err)
		if !ok {
			continue
		}
		switch s.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
			return true
		}
		return false
	}
	return false
}

// AsTransactionError unwraps err to a *TransactionError if one is present.
func AsTransactionError(err error) (*TransactionError, bool) {
	var txErr *TransactionError
	if errors.As(err, &txErr) {
		return txErr, true
	}
	return nil, false
}
