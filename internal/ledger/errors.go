package ledger

import (
	"errors"
	"fmt"
)

// SubmissionError means the transaction never reached the ledger. The
// operation is safe to retry unchanged.
type SubmissionError struct {
	Op  string
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit %s: %v", e.Op, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// ConfirmationTimeoutError means the transaction was accepted but its
// outcome is unknown. Callers must poll for the actual outcome before
// retrying; blind resubmission risks a double spend.
type ConfirmationTimeoutError struct {
	Op           string
	TxHash       string
	SubmissionID string
}

func (e *ConfirmationTimeoutError) Error() string {
	return fmt.Sprintf("confirm %s: outcome unknown for tx %s (submission %s)", e.Op, e.TxHash, e.SubmissionID)
}

// RevertedError means the ledger confirmed and rejected the operation.
// Terminal for this attempt; retry only with corrected parameters.
type RevertedError struct {
	Op     string
	TxHash string
	Reason string
}

func (e *RevertedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s reverted (tx %s)", e.Op, e.TxHash)
	}
	return fmt.Sprintf("%s reverted (tx %s): %s", e.Op, e.TxHash, e.Reason)
}

// IsRetryable reports whether err is safe to retry without first
// checking the ledger for the previous attempt's outcome.
func IsRetryable(err error) bool {
	var sub *SubmissionError
	return errors.As(err, &sub)
}

// OutcomeUnknown reports whether the previous attempt may still land.
func OutcomeUnknown(err error) bool {
	var timeout *ConfirmationTimeoutError
	return errors.As(err, &timeout)
}

// RevertReason extracts the ledger's reason string, if err is a revert.
func RevertReason(err error) (string, bool) {
	var reverted *RevertedError
	if errors.As(err, &reverted) {
		return reverted.Reason, true
	}
	return "", false
}
