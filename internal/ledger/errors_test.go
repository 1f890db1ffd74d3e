package ledger

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsRetryable(t *testing.T) {
	sub := &SubmissionError{Op: "withdraw", Err: errors.New("connection refused")}
	if !IsRetryable(sub) {
		t.Fatal("submission failures are retryable")
	}
	if !IsRetryable(fmt.Errorf("withdraw 3: %w", sub)) {
		t.Fatal("wrapping must not hide retryability")
	}
	if IsRetryable(&ConfirmationTimeoutError{Op: "withdraw", TxHash: "0xabc"}) {
		t.Fatal("unknown outcome must never be blindly retried")
	}
	if IsRetryable(&RevertedError{Op: "withdraw", TxHash: "0xabc"}) {
		t.Fatal("reverts are terminal for the attempt")
	}
}

func TestOutcomeUnknown(t *testing.T) {
	timeout := &ConfirmationTimeoutError{Op: "deposit", TxHash: "0xdef", SubmissionID: "sub-1"}
	if !OutcomeUnknown(timeout) {
		t.Fatal("confirmation timeout means outcome unknown")
	}
	if OutcomeUnknown(&SubmissionError{Op: "deposit", Err: errors.New("x")}) {
		t.Fatal("a rejected submission has a known outcome")
	}
}

func TestRevertReason(t *testing.T) {
	reverted := &RevertedError{Op: "claimFaucet", TxHash: "0x1", Reason: "FaucetCooldownNotElapsed"}
	reason, ok := RevertReason(fmt.Errorf("claim: %w", reverted))
	if !ok || reason != "FaucetCooldownNotElapsed" {
		t.Fatalf("reason = %q ok=%v", reason, ok)
	}
	if _, ok := RevertReason(errors.New("plain")); ok {
		t.Fatal("plain errors carry no revert reason")
	}
}
