package domain

import "testing"

func TestCanTransitionTxn(t *testing.T) {
	t.Parallel()
	allowed := [][2]string{
		{TxnPending, TxnAvailable},
		{TxnPending, TxnFailed},
		{TxnAvailable, TxnPaidOut},
		{TxnAvailable, TxnFailed},
	}
	for _, pair := range allowed {
		if !CanTransitionTxn(pair[0], pair[1]) {
			t.Fatalf("%s -> %s must be allowed", pair[0], pair[1])
		}
	}

	denied := [][2]string{
		{TxnPending, TxnPaidOut},
		{TxnAvailable, TxnPending},
		{TxnPaidOut, TxnAvailable},
		{TxnPaidOut, TxnFailed},
		{TxnFailed, TxnAvailable},
		{TxnFailed, TxnPaidOut},
	}
	for _, pair := range denied {
		if CanTransitionTxn(pair[0], pair[1]) {
			t.Fatalf("%s -> %s must be denied", pair[0], pair[1])
		}
	}
}

func TestNormalizeCadence(t *testing.T) {
	t.Parallel()
	if got := NormalizeCadence("monthly"); got != CadenceMonthly {
		t.Fatalf("expected monthly, got %q", got)
	}
	for _, raw := range []string{"", "weekly", "daily", "MONTHLY"} {
		if got := NormalizeCadence(raw); got != CadenceWeekly {
			t.Fatalf("cadence %q: expected weekly default, got %q", raw, got)
		}
	}
}
