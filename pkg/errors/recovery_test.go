package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// fitOnDegenerate stands in for a classifier Fit that panics on a
// pathological resample, the situation trial runners guard against.
func fitOnDegenerate() error {
	panic("singular split: no samples on one side")
}

func TestSafeExecute_TrialPanic(t *testing.T) {
	err := SafeExecute("permutation trial 3: Fit", fitOnDegenerate)
	if err == nil {
		t.Fatal("expected error from panicking fit, got nil")
	}

	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("expected PanicError, got %T", err)
	}
	if panicErr.Operation != "permutation trial 3: Fit" {
		t.Errorf("operation = %q", panicErr.Operation)
	}
	if panicErr.PanicValue != "singular split: no samples on one side" {
		t.Errorf("panic value = %v", panicErr.PanicValue)
	}
	if panicErr.StackTrace == "" {
		t.Error("expected stack trace to be captured")
	}
}

func TestSafeExecute_NoPanic(t *testing.T) {
	if err := SafeExecute("trial", func() error { return nil }); err != nil {
		t.Fatalf("expected nil for clean trial, got %v", err)
	}
}

func TestSafeExecute_ErrorPassthrough(t *testing.T) {
	// A fit that fails normally must come back unchanged, not wrapped
	// as a panic.
	fitErr := NewValueError("Fit", "need at least 2 classes")
	err := SafeExecute("trial", func() error { return fitErr })
	if err != fitErr {
		t.Fatalf("expected the fit error unchanged, got %v", err)
	}
}

func TestRecover_WithoutPanic(t *testing.T) {
	run := func() (err error) {
		defer Recover(&err, "CrossValScore")
		return nil
	}
	if err := run(); err != nil {
		t.Fatalf("expected nil without panic, got %v", err)
	}
}

func TestRecover_PanicAfterError(t *testing.T) {
	// When a fold already produced an error before the panic, both must
	// survive in the result.
	foldErr := fmt.Errorf("fold 2: empty test set")
	run := func() (err error) {
		defer Recover(&err, "CrossValScore")
		err = foldErr
		panic("score aggregation on nil slice")
	}

	err := run()
	if err == nil {
		t.Fatal("expected combined error, got nil")
	}
	msg := err.Error()
	if !strings.Contains(msg, "panic in CrossValScore") {
		t.Errorf("missing panic context: %s", msg)
	}
	if !strings.Contains(msg, "fold 2: empty test set") {
		t.Errorf("missing pre-panic error: %s", msg)
	}
	if !errors.Is(err, foldErr) {
		t.Error("pre-panic error should still match with errors.Is")
	}
}

func TestPanicError_Formatting(t *testing.T) {
	panicErr := NewPanicError("RandomForestClassifier.Fit", "index out of range")

	if got, want := panicErr.Error(), "panic in RandomForestClassifier.Fit: index out of range"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !strings.Contains(panicErr.String(), "Stack trace:") {
		t.Error("String() should include the stack trace")
	}
	if panicErr.Unwrap() != nil {
		t.Error("PanicError wraps nothing")
	}
}

func BenchmarkSafeExecute_NoPanic(b *testing.B) {
	for i := 0; i < b.N; i++ {
		SafeExecute("trial", func() error { return nil })
	}
}
