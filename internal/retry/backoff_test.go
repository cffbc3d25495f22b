package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	mqerr "mqtls/internal/errors"
)

func TestBackoff_SuccessAfterRetries(t *testing.T) {
	b := &Backoff{
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   1.5,
		MaxAttempts:  10,
	}
	calls := 0

	err := b.Do(context.Background(), func(attempt int) error {
		calls++
		if attempt < 3 {
			return fmt.Errorf("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestBackoff_ImmediateSuccess(t *testing.T) {
	b := DefaultBackoff()

	err := b.Do(context.Background(), func(_ int) error {
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBackoff_PermanentError(t *testing.T) {
	b := DefaultBackoff()
	calls := 0

	err := b.Do(context.Background(), func(_ int) error {
		calls++
		return Permanent(fmt.Errorf("fatal"))
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "fatal" {
		t.Errorf("expected 'fatal', got %q", err.Error())
	}
	if calls != 1 {
		t.Errorf("permanent error should stop after 1 call, got %d", calls)
	}
}

func TestBackoff_MaxAttempts(t *testing.T) {
	b := &Backoff{
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   1.5,
		MaxAttempts:  3,
	}
	calls := 0

	err := b.Do(context.Background(), func(_ int) error {
		calls++
		return fmt.Errorf("always fails")
	})

	if err == nil {
		t.Fatal("expected error after max attempts")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestBackoff_ContextCancelled(t *testing.T) {
	b := &Backoff{
		InitialDelay: 5 * time.Second,
		MaxAttempts:  100,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := b.Do(ctx, func(_ int) error {
		return fmt.Errorf("fail")
	})

	if err == nil {
		t.Fatal("expected context cancellation error")
	}
}

func TestPermanent_Nil(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"permanent", Permanent(fmt.Errorf("x")), true},
		{"not permanent", fmt.Errorf("x"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPermanent(tt.err); got != tt.want {
				t.Errorf("IsPermanent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJitter_Range(t *testing.T) {
	d := 100 * time.Millisecond
	for i := 0; i < 100; i++ {
		j := addJitter(d)
		lower := time.Duration(float64(d) * 0.74)
		upper := time.Duration(float64(d) * 1.26)
		if j < lower || j > upper {
			t.Errorf("jitter %v out of expected range [%v, %v]", j, lower, upper)
		}
	}
}

func TestBackoff_ZeroConfig(t *testing.T) {
	// Zero-value Backoff should use sensible defaults internally.
	b := &Backoff{MaxAttempts: 2}
	calls := 0

	start := time.Now()
	_ = b.Do(context.Background(), func(_ int) error {
		calls++
		return fmt.Errorf("fail")
	})
	elapsed := time.Since(start)

	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
	// Should have waited ~1s (the default initial delay).
	if elapsed < 500*time.Millisecond {
		t.Errorf("expected at least 500ms delay, got %v", elapsed)
	}
}

func TestBackoff_SingleAttemptKeepsError(t *testing.T) {
	b := &Backoff{MaxAttempts: 1}
	want := fmt.Errorf("refused")

	err := b.Do(context.Background(), func(_ int) error { return want })
	if err != want {
		t.Errorf("got %v, want the original error", err)
	}
}

func TestBackoff_OnRetry(t *testing.T) {
	var seen []int
	b := &Backoff{
		InitialDelay: time.Millisecond,
		MaxAttempts:  3,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			seen = append(seen, attempt)
			if err == nil || wait <= 0 {
				t.Errorf("attempt %d: err=%v wait=%v", attempt, err, wait)
			}
		},
	}
	_ = b.Do(context.Background(), func(_ int) error { return fmt.Errorf("fail") })

	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("OnRetry attempts = %v, want [1 2]", seen)
	}
}

func TestClassify(t *testing.T) {
	refused := mqerr.NewTLS(mqerr.Io, errors.New("connection refused"))
	badCA := mqerr.NoValidCert(nil)
	badName := mqerr.NewTLS(mqerr.ServerNameInvalid, errors.New("bad label"))
	rejected := mqerr.NewTLS(mqerr.HandshakeProtocol, errors.New("unknown authority"))
	bastionAuth := mqerr.NewTLS(mqerr.Io, mqerr.WrapSSH("handshake", "jump", 22, fmt.Errorf("%w: no supported methods", mqerr.ErrAuthFailed)))

	tests := []struct {
		name      string
		err       error
		permanent bool
	}{
		{"nil", nil, false},
		{"io", refused, false},
		{"no valid cert", badCA, true},
		{"server name", badName, true},
		{"handshake", rejected, true},
		{"plain", errors.New("x"), true},
		{"bastion auth", bastionAuth, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if IsPermanent(got) != tt.permanent {
				t.Errorf("IsPermanent(Classify(%v)) = %v, want %v", tt.err, !tt.permanent, tt.permanent)
			}
			if tt.err != nil && !errors.Is(got, tt.err) {
				t.Errorf("Classify lost the cause: %v", got)
			}
		})
	}
}

func TestBackoff_StopsOnConfigurationError(t *testing.T) {
	b := &Backoff{InitialDelay: time.Millisecond, MaxAttempts: 5}
	calls := 0

	err := b.Do(context.Background(), func(_ int) error {
		calls++
		return Classify(mqerr.NoValidCert(nil))
	})
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if k, ok := mqerr.KindOf(err); !ok || k != mqerr.NoValidCertInChain {
		t.Errorf("kind = %v, %v", k, ok)
	}
}

func TestBackoff_RetriesIo(t *testing.T) {
	b := &Backoff{InitialDelay: time.Millisecond, MaxAttempts: 3}
	calls := 0

	err := b.Do(context.Background(), func(_ int) error {
		calls++
		return Classify(mqerr.NewTLS(mqerr.Io, errors.New("reset")))
	})
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if !mqerr.Is(err, mqerr.ErrIo) {
		t.Errorf("expected Io error, got %v", err)
	}
}
