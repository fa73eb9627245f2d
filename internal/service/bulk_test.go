package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/chatwire/chatwire/internal/messenger"
)

func newTestBulk(t *testing.T, driver *messenger.Loopback) *BulkService {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewBulkService(driver, 2*time.Second, 100, logger)
}

func TestSendBulkPartialFailure(t *testing.T) {
	driver := messenger.NewLoopback(nil)
	driver.FailFor["+222"] = "recipient rejected"
	svc := newTestBulk(t, driver)

	result, err := svc.SendBulk(context.Background(), []string{"+111", "+222", "+333"}, "hello", 0)
	if err != nil {
		t.Fatalf("SendBulk: %v", err)
	}

	if result.Successful != 2 || result.Failed != 1 {
		t.Errorf("aggregate: got %d/%d, want 2 successful, 1 failed", result.Successful, result.Failed)
	}
	if len(result.Outcomes) != 3 {
		t.Fatalf("outcomes: got %d, want 3", len(result.Outcomes))
	}
	for i, want := range []bool{true, false, true} {
		if result.Outcomes[i].Success != want {
			t.Errorf("outcome %d: success = %v, want %v", i, result.Outcomes[i].Success, want)
		}
	}
	if !strings.Contains(result.Outcomes[1].Error, "recipient rejected") {
		t.Errorf("outcome 1 error: got %q", result.Outcomes[1].Error)
	}

	// The failed recipient must not interrupt delivery to later ones.
	sent := driver.Sent()
	if len(sent) != 2 {
		t.Fatalf("driver accepted %d messages, want 2", len(sent))
	}
	if sent[0].To != "+111" || sent[1].To != "+333" {
		t.Errorf("delivery order: got %q, %q", sent[0].To, sent[1].To)
	}
}

func TestSendBulkDelayBetweenSendsOnly(t *testing.T) {
	driver := messenger.NewLoopback(nil)
	svc := newTestBulk(t, driver)

	var slept []time.Duration
	svc.sleep = func(d time.Duration) { slept = append(slept, d) }

	delay := 50 * time.Millisecond
	if _, err := svc.SendBulk(context.Background(), []string{"a", "b", "c"}, "hi", delay); err != nil {
		t.Fatalf("SendBulk: %v", err)
	}

	// Three recipients means two gaps: no wait before the first send and
	// none after the last.
	if len(slept) != 2 {
		t.Fatalf("sleeps: got %d, want 2", len(slept))
	}
	for i, d := range slept {
		if d != delay {
			t.Errorf("sleep %d: got %v, want %v", i, d, delay)
		}
	}
}

func TestSendBulkNegativeDelayUsesDefault(t *testing.T) {
	driver := messenger.NewLoopback(nil)
	svc := newTestBulk(t, driver)

	var slept []time.Duration
	svc.sleep = func(d time.Duration) { slept = append(slept, d) }

	if _, err := svc.SendBulk(context.Background(), []string{"a", "b"}, "hi", -1); err != nil {
		t.Fatalf("SendBulk: %v", err)
	}
	if len(slept) != 1 || slept[0] != 2*time.Second {
		t.Errorf("expected one configured-default sleep, got %v", slept)
	}
}

func TestSendBulkZeroDelayNeverSleeps(t *testing.T) {
	driver := messenger.NewLoopback(nil)
	svc := newTestBulk(t, driver)

	svc.sleep = func(time.Duration) { t.Error("sleep called with zero delay") }
	if _, err := svc.SendBulk(context.Background(), []string{"a", "b", "c"}, "hi", 0); err != nil {
		t.Fatalf("SendBulk: %v", err)
	}
}

func TestSendBulkValidation(t *testing.T) {
	driver := messenger.NewLoopback(nil)
	svc := newTestBulk(t, driver)
	ctx := context.Background()

	if _, err := svc.SendBulk(ctx, nil, "hi", 0); !errors.Is(err, ErrValidation) {
		t.Errorf("empty recipients: got %v, want ErrValidation", err)
	}
	if _, err := svc.SendBulk(ctx, []string{"a"}, "", 0); !errors.Is(err, ErrValidation) {
		t.Errorf("empty message: got %v, want ErrValidation", err)
	}

	tooMany := make([]string, 101)
	for i := range tooMany {
		tooMany[i] = "r"
	}
	if _, err := svc.SendBulk(ctx, tooMany, "hi", 0); !errors.Is(err, ErrValidation) {
		t.Errorf("over batch cap: got %v, want ErrValidation", err)
	}
	if len(driver.Sent()) != 0 {
		t.Error("validation failures must not reach the driver")
	}
}
