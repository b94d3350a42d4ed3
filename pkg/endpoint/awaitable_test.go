package endpoint

import (
	"context"
	"testing"
	"time"
)

func TestAwaitableVarWaitForAlreadyThere(t *testing.T) {
	v := NewAwaitableVar(5)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := v.WaitFor(ctx, 5); err != nil {
		t.Fatalf("WaitFor: %v", err)
	}
}

func TestAwaitableVarWaitForWakesOnSet(t *testing.T) {
	v := NewAwaitableVar(0)
	done := make(chan error, 1)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		done <- v.WaitFor(ctx, 42)
	}()

	time.Sleep(20 * time.Millisecond)
	v.Set(7)  // not the target, waiter keeps blocking
	v.Set(42) // target, waiter should wake

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("WaitFor returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitFor did not wake up after target value was set")
	}
}

func TestAwaitableVarWaitForContextCancel(t *testing.T) {
	v := NewAwaitableVar(0)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- v.WaitFor(ctx, 1) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected context cancellation error")
		}
	case <-time.After(time.Second):
		t.Fatal("WaitFor did not return after cancel")
	}
}

func TestFlagWaitClear(t *testing.T) {
	f := NewFlag(true)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f.WaitClear(ctx) }()

	time.Sleep(10 * time.Millisecond)
	f.Clear()

	if err := <-done; err != nil {
		t.Fatalf("WaitClear: %v", err)
	}
	if f.IsSet() {
		t.Fatal("flag should be clear")
	}
	if !f.IsClear() {
		t.Fatal("IsClear should report true once the flag is clear")
	}
}
