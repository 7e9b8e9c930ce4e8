package safego

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestGo_RunsFn(t *testing.T) {
	var ran atomic.Bool
	done := make(chan struct{})
	Go(func() {
		ran.Store(true)
		close(done)
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine never ran")
	}
	if !ran.Load() {
		t.Fatal("expected fn to run")
	}
}

func TestGo_RecoversPanic(t *testing.T) {
	var recovered atomic.Value
	done := make(chan struct{})
	Go(func() {
		defer close(done)
		panic("boom")
	}, WithRecovery(func(r interface{}) {
		recovered.Store(r)
	}))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine never ran")
	}
	time.Sleep(10 * time.Millisecond)
	if recovered.Load() != "boom" {
		t.Fatalf("expected panic to be recovered, got %v", recovered.Load())
	}
}
