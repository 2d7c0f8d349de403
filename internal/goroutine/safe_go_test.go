package goroutine

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestSafeGo_RecoversPanic(t *testing.T) {
	log, hook := test.NewNullLogger()
	rh := NewRecoveryHandler(logrus.NewEntry(log))

	var done atomic.Int32
	rh.SafeGo(func() { panic("boom") })
	rh.SafeGo(func() { done.Add(1) })
	rh.Wait()

	if done.Load() != 1 {
		t.Fatalf("second task did not run")
	}
	if len(hook.Entries) != 1 || hook.LastEntry().Level != logrus.ErrorLevel {
		t.Fatalf("expected one error entry, got %d", len(hook.Entries))
	}
}

func TestSafeGoWithContext(t *testing.T) {
	log, hook := test.NewNullLogger()
	rh := NewRecoveryHandler(logrus.NewEntry(log))

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "order")
	var got atomic.Value
	rh.SafeGoWithContext(ctx, func(ctx context.Context) {
		got.Store(ctx.Value(key{}))
		panic("sink")
	})
	rh.Wait()
	if got.Load() != "order" {
		t.Fatalf("context not passed")
	}
	if len(hook.Entries) != 1 {
		t.Fatalf("panic not logged")
	}
}
