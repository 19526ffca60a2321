package pipeline

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunnerExecutesAllTasks(t *testing.T) {
	r := NewPoolRunner(3)
	var count int64
	for i := 0; i < 100; i++ {
		r.Submit(func() { atomic.AddInt64(&count, 1) })
	}
	r.Close()
	if got := atomic.LoadInt64(&count); got != 100 {
		t.Fatalf("executed %d tasks, want 100", got)
	}
}

func TestPoolRunnerSubmitDoesNotBlock(t *testing.T) {
	r := NewPoolRunner(1)
	defer r.Close()

	release := make(chan struct{})
	var wg sync.WaitGroup
	// Occupy the single worker and overfill the queue.
	for i := 0; i < 400; i++ {
		wg.Add(1)
		r.Submit(func() {
			defer wg.Done()
			<-release
		})
	}

	done := make(chan struct{})
	go func() {
		r.Submit(func() {})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Submit blocked on a saturated queue")
	}
	close(release)
	wg.Wait()
}

func TestPoolRunnerIgnoresSubmitAfterClose(t *testing.T) {
	r := NewPoolRunner(1)
	r.Close()
	// Must not panic on a closed channel.
	r.Submit(func() { t.Fatalf("task ran after Close") })
}

func TestSyncRunnerRunsInline(t *testing.T) {
	ran := false
	SyncRunner{}.Submit(func() { ran = true })
	if !ran {
		t.Fatalf("SyncRunner did not execute inline")
	}
}
