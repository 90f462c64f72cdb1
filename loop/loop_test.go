package loop

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestPostOrder(t *testing.T) {
	l := New()
	go l.Run()
	defer l.Stop()

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}

	l.Call(func() {})
	if len(got) != 100 {
		t.Fatalf("expected 100 tasks, got %d", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("task %d ran out of order (%d)", i, v)
		}
	}
}

func TestPostFromTask(t *testing.T) {
	l := New()
	go l.Run()
	defer l.Stop()

	done := make(chan struct{})
	l.Post(func() {
		l.Post(func() { close(done) })
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("nested post never ran")
	}
}

func TestTimeout(t *testing.T) {
	l := New()
	go l.Run()
	defer l.Stop()

	fired := make(chan struct{})
	l.AddTimeout(5*time.Millisecond, func() bool {
		close(fired)
		return false
	})

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timeout never fired")
	}
}

func TestTimeoutRearm(t *testing.T) {
	l := New()
	go l.Run()
	defer l.Stop()

	var n int32
	done := make(chan struct{})
	l.AddTimeout(2*time.Millisecond, func() bool {
		if atomic.AddInt32(&n, 1) == 3 {
			close(done)
			return false
		}
		return true
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected 3 firings, got %d", atomic.LoadInt32(&n))
	}
}

func TestRemoveTimeout(t *testing.T) {
	l := New()
	go l.Run()
	defer l.Stop()

	var fired int32
	id := l.AddTimeout(20*time.Millisecond, func() bool {
		atomic.StoreInt32(&fired, 1)
		return false
	})
	if !l.RemoveTimeout(id) {
		t.Fatal("expected timeout to be pending")
	}
	if l.RemoveTimeout(id) {
		t.Fatal("expected second removal to report false")
	}

	time.Sleep(50 * time.Millisecond)
	l.Call(func() {})
	if atomic.LoadInt32(&fired) != 0 {
		t.Fatal("removed timeout fired")
	}
}

func TestCallAfterStop(t *testing.T) {
	l := New()
	l.Stop()
	if l.Call(func() {}) {
		t.Fatal("expected Call to fail on a stopped loop")
	}
}
