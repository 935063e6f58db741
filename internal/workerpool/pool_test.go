package workerpool

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestPoolSingleWorkerKeepsOrder(t *testing.T) {
	pool := New("ordered", 1, 16, nil)

	var mu sync.Mutex
	var got []int
	for i := 0; i < 100; i++ {
		i := i
		if !pool.Submit(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}) {
			t.Fatalf("Submit %d failed", i)
		}
	}
	pool.Shutdown()

	if len(got) != 100 {
		t.Fatalf("期望执行 100 个任务, 实际 = %d", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("期望顺序执行, 位置 %d 实际 = %d", i, v)
		}
	}
}

func TestPoolPanicRecover(t *testing.T) {
	pool := New("panic", 2, 4, nil)

	var executed atomic.Int32
	pool.Submit(func() { panic("boom") })
	pool.Submit(func() { executed.Add(1) })
	pool.Shutdown()

	if executed.Load() != 1 {
		t.Errorf("panic 之后的任务应继续执行, 实际 = %d", executed.Load())
	}
}

func TestPoolSubmitAfterShutdown(t *testing.T) {
	pool := New("closed", 1, 1, nil)
	pool.Shutdown()
	pool.Shutdown()

	if pool.Submit(func() {}) {
		t.Error("关闭后 Submit 应返回 false")
	}
	if pool.TrySubmit(func() {}) {
		t.Error("关闭后 TrySubmit 应返回 false")
	}
}

func TestPoolTrySubmitFull(t *testing.T) {
	pool := New("full", 1, 1, nil)
	defer pool.Shutdown()

	block := make(chan struct{})
	started := make(chan struct{})
	pool.Submit(func() {
		close(started)
		<-block
	})
	<-started

	if !pool.TrySubmit(func() {}) {
		t.Fatal("队列有空位时 TrySubmit 应成功")
	}
	if pool.TrySubmit(func() {}) {
		t.Error("队列已满时 TrySubmit 应失败")
	}
	close(block)
}
