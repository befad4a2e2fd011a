package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestGetOrInsertRunsProducerOnce(t *testing.T) {
	c := New[string, int]()
	var calls int32

	producer := func() (int, error) {
		atomic.AddInt32(&calls, 1)
		return 42, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrInsert("key", producer)
			if err != nil || v != 42 {
				t.Errorf("unexpected result: v=%d err=%v", v, err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected producer to run exactly once, ran %d times", got)
	}
}

func TestGetOrInsertPropagatesError(t *testing.T) {
	c := New[string, int]()
	wantErr := fmt.Errorf("boom")

	_, err := c.GetOrInsert("key", func() (int, error) {
		return 0, wantErr
	})
	if err != wantErr {
		t.Fatalf("expected error %v, got %v", wantErr, err)
	}
}

func TestRangeDoesNotYieldDuplicateKeys(t *testing.T) {
	c := New[int, int]()
	for i := 0; i < 20; i++ {
		c.GetOrInsert(i, func() (int, error) { return i, nil })
	}

	seen := map[int]bool{}
	c.Range(func(key int, value int) bool {
		if seen[key] {
			t.Fatalf("key %d yielded twice", key)
		}
		seen[key] = true
		return true
	})

	if len(seen) != 20 {
		t.Errorf("expected 20 distinct keys, got %d", len(seen))
	}
}

func TestCount(t *testing.T) {
	c := New[string, int]()
	c.GetOrInsert("a", func() (int, error) { return 1, nil })
	c.GetOrInsert("b", func() (int, error) { return 2, nil })
	if c.Count() != 2 {
		t.Errorf("expected count 2, got %d", c.Count())
	}
}
