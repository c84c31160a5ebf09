package idgen

import (
	"strings"
	"sync"
	"testing"
)

func TestNewSnowflakeRejectsBadWorker(t *testing.T) {
	if _, err := NewSnowflake(-1); err == nil {
		t.Error("negative worker id should fail")
	}
	if _, err := NewSnowflake(maxWorkerID + 1); err == nil {
		t.Error("worker id above max should fail")
	}
}

func TestGenerateUniqueAndIncreasing(t *testing.T) {
	s, err := NewSnowflake(7)
	if err != nil {
		t.Fatal(err)
	}
	prev := int64(-1)
	for i := 0; i < 10000; i++ {
		id := s.Generate()
		if id <= prev {
			t.Fatalf("id %d not greater than previous %d", id, prev)
		}
		if got := (id >> workerIDShift) & maxWorkerID; got != 7 {
			t.Fatalf("worker bits = %d, want 7", got)
		}
		prev = id
	}
}

func TestGenerateConcurrent(t *testing.T) {
	s, _ := NewSnowflake(1)
	const workers, per = 8, 2000

	var mu sync.Mutex
	seen := make(map[int64]struct{}, workers*per)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int64, 0, per)
			for i := 0; i < per; i++ {
				local = append(local, s.Generate())
			}
			mu.Lock()
			for _, id := range local {
				seen[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != workers*per {
		t.Errorf("got %d unique ids, want %d", len(seen), workers*per)
	}
}

func TestGenerateTransactionNo(t *testing.T) {
	a, b := GenerateTransactionNo(), GenerateTransactionNo()
	if !strings.HasPrefix(a, "TXN") {
		t.Errorf("missing prefix: %s", a)
	}
	if a == b {
		t.Errorf("duplicate transaction numbers %s", a)
	}
}
