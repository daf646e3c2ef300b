package recency

import (
	"sync"
	"testing"
)

func TestCacheEmpty(t *testing.T) {
	c := NewCache()
	if _, ok := c.Last(1); ok {
		t.Error("Empty cache should report no last joke")
	}
}

func TestRememberAndOverwrite(t *testing.T) {
	c := NewCache()
	c.Remember(1, 10)
	c.Remember(2, 20)

	if id, ok := c.Last(1); !ok || id != 10 {
		t.Errorf("Last(1) = (%d, %v), want (10, true)", id, ok)
	}
	if id, ok := c.Last(2); !ok || id != 20 {
		t.Errorf("Last(2) = (%d, %v), want (20, true)", id, ok)
	}

	c.Remember(1, 11)
	if id, _ := c.Last(1); id != 11 {
		t.Errorf("Last(1) after overwrite = %d, want 11", id)
	}
}

func TestForget(t *testing.T) {
	c := NewCache()
	c.Remember(1, 10)
	c.Forget(1)
	if _, ok := c.Last(1); ok {
		t.Error("Forgotten chat should have no last joke")
	}
	c.Forget(1)
}

func TestConcurrentAccess(t *testing.T) {
	c := NewCache()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(chatID int64) {
			defer wg.Done()
			for j := int64(0); j < 100; j++ {
				c.Remember(chatID, j)
				c.Last(chatID)
			}
		}(int64(i))
	}
	wg.Wait()
}
