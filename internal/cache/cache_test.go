package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestCache_Basic(t *testing.T) {
	c := New[string]()
	defer c.Close()

	c.Set("pipeline", "4")

	value, exists := c.Get("pipeline")
	if !exists {
		t.Fatal("Expected pipeline to exist")
	}
	if value != "4" {
		t.Errorf("Expected '4', got %q", value)
	}

	if _, exists := c.Get("nonexistent"); exists {
		t.Error("Expected nonexistent key to not exist")
	}

	c.Delete("pipeline")
	if _, exists := c.Get("pipeline"); exists {
		t.Error("Expected pipeline to be deleted")
	}
}

func TestCache_Expiry(t *testing.T) {
	c := NewWithConfig[int](10, time.Hour, 0)
	defer c.Close()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.SetWithExpiry("stats", 7, time.Minute)
	if v, ok := c.Get("stats"); !ok || v != 7 {
		t.Fatalf("Expected stats=7 before expiry, got %v %v", v, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("stats"); ok {
		t.Error("Expected stats to be expired")
	}
	if c.Size() != 0 {
		t.Errorf("Expected expired item to be removed on read, size=%d", c.Size())
	}
}

func TestCache_SizeLimitEvictsOldest(t *testing.T) {
	c := NewWithConfig[int](3, time.Hour, 0)
	defer c.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
		now = now.Add(time.Second)
	}
	c.Set("k3", 3)

	if c.Size() != 3 {
		t.Errorf("Expected size 3, got %d", c.Size())
	}
	if _, ok := c.Get("k0"); ok {
		t.Error("Expected oldest key k0 to be evicted")
	}
	if _, ok := c.Get("k3"); !ok {
		t.Error("Expected newest key k3 to be present")
	}
}

func TestCache_OverwriteDoesNotEvict(t *testing.T) {
	c := NewWithConfig[int](2, time.Hour, 0)
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10)

	if v, _ := c.Get("a"); v != 10 {
		t.Errorf("Expected a=10, got %d", v)
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("Expected b to survive an overwrite of a")
	}
}

func TestCache_SweeperRemovesExpired(t *testing.T) {
	c := NewWithConfig[string](10, 10*time.Millisecond, 5*time.Millisecond)
	defer c.Close()

	c.Set("short", "lived")
	time.Sleep(50 * time.Millisecond)

	if c.Size() != 0 {
		t.Errorf("Expected sweeper to remove expired items, size=%d", c.Size())
	}
}

func TestCache_Concurrent(t *testing.T) {
	c := New[int]()
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key%d", n%5)
			c.Set(key, n)
			c.Get(key)
		}(i)
	}
	wg.Wait()

	if c.Size() > 5 {
		t.Errorf("Expected at most 5 keys, got %d", c.Size())
	}
}

func TestCache_CloseTwice(t *testing.T) {
	c := New[int]()
	c.Close()
	c.Close()
}
