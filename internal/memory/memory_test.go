package memory

import (
	"testing"
	"time"
)

func TestSetZeroTTLFailsWithoutMutation(t *testing.T) {
	c := New(10, 1000)
	if c.Set("k", "v", 0, "") {
		t.Fatal("ttl <= 0 must return false")
	}
	if _, ok := c.Get("k"); ok {
		t.Fatal("nothing should have been stored")
	}
}

func TestSetAndGetRoundTrip(t *testing.T) {
	c := New(10, 1000)
	if !c.Set("k", "v", 60, "run1") {
		t.Fatal("set should have succeeded")
	}
	v, ok := c.Get("k")
	if !ok || v != "v" {
		t.Fatalf("get = %v, %v; want v, true", v, ok)
	}
}

func TestGetEvictsExpiredEntry(t *testing.T) {
	c := New(10, 1000)
	fakeNow := time.Now()
	c.now = func() time.Time { return fakeNow }

	c.Set("k", "v", 1, "")
	fakeNow = fakeNow.Add(2 * time.Second)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expired entry must not be returned")
	}
	if stats := c.Stats(); stats.Entries != 0 {
		t.Fatalf("expired entry should have been evicted, stats = %+v", stats)
	}
}

func TestSetFailsClosedOverEntryCap(t *testing.T) {
	c := New(1, 1000)
	if !c.Set("a", "v", 60, "") {
		t.Fatal("first insert should succeed")
	}
	if c.Set("b", "v", 60, "") {
		t.Fatal("second insert should fail: over entry cap")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("existing live entry must not be evicted to make room")
	}
}

func TestSetFailsClosedOverByteCap(t *testing.T) {
	c := New(10, 5)
	if c.Set("k", "this value is far longer than five bytes", 60, "") {
		t.Fatal("insert exceeding byte cap should fail")
	}
	if stats := c.Stats(); stats.Bytes != 0 {
		t.Fatalf("bytes should remain 0, got %d", stats.Bytes)
	}
}

func TestOverwriteDoesNotDoubleCountCost(t *testing.T) {
	c := New(10, 20)
	if !c.Set("k", "short", 60, "") {
		t.Fatal("initial insert should succeed")
	}
	before := c.Stats().Bytes
	if !c.Set("k", "short", 60, "") {
		t.Fatal("overwrite with the same value should succeed")
	}
	after := c.Stats().Bytes
	if before != after {
		t.Fatalf("overwrite changed byte count: before=%d after=%d", before, after)
	}
}

func TestClearRunRemovesOnlyScopedEntries(t *testing.T) {
	c := New(10, 1000)
	c.Set("a", "v", 60, "run1")
	c.Set("b", "v", 60, "run2")

	c.ClearRun("run1")

	if _, ok := c.Get("a"); ok {
		t.Fatal("run1's entry should have been cleared")
	}
	if _, ok := c.Get("b"); !ok {
		t.Fatal("run2's entry should remain")
	}
}

func TestClearAllEmptiesCache(t *testing.T) {
	c := New(10, 1000)
	c.Set("a", "v", 60, "run1")
	c.Set("b", "v", 60, "run2")
	c.ClearAll()

	if stats := c.Stats(); stats.Entries != 0 || stats.Bytes != 0 {
		t.Fatalf("expected empty cache after ClearAll, got %+v", stats)
	}
}

func TestStatsBytesNonNegative(t *testing.T) {
	c := New(10, 1000)
	c.Set("a", "v", 60, "")
	c.ClearRun("nonexistent-run")
	if stats := c.Stats(); stats.Bytes < 0 {
		t.Fatalf("bytes should never go negative, got %d", stats.Bytes)
	}
}
