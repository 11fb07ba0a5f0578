package util

import (
	"testing"
	"time"
)

var epoch = time.Unix(1_700_000_000, 0)

func at(seconds int) time.Time {
	return epoch.Add(time.Duration(seconds) * time.Second)
}

func TestNewExpiryQueue(t *testing.T) {
	q := NewExpiryQueue()

	if q == nil {
		t.Fatal("NewExpiryQueue() returned nil")
	}
	if q.Len() != 0 {
		t.Errorf("New queue should be empty, but has length %d", q.Len())
	}
	if _, _, ok := q.Peek(); ok {
		t.Error("Peek() on an empty queue should return false")
	}
}

func TestExpiryQueueSchedule(t *testing.T) {
	q := NewExpiryQueue()
	q.Schedule("a", at(100))
	q.Schedule("b", at(200))
	q.Schedule("c", at(50))

	if q.Len() != 3 {
		t.Errorf("Queue should have 3 keys, but has %d", q.Len())
	}

	key, deadline, ok := q.Peek()
	if !ok {
		t.Fatal("Peek() should return a key")
	}
	if key != "c" || !deadline.Equal(at(50)) {
		t.Errorf("Expected earliest key to be c@50, got %s@%v", key, deadline)
	}
}

func TestExpiryQueueReschedule(t *testing.T) {
	q := NewExpiryQueue()
	q.Schedule("a", at(100))
	q.Schedule("b", at(200))

	// move a behind b
	q.Schedule("a", at(300))

	if q.Len() != 2 {
		t.Errorf("Rescheduling must not add a key, length is %d", q.Len())
	}
	if d, ok := q.Deadline("a"); !ok || !d.Equal(at(300)) {
		t.Errorf("Expected deadline of a to be 300, got %v (%v)", d, ok)
	}
	if key, _, _ := q.Peek(); key != "b" {
		t.Errorf("Expected b to be the earliest key after rescheduling, got %s", key)
	}
}

func TestExpiryQueueRemove(t *testing.T) {
	q := NewExpiryQueue()
	q.Schedule("a", at(100))
	q.Schedule("b", at(50))
	q.Schedule("c", at(150))

	d, ok := q.Remove("b")
	if !ok || !d.Equal(at(50)) {
		t.Errorf("Remove(b) = %v, %v", d, ok)
	}
	if _, ok := q.Remove("b"); ok {
		t.Error("Removing a key twice should return false")
	}
	if _, ok := q.Deadline("b"); ok {
		t.Error("Removed key should have no deadline")
	}
	if key, _, _ := q.Peek(); key != "a" {
		t.Errorf("Expected a to be the earliest key, got %s", key)
	}
}

func TestExpiryQueuePopExpired(t *testing.T) {
	q := NewExpiryQueue()
	for i, key := range []string{"e", "b", "d", "a", "c"} {
		// e=50, b=40, d=30, a=20, c=10
		q.Schedule(key, at(50-i*10))
	}

	if keys := q.PopExpired(at(5)); len(keys) != 0 {
		t.Errorf("Expected no expired keys, got %v", keys)
	}

	keys := q.PopExpired(at(30))
	expected := []string{"c", "a", "d"}
	if len(keys) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, keys)
	}
	for i := range expected {
		if keys[i] != expected[i] {
			t.Errorf("Expected %v, got %v", expected, keys)
			break
		}
	}

	if q.Len() != 2 {
		t.Errorf("Expected 2 remaining keys, got %d", q.Len())
	}
	if _, ok := q.Deadline("d"); ok {
		t.Error("Popped key should have no deadline")
	}
	if keys := q.PopExpired(at(1000)); len(keys) != 2 {
		t.Errorf("Expected the remaining 2 keys, got %v", keys)
	}
	if q.Len() != 0 {
		t.Errorf("Queue should be empty, has %d keys", q.Len())
	}
}
