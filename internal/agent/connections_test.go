package agent

import (
	"strconv"
	"sync"
	"testing"

	"github.com/coder/websocket"
)

func TestConnManagerRegister(t *testing.T) {
	m := NewConnManager()
	conn := &websocket.Conn{}

	m.Register("user123", "tab-1", conn)

	if active := m.Get("user123", "tab-1"); active != conn {
		t.Errorf("Expected connection %v, got %v", conn, active)
	}
	if m.Count("user123") != 1 {
		t.Errorf("Expected 1 connection, got %d", m.Count("user123"))
	}
}

func TestConnManagerUnregisterStale(t *testing.T) {
	m := NewConnManager()
	conn1 := &websocket.Conn{}
	conn2 := &websocket.Conn{}

	m.Register("user123", "tab-1", conn1)
	m.Register("user123", "tab-2", conn2)

	m.Unregister("user123", "tab-1", conn1)
	// Unregistering a connection that is no longer current is a no-op.
	m.Unregister("user123", "tab-2", conn1)

	if active := m.Get("user123", "tab-2"); active != conn2 {
		t.Errorf("Expected connection %v, got %v", conn2, active)
	}
	if m.Get("user123", "tab-1") != nil {
		t.Error("Expected tab-1 to be removed")
	}
}

func TestConnManagerConcurrentAccess(t *testing.T) {
	m := NewConnManager()
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			m.Register("concurrentUser", "tab-"+strconv.Itoa(i), &websocket.Conn{})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			m.Get("concurrentUser", "tab-"+strconv.Itoa(i))
		}
	}()

	wg.Wait()
	if m.Count("concurrentUser") != 1000 {
		t.Fatalf("expected 1000 connections, got %d", m.Count("concurrentUser"))
	}
}
