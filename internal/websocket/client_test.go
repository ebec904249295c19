package websocket

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRead struct {
	messageType int
	data        []byte
	err         error
}

type mockWrite struct {
	messageType int
	data        []byte
}

// mockConn scripts reads through a channel and records writes.
type mockConn struct {
	mu     sync.Mutex
	writes []mockWrite
	reads  chan mockRead
	closed bool
}

func newMockConn() *mockConn {
	return &mockConn{reads: make(chan mockRead, 8)}
}

func (m *mockConn) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("connection closed")
	}
	cp := append([]byte(nil), data...)
	m.writes = append(m.writes, mockWrite{messageType: messageType, data: cp})
	return nil
}

func (m *mockConn) ReadMessage() (int, []byte, error) {
	r, ok := <-m.reads
	if !ok {
		return 0, nil, errors.New("connection closed")
	}
	if r.err != nil {
		return 0, nil, r.err
	}
	return r.messageType, r.data, nil
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConn) SetReadDeadline(time.Time) error  { return nil }
func (m *mockConn) SetWriteDeadline(time.Time) error { return nil }
func (m *mockConn) SetReadLimit(int64)               {}
func (m *mockConn) SetPongHandler(func(string) error) {}
func (m *mockConn) RemoteAddr() string               { return "127.0.0.1:9999" }

func (m *mockConn) snapshotWrites() []mockWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockWrite(nil), m.writes...)
}

func TestNewClientWithConnection(t *testing.T) {
	hub := NewHub(testHubLogger())
	conn := newMockConn()

	client := NewClientWithConnection(hub, conn, testHubLogger())

	assert.NotEmpty(t, client.id)
	assert.Equal(t, "127.0.0.1:9999", client.remoteAddr)
	assert.NotNil(t, client.send)
	assert.Equal(t, 256, cap(client.send))
}

func TestWritePumpSendsTextFrames(t *testing.T) {
	hub := NewHub(testHubLogger())
	conn := newMockConn()
	client := NewClientWithConnection(hub, conn, testHubLogger())

	done := make(chan struct{})
	go func() {
		client.WritePump()
		close(done)
	}()

	client.send <- []byte(`{"type":"dataset:refresh"}`)
	time.Sleep(50 * time.Millisecond)

	close(client.send)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write pump did not exit after channel close")
	}

	writes := conn.snapshotWrites()
	require.GreaterOrEqual(t, len(writes), 2)
	assert.Equal(t, websocket.TextMessage, writes[0].messageType)
	assert.Equal(t, `{"type":"dataset:refresh"}`, string(writes[0].data))
	assert.Equal(t, websocket.CloseMessage, writes[len(writes)-1].messageType)
}

func TestReadPumpUnregistersOnClose(t *testing.T) {
	hub := NewHub(testHubLogger())
	hub.Start()
	defer hub.Stop()

	conn := newMockConn()
	client := NewClientWithConnection(hub, conn, testHubLogger())

	hub.Register(client)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, hub.ClientCount())

	done := make(chan struct{})
	go func() {
		client.ReadPump()
		close(done)
	}()

	conn.reads <- mockRead{err: errors.New("peer went away")}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("read pump did not exit on read error")
	}
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 0, hub.ClientCount())

	conn.mu.Lock()
	closed := conn.closed
	conn.mu.Unlock()
	assert.True(t, closed)
}

func TestReadPumpCountsHeartbeats(t *testing.T) {
	hub := NewHub(testHubLogger())
	hub.Start()
	defer hub.Stop()

	conn := newMockConn()
	client := NewClientWithConnection(hub, conn, testHubLogger())

	hub.Register(client)
	time.Sleep(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		client.ReadPump()
		close(done)
	}()

	conn.reads <- mockRead{messageType: websocket.TextMessage, data: []byte(`{"type":"heartbeat"}`)}
	conn.reads <- mockRead{err: errors.New("peer went away")}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("read pump did not exit")
	}

	assert.Equal(t, int64(1), client.messagesReceived)
}
