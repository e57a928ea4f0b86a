package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSocket struct {
	name string
	mu   sync.Mutex
	got  [][]byte
	fail bool
}

func (f *fakeSocket) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("peer vanished")
	}
	f.got = append(f.got, payload)
	return nil
}

func (f *fakeSocket) frames() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.got))
	for _, b := range f.got {
		var m map[string]any
		_ = json.Unmarshal(b, &m)
		out = append(out, m)
	}
	return out
}

func TestRegistryConnectBroadcastDisconnect(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry()
	s1, s2 := &fakeSocket{name: "s1"}, &fakeSocket{name: "s2"}

	reg.Connect(s1, 7, 1)
	reg.Connect(s2, 7, 2)

	n, err := reg.Broadcast(ctx, 7, map[string]string{"content": "first"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, s1.frames(), 1)
	assert.Len(t, s2.frames(), 1)

	reg.Disconnect(s1, 7)
	n, err = reg.Broadcast(ctx, 7, map[string]string{"content": "second"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, s1.frames(), 1)
	require.Len(t, s2.frames(), 2)
	assert.Equal(t, "second", s2.frames()[1]["content"])

	reg.Disconnect(s2, 7)
	assert.Zero(t, reg.Count(7))
	assert.Zero(t, reg.Conversations(), "empty conversation entry is removed")
	_, ok := reg.Owner(s2)
	assert.False(t, ok)
}

func TestRegistryBroadcastEmptyConversation(t *testing.T) {
	reg := NewRegistry()
	n, err := reg.Broadcast(context.Background(), 404, map[string]string{"x": "y"}, nil)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestRegistryBroadcastExclude(t *testing.T) {
	reg := NewRegistry()
	s1, s2 := &fakeSocket{}, &fakeSocket{}
	reg.Connect(s1, 1, 10)
	reg.Connect(s2, 1, 20)

	n, err := reg.Broadcast(context.Background(), 1, map[string]int{"n": 1}, s1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, s1.frames())
	assert.Len(t, s2.frames(), 1)
}

func TestRegistryBroadcastSkipsFailingSocket(t *testing.T) {
	reg := NewRegistry()
	bad := &fakeSocket{fail: true}
	good := &fakeSocket{}
	reg.Connect(bad, 3, 1)
	reg.Connect(good, 3, 2)

	n, err := reg.Broadcast(context.Background(), 3, map[string]string{"content": "hi"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, good.frames(), 1)
}

func TestRegistryBroadcastMarshalError(t *testing.T) {
	reg := NewRegistry()
	reg.Connect(&fakeSocket{}, 1, 1)
	_, err := reg.Broadcast(context.Background(), 1, func() {}, nil)
	assert.Error(t, err)
}

func TestRegistryDisconnectIdempotent(t *testing.T) {
	reg := NewRegistry()
	s := &fakeSocket{}

	reg.Disconnect(s, 1)
	reg.Connect(s, 1, 5)
	reg.Disconnect(s, 2)
	assert.Equal(t, 1, reg.Count(1), "disconnect from another conversation is a no-op")

	reg.Disconnect(s, 1)
	reg.Disconnect(s, 1)
	assert.Zero(t, reg.Count(1))
	assert.Zero(t, reg.Conversations())
}

func TestRegistryConnectMovesSocket(t *testing.T) {
	reg := NewRegistry()
	s := &fakeSocket{}
	reg.Connect(s, 1, 5)
	reg.Connect(s, 2, 5)

	assert.Zero(t, reg.Count(1))
	assert.Equal(t, 1, reg.Count(2))
	owner, ok := reg.Owner(s)
	require.True(t, ok)
	assert.Equal(t, uint(5), owner)
}

func TestRegistrySendTo(t *testing.T) {
	reg := NewRegistry()
	s := &fakeSocket{}
	require.NoError(t, reg.SendTo(s, map[string]string{"type": "connection"}))
	require.Len(t, s.frames(), 1)
	assert.Equal(t, "connection", s.frames()[0]["type"])
}

func TestRegistryConcurrentUse(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := &fakeSocket{}
			conv := uint(i % 3)
			reg.Connect(s, conv, uint(i))
			_, _ = reg.Broadcast(context.Background(), conv, map[string]int{"i": i}, nil)
			reg.Disconnect(s, conv)
		}(i)
	}
	wg.Wait()
	assert.Zero(t, reg.Conversations())
}

type closingSocket struct {
	fakeSocket
	code int
}

func (c *closingSocket) Close(code int, _ string) { c.code = code }

func TestRegistryCloseAll(t *testing.T) {
	reg := NewRegistry()
	a, b := &closingSocket{}, &closingSocket{}
	plain := &fakeSocket{}
	reg.Connect(a, 1, 1)
	reg.Connect(b, 2, 2)
	reg.Connect(plain, 2, 3)

	assert.Equal(t, 2, reg.CloseAll(1001, "server shutting down"))
	assert.Equal(t, 1001, a.code)
	assert.Equal(t, 1001, b.code)
	assert.Equal(t, 2, reg.Count(2))
}
