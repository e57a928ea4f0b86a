package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/weiawesome/wes-io-dorm/pkg/log"
)

// Socket is a live client connection that can be sent a serialized frame.
type Socket interface {
	Send(payload []byte) error
}

type membership struct {
	conversationID uint
	userID         uint
}

// Registry tracks which sockets are live in which conversation. One Registry
// is created per process and shared by every handler that needs it.
//
// The lock guards only map mutation and snapshotting; sends happen after it
// is released.
type Registry struct {
	mu            sync.Mutex
	conversations map[uint][]Socket
	members       map[Socket]membership
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		conversations: make(map[uint][]Socket),
		members:       make(map[Socket]membership),
	}
}

// Connect registers sock in conversationID on behalf of userID. A socket
// already registered elsewhere is moved.
func (r *Registry) Connect(sock Socket, conversationID, userID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.members[sock]; ok {
		r.removeLocked(sock, prev.conversationID)
	}
	r.conversations[conversationID] = append(r.conversations[conversationID], sock)
	r.members[sock] = membership{conversationID: conversationID, userID: userID}
}

// Disconnect removes sock from conversationID. It is a no-op when sock is not
// registered there, so calling it twice is safe. Empty conversations are
// dropped.
func (r *Registry) Disconnect(sock Socket, conversationID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.members[sock]; !ok || m.conversationID != conversationID {
		return
	}
	r.removeLocked(sock, conversationID)
}

func (r *Registry) removeLocked(sock Socket, conversationID uint) {
	delete(r.members, sock)

	socks := r.conversations[conversationID]
	for i, s := range socks {
		if s == sock {
			socks = append(socks[:i:i], socks[i+1:]...)
			break
		}
	}
	if len(socks) == 0 {
		delete(r.conversations, conversationID)
		return
	}
	r.conversations[conversationID] = socks
}

// Broadcast serializes payload once and sends it to every socket in
// conversationID except exclude (which may be nil). Per-socket failures are
// logged and skipped. It returns how many sockets accepted the frame; an
// empty conversation is not an error.
func (r *Registry) Broadcast(ctx context.Context, conversationID uint, payload interface{}, exclude Socket) (int, error) {
	targets := r.snapshot(conversationID)
	if len(targets) == 0 {
		return 0, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	l := log.Ctx(ctx)
	delivered := 0
	for _, sock := range targets {
		if exclude != nil && sock == exclude {
			continue
		}
		if err := sock.Send(data); err != nil {
			l.Warn().Err(err).Uint(log.FieldConversationID, conversationID).Msg("dropping frame for unreachable socket")
			continue
		}
		delivered++
	}
	return delivered, nil
}

// SendTo serializes payload and sends it to sock alone.
func (r *Registry) SendTo(sock Socket, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return sock.Send(data)
}

func (r *Registry) snapshot(conversationID uint) []Socket {
	r.mu.Lock()
	defer r.mu.Unlock()

	socks := r.conversations[conversationID]
	if len(socks) == 0 {
		return nil
	}
	out := make([]Socket, len(socks))
	copy(out, socks)
	return out
}

// Count returns the number of live sockets in conversationID.
func (r *Registry) Count(conversationID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conversations[conversationID])
}

// Conversations returns the number of conversations with live sockets.
func (r *Registry) Conversations() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conversations)
}

// Owner returns the user a socket was registered for.
func (r *Registry) Owner(sock Socket) (uint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[sock]
	return m.userID, ok
}

// CloseAll sends a close frame to every registered socket that supports
// one. Registrations are left to the session loops to clean up as their
// reads fail.
func (r *Registry) CloseAll(code int, reason string) int {
	r.mu.Lock()
	socks := make([]Socket, 0, len(r.members))
	for s := range r.members {
		socks = append(socks, s)
	}
	r.mu.Unlock()

	n := 0
	for _, s := range socks {
		if c, ok := s.(interface{ Close(int, string) }); ok {
			c.Close(code, reason)
			n++
		}
	}
	return n
}
