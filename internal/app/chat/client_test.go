package chat

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onlyfriends/internal/app/audit"
	"onlyfriends/internal/app/moderation"
	"onlyfriends/internal/app/rank"
	"onlyfriends/internal/app/user"
)

type stubStore struct {
	mu      sync.Mutex
	users   map[string]user.User
	lookups int
}

func newStubStore(users ...user.User) *stubStore {
	m := make(map[string]user.User, len(users))
	for _, u := range users {
		m[u.UID] = u
	}
	return &stubStore{users: m}
}

func (s *stubStore) GetByUID(_ context.Context, uid string) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	u, ok := s.users[uid]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (s *stubStore) UpdateRank(_ context.Context, uid string, r rank.Rank) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[uid]
	u.Rank = r
	s.users[uid] = u
	return nil
}

func (s *stubStore) SetMuted(_ context.Context, uid string, muted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[uid]
	u.IsMuted = muted
	s.users[uid] = u
	return nil
}

func (s *stubStore) SetBanned(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[uid]
	u.IsBanned = true
	s.users[uid] = u
	return nil
}

func (s *stubStore) List(_ context.Context) ([]user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *stubStore) lookupCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups
}

func testUser(uid string, r rank.Rank) user.User {
	return user.User{
		UID:   uid,
		Name:  "user-" + uid,
		Rank:  r,
		Color: rank.Color(r),
		Level: 1,
	}
}

// joinClient wires a client into the room's map directly, bypassing the Run
// loop, so tests can drive room internals synchronously.
func joinClient(r *Room, c *Client) {
	r.mu.Lock()
	r.clients[c.User().UID] = c
	r.mu.Unlock()
}

func textPayloadBytes(t *testing.T, content string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(TextPayload{Content: content})
	require.NoError(t, err)
	return raw
}

func decodeOutbound(t *testing.T, raw []byte) (Message, TextPayload) {
	t.Helper()
	var msg Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	var payload TextPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	return msg, payload
}

// Run with -race: the session's user record is rewritten on every inbound
// message while the room loop reads it during fan-out.
func TestUserRecordRefreshConcurrentWithDelivery(t *testing.T) {
	u := testUser("USR001", rank.User)
	store := newStubStore(u)
	room := NewRoom("lobby", store, audit.NewTrail(nil), nil, time.Second, "secret")
	client := NewClient(room, nil, u, time.Now().Add(time.Hour))
	joinClient(room, client)

	msg, err := NewMessage(TypeText, room.Name, u, TextPayload{Content: "hello"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		ctx := context.Background()
		for i := 0; i < 500; i++ {
			client.refreshUser(ctx)
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			room.deliver(msg)
		}
	}()

	wg.Wait()
}

func TestUserReturnsRefreshedSnapshot(t *testing.T) {
	u := testUser("USR001", rank.User)
	store := newStubStore(u)
	room := NewRoom("lobby", store, audit.NewTrail(nil), nil, time.Second, "secret")
	client := NewClient(room, nil, u, time.Now().Add(time.Hour))

	require.NoError(t, store.UpdateRank(context.Background(), "USR001", rank.Pro))

	fresh, ok := client.refreshUser(context.Background())
	require.True(t, ok)
	assert.Equal(t, rank.Pro, fresh.Rank)
	assert.Equal(t, rank.Pro, client.User().Rank)
}

func TestBlankInputIsNoOpEvenWhenMuted(t *testing.T) {
	u := testUser("USR001", rank.User)
	u.IsMuted = true
	store := newStubStore(u)
	room := NewRoom("lobby", store, audit.NewTrail(nil), nil, time.Second, "secret")
	client := NewClient(room, nil, u, time.Now().Add(time.Hour))
	joinClient(room, client)

	client.handleText(textPayloadBytes(t, "   \n\t "), "tmp-1")

	// no broadcast, no muted notice, not even a store round trip
	assert.Empty(t, room.broadcast)
	assert.Empty(t, client.send)
	assert.Zero(t, store.lookupCount())
}

func TestMutedSenderGetsDirectNoticeForRealText(t *testing.T) {
	u := testUser("USR001", rank.User)
	u.IsMuted = true
	store := newStubStore(u)
	room := NewRoom("lobby", store, audit.NewTrail(nil), nil, time.Second, "secret")
	client := NewClient(room, nil, u, time.Now().Add(time.Hour))
	joinClient(room, client)

	client.handleText(textPayloadBytes(t, "hello everyone"), "tmp-1")

	assert.Empty(t, room.broadcast, "muted sender's line must not reach the room")

	require.Len(t, client.send, 1)
	msg, payload := decodeOutbound(t, <-client.send)
	assert.Equal(t, TypeSystem, msg.Type)
	assert.Equal(t, moderation.MsgYouAreMuted, payload.Content)
}
