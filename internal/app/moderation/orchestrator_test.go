package moderation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onlyfriends/internal/app/audit"
	"onlyfriends/internal/app/rank"
	"onlyfriends/internal/app/user"
)

type fakeStore struct {
	mu      sync.Mutex
	users   map[string]user.User
	writes  int
	failAll bool
}

func newFakeStore(users ...user.User) *fakeStore {
	m := make(map[string]user.User, len(users))
	for _, u := range users {
		m[u.UID] = u
	}
	return &fakeStore{users: m}
}

func (s *fakeStore) get(uid string) user.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[uid]
}

func (s *fakeStore) GetByUID(_ context.Context, uid string) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uid]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (s *fakeStore) UpdateRank(_ context.Context, uid string, r rank.Rank) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errors.New("write refused")
	}
	u := s.users[uid]
	u.Rank = r
	s.users[uid] = u
	s.writes++
	return nil
}

func (s *fakeStore) SetMuted(_ context.Context, uid string, muted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errors.New("write refused")
	}
	u := s.users[uid]
	u.IsMuted = muted
	s.users[uid] = u
	s.writes++
	return nil
}

func (s *fakeStore) SetBanned(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errors.New("write refused")
	}
	u := s.users[uid]
	u.IsBanned = true
	s.users[uid] = u
	s.writes++
	return nil
}

type fakeNotifier struct {
	mu           sync.Mutex
	system       []string
	direct       map[string][]string
	botMessages  []string
	typing       []bool
	disconnects  []string
	rosterEvents int
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{direct: make(map[string][]string)}
}

func (n *fakeNotifier) SystemMessage(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.system = append(n.system, text)
}

func (n *fakeNotifier) SystemMessageTo(uid, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.direct[uid] = append(n.direct[uid], text)
}

func (n *fakeNotifier) BotMessage(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.botMessages = append(n.botMessages, text)
}

func (n *fakeNotifier) BotTyping(active bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.typing = append(n.typing, active)
}

func (n *fakeNotifier) Disconnect(uid, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.disconnects = append(n.disconnects, uid)
}

func (n *fakeNotifier) RosterChanged() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rosterEvents++
}

func (n *fakeNotifier) systemMessages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.system))
	copy(out, n.system)
	return out
}

func (n *fakeNotifier) directTo(uid string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.direct[uid]))
	copy(out, n.direct[uid])
	return out
}

type fakeBot struct {
	mu     sync.Mutex
	reply  string
	err    error
	inputs []string
}

func (b *fakeBot) Reply(_ context.Context, commandText string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inputs = append(b.inputs, commandText)
	return b.reply, b.err
}

func moderationEntries(t *testing.T, trail *audit.Trail) []audit.Entry {
	t.Helper()
	entries, cerr := trail.Read(user.User{IsOwner: true, Rank: rank.Owner})
	require.Nil(t, cerr)
	var out []audit.Entry
	for _, e := range entries {
		if e.Category == audit.CategoryModeration {
			out = append(out, e)
		}
	}
	return out
}

func awaitConfirmation(t *testing.T, conf *Confirmation) {
	t.Helper()
	require.NotNil(t, conf)
	select {
	case <-conf.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("confirmation did not resolve")
	}
}

func TestSetRankAdminOnVIP2(t *testing.T) {
	admin := mkUser("ADMN01", rank.Admin)
	target := mkUser("VIP201", rank.VIP2)
	store := newFakeStore(admin, target)
	notifier := newFakeNotifier()
	trail := audit.NewTrail(nil)
	b := &fakeBot{reply: "ดำเนินการเปลี่ยนสีให้ VIP201 เป็นสีฟ้าเรียบร้อยแล้ว"}

	o := New(store, b, trail, notifier, time.Second)

	conf := o.SetRankByLabel(context.Background(), admin, "สีฟ้า", "VIP201")
	awaitConfirmation(t, conf)

	assert.Equal(t, StateResolved, conf.State())
	assert.Equal(t, rank.User, store.get("VIP201").Rank)

	require.Len(t, notifier.systemMessages(), 1)
	assert.Contains(t, notifier.systemMessages()[0], "ADMN01")
	assert.Contains(t, notifier.systemMessages()[0], "สีฟ้า")

	require.Len(t, moderationEntries(t, trail), 1)

	require.Len(t, b.inputs, 1)
	assert.Equal(t, "/setrank สีฟ้า VIP201", b.inputs[0])
	require.Len(t, notifier.botMessages, 1)

	// typing indicator toggled on then off
	assert.Equal(t, []bool{true, false}, notifier.typing)
}

func TestSetRankNotRolledBackOnBotFailure(t *testing.T) {
	owner := mkOwner("RAIN01")
	target := mkUser("USR001", rank.User)
	store := newFakeStore(owner, target)
	notifier := newFakeNotifier()
	trail := audit.NewTrail(nil)
	b := &fakeBot{err: errors.New("collaborator down")}

	o := New(store, b, trail, notifier, time.Second)

	conf := o.SetRankByLabel(context.Background(), owner, "สีแดง", "USR001")
	awaitConfirmation(t, conf)

	assert.Equal(t, StateFailed, conf.State())

	// the primary effect stands
	assert.Equal(t, rank.Pro, store.get("USR001").Rank)

	msgs := notifier.systemMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, MsgBotConfirmFailed, msgs[1])
}

func TestSetRankDenials(t *testing.T) {
	owner := mkOwner("RAIN01")
	secondOwner := mkOwner("ROOT02")
	vip1 := mkUser("VIP101", rank.VIP1)
	newbie := mkUser("NEWB01", rank.Newbie)

	tests := []struct {
		name    string
		actor   user.User
		label   string
		target  string
		wantMsg string
	}{
		{"unknown label", owner, "สีเขียว", "NEWB01", msgUnknownRank("สีเขียว")},
		{"target not found", owner, "สีแดง", "GHOST1", msgUserNotFound("GHOST1")},
		{"owner target immune even to owner", owner, "สีแดง", "ROOT02", MsgCannotChangeOwner},
		{"vip1 has no assignment rights", vip1, "สีเทา", "NEWB01", MsgNoRankPermission},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore(owner, secondOwner, vip1, newbie)
			notifier := newFakeNotifier()
			trail := audit.NewTrail(nil)
			o := New(store, &fakeBot{}, trail, notifier, time.Second)

			conf := o.SetRankByLabel(context.Background(), tc.actor, tc.label, tc.target)

			assert.Nil(t, conf)
			assert.Zero(t, store.writes, "denial must have zero side effects")
			assert.Empty(t, moderationEntries(t, trail))

			// denials reach the actor alone, never the room
			assert.Empty(t, notifier.systemMessages())
			require.Len(t, notifier.directTo(tc.actor.UID), 1)
			assert.Equal(t, tc.wantMsg, notifier.directTo(tc.actor.UID)[0])
		})
	}
}

func TestBanIsIdempotentButAlwaysAudited(t *testing.T) {
	owner := mkOwner("RAIN01")
	target := mkUser("USR001", rank.User)
	store := newFakeStore(owner, target)
	notifier := newFakeNotifier()
	trail := audit.NewTrail(nil)

	o := New(store, nil, trail, notifier, time.Second)

	o.Ban(context.Background(), owner, "USR001")
	o.Ban(context.Background(), owner, "USR001")

	assert.True(t, store.get("USR001").IsBanned)

	// re-applying is not an error and still leaves a fresh audit line
	assert.Len(t, moderationEntries(t, trail), 2)
	assert.Len(t, notifier.systemMessages(), 2)
}

func TestBanRejectedBeforeMutationForLowRank(t *testing.T) {
	vip1 := mkUser("VIP101", rank.VIP1)
	target := mkUser("NEWB01", rank.Newbie)
	store := newFakeStore(vip1, target)
	notifier := newFakeNotifier()
	trail := audit.NewTrail(nil)

	o := New(store, nil, trail, notifier, time.Second)
	o.Ban(context.Background(), vip1, "NEWB01")

	assert.False(t, store.get("NEWB01").IsBanned)
	assert.Zero(t, store.writes)
	assert.Empty(t, moderationEntries(t, trail))
	assert.Empty(t, notifier.systemMessages())
	require.Len(t, notifier.directTo("VIP101"), 1)
	assert.Equal(t, MsgNoModerationPermission, notifier.directTo("VIP101")[0])
}

func TestMuteTogglesAndReportsResultingState(t *testing.T) {
	owner := mkOwner("RAIN01")
	target := mkUser("USR001", rank.User)
	store := newFakeStore(owner, target)
	notifier := newFakeNotifier()
	trail := audit.NewTrail(nil)

	o := New(store, nil, trail, notifier, time.Second)

	o.Mute(context.Background(), owner, "USR001")
	assert.True(t, store.get("USR001").IsMuted)

	o.Mute(context.Background(), owner, "USR001")
	assert.False(t, store.get("USR001").IsMuted)

	msgs := notifier.systemMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, msgMuted("RAIN01", "USR001"), msgs[0])
	assert.Equal(t, msgUnmuted("RAIN01", "USR001"), msgs[1])
	assert.Len(t, moderationEntries(t, trail), 2)
}

func TestKickIsSessionScoped(t *testing.T) {
	owner := mkOwner("RAIN01")
	target := mkUser("USR001", rank.User)
	store := newFakeStore(owner, target)
	notifier := newFakeNotifier()
	trail := audit.NewTrail(nil)

	o := New(store, nil, trail, notifier, time.Second)
	o.Kick(context.Background(), owner, "USR001")

	assert.True(t, o.IsKicked("USR001"))
	assert.Equal(t, []string{"USR001"}, notifier.disconnects)

	// kick never touches the persisted record
	assert.Zero(t, store.writes)
	assert.False(t, store.get("USR001").IsBanned)

	// a fresh orchestrator (new session) forgets the kick
	fresh := New(store, nil, audit.NewTrail(nil), newFakeNotifier(), time.Second)
	assert.False(t, fresh.IsKicked("USR001"))
}

func TestUnrankFloor(t *testing.T) {
	admin := mkUser("ADMN01", rank.Admin)
	pro := mkUser("PRO001", rank.Pro)
	vip2 := mkUser("VIP201", rank.VIP2)
	store := newFakeStore(admin, pro, vip2)
	notifier := newFakeNotifier()
	trail := audit.NewTrail(nil)

	o := New(store, nil, trail, notifier, time.Second)

	o.Unrank(context.Background(), admin, "PRO001")
	assert.Equal(t, rank.Newbie, store.get("PRO001").Rank)

	o.Unrank(context.Background(), admin, "VIP201")
	assert.Equal(t, rank.VIP2, store.get("VIP201").Rank, "admin must not unrank VIP tiers")

	// the successful unrank is announced to the room, the refusal only
	// to the admin who asked
	msgs := notifier.systemMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, msgUnranked("ADMN01", "PRO001"), msgs[0])
	require.Len(t, notifier.directTo("ADMN01"), 1)
	assert.Equal(t, MsgNoModerationPermission, notifier.directTo("ADMN01")[0])
}

func TestGuardMessageBlocksMutedSender(t *testing.T) {
	muted := mkUser("USR001", rank.User)
	muted.IsMuted = true
	store := newFakeStore(muted)
	notifier := newFakeNotifier()

	o := New(store, nil, audit.NewTrail(nil), notifier, time.Second)

	assert.False(t, o.GuardMessage(muted))
	require.Len(t, notifier.direct["USR001"], 1)
	assert.Equal(t, MsgYouAreMuted, notifier.direct["USR001"][0])

	clear := mkUser("USR002", rank.User)
	assert.True(t, o.GuardMessage(clear))
}

func TestStoreFailureSurfacesRetryableMessage(t *testing.T) {
	owner := mkOwner("RAIN01")
	target := mkUser("USR001", rank.User)
	store := newFakeStore(owner, target)
	store.failAll = true
	notifier := newFakeNotifier()
	trail := audit.NewTrail(nil)

	o := New(store, nil, trail, notifier, time.Second)
	conf := o.SetRankByLabel(context.Background(), owner, "สีแดง", "USR001")

	assert.Nil(t, conf)
	assert.Equal(t, rank.User, store.get("USR001").Rank)
	assert.Empty(t, notifier.systemMessages())
	msgs := notifier.directTo("RAIN01")
	require.Len(t, msgs, 1)
	assert.Equal(t, MsgStoreFailed, msgs[0])
}

func TestConfirmationTimesOut(t *testing.T) {
	owner := mkOwner("RAIN01")
	target := mkUser("USR001", rank.User)
	store := newFakeStore(owner, target)
	notifier := newFakeNotifier()
	trail := audit.NewTrail(nil)

	slow := botFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	o := New(store, slow, trail, notifier, 50*time.Millisecond)
	conf := o.SetRankByLabel(context.Background(), owner, "สีแดง", "USR001")
	awaitConfirmation(t, conf)

	assert.Equal(t, StateFailed, conf.State())
	assert.Equal(t, rank.Pro, store.get("USR001").Rank)
}

type botFunc func(ctx context.Context, commandText string) (string, error)

func (f botFunc) Reply(ctx context.Context, commandText string) (string, error) {
	return f(ctx, commandText)
}
