package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onlyfriends/internal/app/rank"
	"onlyfriends/internal/app/user"
)

func member(uid, name string, r rank.Rank) user.User {
	return user.User{UID: uid, Name: name, Rank: r, Color: rank.Color(r)}
}

func uids(members []user.User) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.UID
	}
	return out
}

func set(ids ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func TestProjectOrdersByRankThenName(t *testing.T) {
	owner := member("RAIN01", "Rainbow", rank.Owner)
	owner.IsOwner = true
	all := []user.User{
		member("USR001", "somchai", rank.User),
		member("ADMN01", "Violet", rank.Admin),
		member("USR002", "Anan", rank.User),
		owner,
		member("PRO001", "Red", rank.Pro),
	}
	online := set("USR001", "ADMN01", "USR002", "RAIN01", "PRO001")

	got := Project(all, online, nil, "USR001")

	assert.Equal(t, []string{"RAIN01", "ADMN01", "PRO001", "USR002", "USR001", user.BotUID}, uids(got))
}

func TestProjectBotAlwaysLast(t *testing.T) {
	all := []user.User{member("NEWB01", "zzz", rank.Newbie)}

	got := Project(all, set("NEWB01"), nil, "NEWB01")

	require.Len(t, got, 2)
	assert.Equal(t, user.BotUID, got[1].UID)
	assert.Equal(t, user.BotName, got[1].Name)
}

func TestProjectExcludesBannedAndKicked(t *testing.T) {
	banned := member("BAD001", "Banned", rank.User)
	banned.IsBanned = true
	all := []user.User{
		member("USR001", "Alice", rank.User),
		banned,
		member("KCK001", "Kicked", rank.User),
	}
	online := set("USR001", "BAD001", "KCK001")

	got := Project(all, online, set("KCK001"), "USR001")

	assert.Equal(t, []string{"USR001", user.BotUID}, uids(got))
}

func TestProjectFiltersOfflineButKeepsViewer(t *testing.T) {
	all := []user.User{
		member("USR001", "Alice", rank.User),
		member("USR002", "Bob", rank.User),
		member("USR003", "Carol", rank.User),
	}

	// Bob is offline; Carol views before her own presence registers.
	got := Project(all, set("USR001"), nil, "USR003")

	assert.Equal(t, []string{"USR001", "USR003", user.BotUID}, uids(got))
}

func TestProjectKickedViewerStillExcluded(t *testing.T) {
	all := []user.User{member("USR001", "Alice", rank.User)}

	got := Project(all, set("USR001"), set("USR001"), "USR001")

	assert.Equal(t, []string{user.BotUID}, uids(got))
}

func TestProjectNameSortIsCaseInsensitive(t *testing.T) {
	all := []user.User{
		member("USR001", "banana", rank.User),
		member("USR002", "Apple", rank.User),
		member("USR003", "cherry", rank.User),
	}
	online := set("USR001", "USR002", "USR003")

	got := Project(all, online, nil, "USR001")

	assert.Equal(t, []string{"USR002", "USR001", "USR003", user.BotUID}, uids(got))
}
