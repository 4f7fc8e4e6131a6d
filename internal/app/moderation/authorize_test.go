package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"onlyfriends/internal/app/rank"
	"onlyfriends/internal/app/user"
	"onlyfriends/internal/pkg/errs"
)

func mkUser(uid string, r rank.Rank) user.User {
	return user.User{UID: uid, Name: uid, Rank: r, Color: rank.Color(r)}
}

func mkOwner(uid string) user.User {
	u := mkUser(uid, rank.Owner)
	u.IsOwner = true
	return u
}

func TestCanModerateNeverSelf(t *testing.T) {
	for _, r := range rank.All() {
		actor := mkUser("SAME01", r)
		actor.IsOwner = r == rank.Owner
		assert.False(t, CanModerate(actor, actor), string(r))
	}
}

func TestCanModerateOwnerImmunity(t *testing.T) {
	target := mkOwner("RAIN01")

	assert.False(t, CanModerate(mkOwner("ROOT02"), target))
	assert.False(t, CanModerate(mkUser("ADMN01", rank.Admin), target))
	assert.False(t, CanModerate(mkUser("NEWB01", rank.Newbie), target))
}

func TestCanModerateBotImmunity(t *testing.T) {
	assert.False(t, CanModerate(mkOwner("RAIN01"), user.Bot()))
}

func TestCanModerateByRank(t *testing.T) {
	tests := []struct {
		name   string
		actor  user.User
		target user.User
		want   bool
	}{
		{"owner moderates anyone", mkOwner("RAIN01"), mkUser("ADMN01", rank.Admin), true},
		{"admin moderates lower rank", mkUser("ADMN01", rank.Admin), mkUser("VIP201", rank.VIP2), true},
		{"admin moderates newbie", mkUser("ADMN01", rank.Admin), mkUser("NEWB01", rank.Newbie), true},
		{"admin cannot moderate admin", mkUser("ADMN01", rank.Admin), mkUser("ADMN02", rank.Admin), false},
		{"vip1 cannot moderate newbie", mkUser("VIP101", rank.VIP1), mkUser("NEWB01", rank.Newbie), false},
		{"pro cannot moderate newbie", mkUser("PRO001", rank.Pro), mkUser("NEWB01", rank.Newbie), false},
		{"newbie cannot moderate anyone", mkUser("NEWB01", rank.Newbie), mkUser("NEWB02", rank.Newbie), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanModerate(tc.actor, tc.target))
		})
	}
}

func TestCanAssignRank(t *testing.T) {
	tests := []struct {
		name     string
		actor    user.User
		target   user.User
		assign   rank.Rank
		wantCode int // 0 = allowed
	}{
		{"owner assigns admin", mkOwner("RAIN01"), mkUser("USR001", rank.User), rank.Admin, 0},
		{"owner cannot touch another owner", mkOwner("RAIN01"), mkOwner("ROOT02"), rank.User, errs.ErrCannotModifyOwner},
		{"admin assigns user to vip2", mkUser("ADMN01", rank.Admin), mkUser("VIP201", rank.VIP2), rank.User, 0},
		{"admin assigns vip1", mkUser("ADMN01", rank.Admin), mkUser("USR001", rank.User), rank.VIP1, 0},
		{"admin cannot assign admin", mkUser("ADMN01", rank.Admin), mkUser("USR001", rank.User), rank.Admin, errs.ErrNoPermission},
		{"vip1 assigns nothing", mkUser("VIP101", rank.VIP1), mkUser("NEWB01", rank.Newbie), rank.User, errs.ErrNoPermission},
		{"user assigns nothing", mkUser("USR001", rank.User), mkUser("NEWB01", rank.Newbie), rank.Newbie, errs.ErrNoPermission},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CanAssignRank(tc.actor, tc.target, tc.assign)
			if tc.wantCode == 0 {
				assert.Nil(t, got)
			} else {
				assert.NotNil(t, got)
				assert.Equal(t, tc.wantCode, got.Code)
			}
		})
	}
}

func TestCanUnrank(t *testing.T) {
	owner := mkOwner("RAIN01")
	admin := mkUser("ADMN01", rank.Admin)

	// Owner can unrank any moderatable target.
	assert.True(t, CanUnrank(owner, mkUser("VIP101", rank.VIP1)))
	assert.True(t, CanUnrank(owner, mkUser("ADMN02", rank.Admin)))

	// Admin may only strip Pro and below.
	assert.True(t, CanUnrank(admin, mkUser("PRO001", rank.Pro)))
	assert.True(t, CanUnrank(admin, mkUser("USR001", rank.User)))
	assert.True(t, CanUnrank(admin, mkUser("NEWB01", rank.Newbie)))
	assert.False(t, CanUnrank(admin, mkUser("VIP101", rank.VIP1)))
	assert.False(t, CanUnrank(admin, mkUser("VIP201", rank.VIP2)))
	assert.False(t, CanUnrank(admin, mkUser("ADMN02", rank.Admin)))

	// CanUnrank inherits every CanModerate denial.
	assert.False(t, CanUnrank(admin, admin))
	assert.False(t, CanUnrank(admin, mkOwner("RAIN01")))
	assert.False(t, CanUnrank(mkUser("VIP101", rank.VIP1), mkUser("NEWB01", rank.Newbie)))
}
