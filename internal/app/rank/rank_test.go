package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHierarchyOrder(t *testing.T) {
	assert.True(t, Outranks(Owner, Admin))
	assert.True(t, Outranks(Admin, VIP1))
	assert.True(t, Outranks(VIP1, VIP2))
	assert.True(t, Outranks(VIP2, Pro))
	assert.True(t, Outranks(Pro, User))
	assert.True(t, Outranks(User, Newbie))
	assert.False(t, Outranks(Newbie, Owner))
	assert.False(t, Outranks(Admin, Admin))
}

func TestFromLabel(t *testing.T) {
	tests := []struct {
		label string
		want  Rank
	}{
		{"สีม่วง", Admin},
		{"สีชมพู", VIP1},
		{"สีส้ม", VIP2},
		{"สีแดง", Pro},
		{"สีฟ้า", User},
		{"สีเทา", Newbie},
	}

	for _, tc := range tests {
		got, err := FromLabel(tc.label)
		require.NoError(t, err, tc.label)
		assert.Equal(t, tc.want, got)
	}
}

func TestFromLabelUnknown(t *testing.T) {
	for _, label := range []string{"", "สีเขียว", "red", "owner", "/สีแดง"} {
		_, err := FromLabel(label)
		assert.Error(t, err, label)
	}
}

func TestLabelRoundTrip(t *testing.T) {
	for label, r := range labelToRank {
		got, ok := Label(r)
		require.True(t, ok)
		assert.Equal(t, label, got)
	}

	// Owner is deliberately unassignable and has no command label.
	_, ok := Label(Owner)
	assert.False(t, ok)
}

func TestMayAssign(t *testing.T) {
	// Owner may assign every non-owner rank.
	for _, r := range []Rank{Admin, VIP1, VIP2, Pro, User, Newbie} {
		assert.True(t, MayAssign(Owner, r), string(r))
	}
	assert.False(t, MayAssign(Owner, Owner))

	// Admin may assign VIP1 and below, never Admin or Owner.
	for _, r := range []Rank{VIP1, VIP2, Pro, User, Newbie} {
		assert.True(t, MayAssign(Admin, r), string(r))
	}
	assert.False(t, MayAssign(Admin, Admin))
	assert.False(t, MayAssign(Admin, Owner))

	// Everyone else may assign nothing.
	for _, actor := range []Rank{VIP1, VIP2, Pro, User, Newbie} {
		for _, target := range All() {
			assert.False(t, MayAssign(actor, target), "%s -> %s", actor, target)
		}
	}
}

func TestIndexUnknownSortsLast(t *testing.T) {
	assert.Greater(t, Index(Rank("nonsense")), Index(Newbie))
}
