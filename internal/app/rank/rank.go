/*
Package rank defines the closed set of participant ranks, their total order,
and the permission tables governing which ranks may be assigned by whom.

All tables are package-level constants resolved at init time; the package has
no state and no side effects. The user-facing command vocabulary uses Thai
color names, so a bidirectional label mapping is provided alongside the
canonical rank identifiers.
*/
package rank

import "fmt"

// Rank is the canonical identifier for a participant's status tier.
// The zero value is not a valid rank; use Default for new accounts.
type Rank string

const (
	Owner  Rank = "owner"
	Admin  Rank = "admin"
	VIP1   Rank = "vip1"
	VIP2   Rank = "vip2"
	Pro    Rank = "pro"
	User   Rank = "user"
	Newbie Rank = "newbie"
)

// Default is the rank assigned to newly created accounts.
const Default = Newbie

// hierarchy lists all ranks from highest to lowest. The slice index is the
// rank's order key: a smaller index means a higher position in the hierarchy.
var hierarchy = []Rank{Owner, Admin, VIP1, VIP2, Pro, User, Newbie}

// permissions maps each rank to the set of ranks it may assign to others.
// Ranks absent from the map may not assign any rank.
var permissions = map[Rank]map[Rank]struct{}{
	Owner: {Admin: {}, VIP1: {}, VIP2: {}, Pro: {}, User: {}, Newbie: {}},
	Admin: {VIP1: {}, VIP2: {}, Pro: {}, User: {}, Newbie: {}},
}

// labelToRank maps the Thai color vocabulary used in chat commands to ranks.
// Owner has no label on purpose: the owner rank can never be assigned.
var labelToRank = map[string]Rank{
	"สีม่วง": Admin,
	"สีชมพู": VIP1,
	"สีส้ม":  VIP2,
	"สีแดง":  Pro,
	"สีฟ้า":  User,
	"สีเทา":  Newbie,
}

var rankToLabel = func() map[Rank]string {
	m := make(map[Rank]string, len(labelToRank))
	for label, r := range labelToRank {
		m[r] = label
	}
	return m
}()

// colors maps each rank to the display color class rendered by the client.
var colors = map[Rank]string{
	Owner:  "text-rainbow-animated",
	Admin:  "text-rank-admin",
	VIP1:   "text-rank-vip1",
	VIP2:   "text-rank-vip2",
	Pro:    "text-rank-pro",
	User:   "text-rank-user",
	Newbie: "text-gray-300",
}

// indexOf caches the hierarchy position per rank for O(1) comparisons.
var indexOf = func() map[Rank]int {
	m := make(map[Rank]int, len(hierarchy))
	for i, r := range hierarchy {
		m[r] = i
	}
	return m
}()

// IsValid reports whether r is one of the enumerated ranks.
func IsValid(r Rank) bool {
	_, ok := indexOf[r]
	return ok
}

// Index returns the rank's position in the hierarchy (0 = Owner, highest).
// Unknown ranks sort below every valid rank.
func Index(r Rank) int {
	if i, ok := indexOf[r]; ok {
		return i
	}
	return len(hierarchy)
}

// Outranks reports whether a is strictly higher in the hierarchy than b.
func Outranks(a, b Rank) bool {
	return Index(a) < Index(b)
}

// MayAssign reports whether the actor rank's permission set contains target.
// It implements the raw table lookup only; Owner-actor and Owner-target
// special cases are decided by the authorization layer.
func MayAssign(actor, target Rank) bool {
	set, ok := permissions[actor]
	if !ok {
		return false
	}
	_, ok = set[target]
	return ok
}

// FromLabel resolves a Thai color label to its canonical rank.
// An unrecognized label is an explicit error, never a default rank.
func FromLabel(label string) (Rank, error) {
	r, ok := labelToRank[label]
	if !ok {
		return "", fmt.Errorf("unrecognized rank label: %q", label)
	}
	return r, nil
}

// Label returns the Thai color label for the rank. Owner has no label and
// returns false, as do unknown ranks.
func Label(r Rank) (string, bool) {
	label, ok := rankToLabel[r]
	return label, ok
}

// IsLabel reports whether the given token is a recognized rank label.
func IsLabel(token string) bool {
	_, ok := labelToRank[token]
	return ok
}

// Color returns the display color class for the rank. Unknown ranks fall
// back to the Newbie color so a corrupted record still renders.
func Color(r Rank) string {
	if c, ok := colors[r]; ok {
		return c
	}
	return colors[Newbie]
}

// All returns the hierarchy from highest to lowest rank. Callers must not
// mutate the returned slice.
func All() []Rank {
	return hierarchy
}
