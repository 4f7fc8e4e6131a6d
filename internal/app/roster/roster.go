/*
Package roster projects the full user set into the member list a single
viewer sees.

The projection is a pure function over immutable inputs so every broadcast
site computes the same list for the same state. Presence, kicks, and bans
are inputs, not stored here.
*/
package roster

import (
	"sort"
	"strings"

	"onlyfriends/internal/app/rank"
	"onlyfriends/internal/app/user"
)

// Project builds the roster shown to viewerUID.
//
// Banned and kicked users never appear. Of the rest, only users present in
// online appear, except the viewer, who always sees themself even before
// their own presence registers. The bot is appended last regardless of
// ordering; everyone else sorts by rank, then case-insensitively by name.
func Project(all []user.User, online, kicked map[string]struct{}, viewerUID string) []user.User {
	members := make([]user.User, 0, len(all)+1)
	for _, u := range all {
		if u.IsBanned {
			continue
		}
		if _, isKicked := kicked[u.UID]; isKicked {
			continue
		}
		if _, isOnline := online[u.UID]; !isOnline && u.UID != viewerUID {
			continue
		}
		members = append(members, u)
	}

	sort.SliceStable(members, func(i, j int) bool {
		ri, rj := rank.Index(members[i].Rank), rank.Index(members[j].Rank)
		if ri != rj {
			return ri < rj
		}
		return strings.ToLower(members[i].Name) < strings.ToLower(members[j].Name)
	})

	return append(members, user.Bot())
}
