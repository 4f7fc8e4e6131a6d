package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Input
	}{
		{
			name: "empty input is a no-op",
			raw:  "",
			want: Input{Kind: KindNone},
		},
		{
			name: "whitespace only is a no-op",
			raw:  "   \t  ",
			want: Input{Kind: KindNone},
		},
		{
			name: "plain message",
			raw:  "สวัสดีครับ ทุกคน เป็นไงบ้าง",
			want: Input{Kind: KindPlain, Text: "สวัสดีครับ ทุกคน เป็นไงบ้าง"},
		},
		{
			name: "known label with target uid is a rank command",
			raw:  "สีแดง M1NT23",
			want: Input{Kind: KindRankChange, Text: "สีแดง M1NT23", Label: "สีแดง", TargetUID: "M1NT23"},
		},
		{
			name: "rank command survives surrounding whitespace",
			raw:  "  สีฟ้า ABC123  ",
			want: Input{Kind: KindRankChange, Text: "สีฟ้า ABC123", Label: "สีฟ้า", TargetUID: "ABC123"},
		},
		{
			name: "slash command goes to the bot",
			raw:  "/help",
			want: Input{Kind: KindBot, Text: "/help"},
		},
		{
			name: "slash-prefixed label is not a bare label match",
			raw:  "/สีแดง ABC123",
			want: Input{Kind: KindBot, Text: "/สีแดง ABC123"},
		},
		{
			name: "unknown label falls through to plain message",
			raw:  "สีเขียว ABC123",
			want: Input{Kind: KindPlain, Text: "สีเขียว ABC123"},
		},
		{
			name: "three tokens never match the rank shape",
			raw:  "สีแดง ABC123 extra",
			want: Input{Kind: KindPlain, Text: "สีแดง ABC123 extra"},
		},
		{
			name: "single label token alone is plain",
			raw:  "สีแดง",
			want: Input{Kind: KindPlain, Text: "สีแดง"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Parse(tc.raw))
		})
	}
}
