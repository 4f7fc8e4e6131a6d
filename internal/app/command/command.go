/*
Package command classifies raw chat input into the action it represents.

Classification is purely syntactic: a rank-change command is recognized by
shape (exactly two whitespace-separated tokens whose first token is a known
rank label) without validating that the target exists. Resolution of the
target and permission checks happen downstream in the moderation layer.
*/
package command

import (
	"strings"

	"onlyfriends/internal/app/rank"
)

// Kind discriminates the parsed input variants.
type Kind int

const (
	// KindNone is the result of empty or whitespace-only input.
	KindNone Kind = iota

	// KindPlain is an ordinary chat message.
	KindPlain

	// KindRankChange is a two-token "<label> <uid>" rank assignment.
	KindRankChange

	// KindBot is a slash-prefixed command for the bot collaborator.
	KindBot
)

// BotPrefix is the character that routes a message to the bot collaborator.
const BotPrefix = "/"

// Input is the classification result for one line of chat input.
type Input struct {
	Kind Kind

	// Text is the trimmed original input. Empty only for KindNone.
	Text string

	// Label and TargetUID are set for KindRankChange. TargetUID is taken
	// verbatim from the input and may not refer to an existing user.
	Label     string
	TargetUID string
}

// Parse classifies one line of raw chat input.
//
// The rank-change shape is checked before the bot prefix: "สีแดง M1NT23" is
// always a rank command, while "/สีแดง M1NT23" starts with the prefix rather
// than a bare label and therefore goes to the bot.
func Parse(raw string) Input {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Input{Kind: KindNone}
	}

	if parts := strings.Fields(text); len(parts) == 2 && rank.IsLabel(parts[0]) {
		return Input{
			Kind:      KindRankChange,
			Text:      text,
			Label:     parts[0],
			TargetUID: parts[1],
		}
	}

	if strings.HasPrefix(text, BotPrefix) {
		return Input{Kind: KindBot, Text: text}
	}

	return Input{Kind: KindPlain, Text: text}
}
