package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onlyfriends/internal/app/rank"
	"onlyfriends/internal/app/user"
)

func TestNewMessageMarshalsPayloadInPlace(t *testing.T) {
	sender := user.User{UID: "USR001", Name: "Alice", Rank: rank.User}

	msg, err := NewMessage(TypeText, "OnlyFriends", sender, TextPayload{Content: "สวัสดี"})
	require.NoError(t, err)

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, TypeText, msg.Type)
	assert.Equal(t, "OnlyFriends", msg.Room)
	assert.NotZero(t, msg.Timestamp)

	var payload TextPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, "สวัสดี", payload.Content)
}

func TestNewMessageNilPayload(t *testing.T) {
	msg, err := NewMessage(TypeBotTyping, "OnlyFriends", user.Bot(), nil)
	require.NoError(t, err)
	assert.Nil(t, msg.Payload)
}

func TestNewMessageIDsAreUnique(t *testing.T) {
	a, err := NewMessage(TypeSystem, "OnlyFriends", SystemUser, TextPayload{Content: "x"})
	require.NoError(t, err)
	b, err := NewMessage(TypeSystem, "OnlyFriends", SystemUser, TextPayload{Content: "x"})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestEnvelopeOmitsHiddenUserFields(t *testing.T) {
	sender := user.User{
		UID:      "USR001",
		Name:     "Alice",
		Email:    "alice@example.com",
		Rank:     rank.User,
		IsBanned: true,
	}

	msg, err := NewMessage(TypeText, "OnlyFriends", sender, TextPayload{Content: "hi"})
	require.NoError(t, err)

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	assert.NotContains(t, string(raw), "alice@example.com")
	assert.NotContains(t, string(raw), "isBanned")
}
