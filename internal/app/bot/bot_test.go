package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplyRejectsNonCommands(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewGeminiClient("key", "test-model", WithEndpoint(srv.URL))

	for _, input := range []string{"", "hello", "สีแดง ABC123", "setrank without slash"} {
		_, err := c.Reply(context.Background(), input)
		assert.ErrorIs(t, err, ErrNotCommand, input)
	}

	assert.False(t, called, "non-command input must never reach the collaborator")
}

func TestReplyParsesCandidateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ดำเนินการเปลี่ยนสีให้ M1NT23 "},{"text":"เป็นสีแดงเรียบร้อยแล้ว"}]}}]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient("key", "test-model", WithEndpoint(srv.URL))

	got, err := c.Reply(context.Background(), "/setrank สีแดง M1NT23")
	require.NoError(t, err)
	assert.Equal(t, "ดำเนินการเปลี่ยนสีให้ M1NT23 เป็นสีแดงเรียบร้อยแล้ว", got)
}

func TestReplyEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient("key", "test-model", WithEndpoint(srv.URL))

	_, err := c.Reply(context.Background(), "/help")
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestReplySurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewGeminiClient("key", "test-model", WithEndpoint(srv.URL))

	_, err := c.Reply(context.Background(), "/help")
	assert.Error(t, err)
}
