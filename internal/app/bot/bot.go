/*
Package bot is the boundary to the external text-generation service that
answers slash-commands in the room.

The service is a black box: text in, text out. The only contract enforced
here is the command prefix. Input that does not start with "/" is rejected
before any network call, so the collaborator can never be reached with
general chat content.
*/
package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"onlyfriends/internal/pkg/logx"
)

// ErrNotCommand is returned when the input does not carry the command prefix.
var ErrNotCommand = errors.New("bot only accepts slash-prefixed commands")

// ErrEmptyReply is returned when the model produced no usable text.
var ErrEmptyReply = errors.New("bot returned an empty reply")

const defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// systemInstruction mirrors the room's bot persona: confirm pre-validated
// moderation commands in Thai and ignore anything without the prefix.
const systemInstruction = `You are an assistant bot in a chat room called "onlyfriends". Your name is Gemini Bot.
- You interact with users based on commands they send.
- You will receive pre-validated commands. Your primary role is to provide a confirmation message in Thai.
- If you receive a message like "/setrank [ชื่อสี] [UID]", you MUST respond with: "ดำเนินการเปลี่ยนสีให้ [UID] เป็น [ชื่อสี] เรียบร้อยแล้ว".
- For any other command starting with "/", respond helpfully and concisely.
- You MUST IGNORE all messages that DO NOT start with a forward slash "/". Do not respond to general chat.
- Your responses should be in a neutral, helpful tone.`

// Client produces a reply for a slash-command.
type Client interface {
	Reply(ctx context.Context, commandText string) (string, error)
}

// GeminiClient calls the Generative Language REST API.
type GeminiClient struct {
	apiKey   string
	model    string
	endpoint string
	http     *http.Client
	logger   zerolog.Logger
}

// Option customizes a GeminiClient.
type Option func(*GeminiClient)

// WithEndpoint overrides the API base URL (used by tests).
func WithEndpoint(url string) Option {
	return func(c *GeminiClient) { c.endpoint = strings.TrimRight(url, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *GeminiClient) { c.http = h }
}

// NewGeminiClient builds a client for the given API key and model name.
func NewGeminiClient(apiKey, model string, opts ...Option) *GeminiClient {
	c := &GeminiClient{
		apiKey:   apiKey,
		model:    model,
		endpoint: defaultEndpoint,
		http:     &http.Client{},
		logger:   logx.Component("bot"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type generateRequest struct {
	SystemInstruction content   `json:"systemInstruction"`
	Contents          []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Reply sends the command to the model and returns its text response.
// Cancellation and timeout are controlled entirely by ctx.
func (c *GeminiClient) Reply(ctx context.Context, commandText string) (string, error) {
	if !strings.HasPrefix(commandText, "/") {
		return "", ErrNotCommand
	}

	body, err := json.Marshal(generateRequest{
		SystemInstruction: content{Parts: []part{{Text: systemInstruction}}},
		Contents:          []content{{Role: "user", Parts: []part{{Text: commandText}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal bot request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.endpoint, c.model, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build bot request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("bot request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Bytes("body", payload).
			Msg("Bot API returned non-200 status")
		return "", fmt.Errorf("bot API status %d", resp.StatusCode)
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode bot response: %w", err)
	}

	var sb strings.Builder
	if len(parsed.Candidates) > 0 {
		for _, p := range parsed.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}
