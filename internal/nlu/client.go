package nlu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	log "log/slog"

	openai "github.com/openai/openai-go/v3"

	"alpha/pkg/intent"
)

const promptHeader = `
You are ALPHA-NLU — the intent classifier for the Alpha voice assistant.
Your ONLY job is to convert the user's utterance into a minimal structured JSON.

GENERAL RULES:
1. Do NOT converse.
2. Do NOT add explanations.
3. Output ONLY JSON. No markdown, no code fences.
4. Never invent actions or parameters outside the catalogue below.
5. If the meaning is unclear, use action "unknown" with parameters
   {"reason": "<why>", "original_command": "<the exact utterance>"}.

OUTPUT FORMAT:
{
  "action": "<string>",
  "parameters": { "<name>": "<value>", ... },
  "confidence": <0.0-1.0>
}

CONFIDENCE:
- 0.90-1.00 clear command, unambiguous intent and parameters
- 0.70-0.89 somewhat ambiguous, best guess
- below 0.50 cannot understand, use "unknown"

ACTION CATALOGUE:
`

// completer is the one network call the client makes; the OpenAI adapter
// implements it in production, tests stub it.
type completer interface {
	complete(ctx context.Context, system, user string) (string, error)
}

// errAuth marks credential rejections so Classify never retries them.
var errAuth = errors.New("authentication rejected")

type openaiCompleter struct {
	client openai.Client
	model  string
}

func (c openaiCompleter) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model: c.model,
	})
	if err != nil {
		var apierr *openai.Error
		if errors.As(err, &apierr) && (apierr.StatusCode == 401 || apierr.StatusCode == 403) {
			return "", fmt.Errorf("%w: %v", errAuth, err)
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return resp.Choices[0].Message.Content, nil
}

// Client sends utterances to the classification service. Stateless across
// calls: identical utterances may legitimately classify differently from turn
// to turn, so nothing is cached.
type Client struct {
	comp      completer
	prompt    string
	timeout   time.Duration
	retryWait time.Duration
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithRetryWait(d time.Duration) Option {
	return func(c *Client) { c.retryWait = d }
}

func New(client openai.Client, model string, schema *intent.Schema, opts ...Option) *Client {
	c := &Client{
		comp:      openaiCompleter{client: client, model: model},
		prompt:    promptHeader + schema.Description(),
		timeout:   15 * time.Second,
		retryWait: 500 * time.Millisecond,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Classify sends one utterance and returns the service's raw intent. Exactly
// one retry on transient transport failure; none on credential or shape
// problems, since a retry cannot fix those.
func (c *Client) Classify(ctx context.Context, utterance string) (intent.Raw, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	content, err := c.comp.complete(ctx, c.prompt, utterance)
	if err != nil && retryable(err) {
		log.Warn("classification transport failure, retrying once", "err", err)
		select {
		case <-time.After(c.retryWait):
		case <-ctx.Done():
			return intent.Raw{}, &ClassifyError{Kind: Unreachable, Err: ctx.Err()}
		}
		content, err = c.comp.complete(ctx, c.prompt, utterance)
	}
	if err != nil {
		if errors.Is(err, errAuth) {
			return intent.Raw{}, &ClassifyError{Kind: AuthFailed, Err: err}
		}
		return intent.Raw{}, &ClassifyError{Kind: Unreachable, Err: err}
	}

	raw, err := parseResponse(content)
	if err != nil {
		return intent.Raw{}, &ClassifyError{Kind: MalformedResponse, Err: err}
	}

	log.Debug("classified", "action", raw.Action, "confidence", raw.Confidence)
	return raw, nil
}

func retryable(err error) bool {
	if errors.Is(err, errAuth) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

// parseResponse insists on the exact structured shape. A service that answers
// in prose gets MalformedResponse, never a best-effort scrape: guessing here
// risks executing an action the user did not ask for.
func parseResponse(content string) (intent.Raw, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return intent.Raw{}, fmt.Errorf("empty message content")
	}

	var payload struct {
		Action     string         `json:"action"`
		Parameters map[string]any `json:"parameters"`
		Confidence float64        `json:"confidence"`
	}

	dec := json.NewDecoder(strings.NewReader(content))
	if err := dec.Decode(&payload); err != nil {
		return intent.Raw{}, fmt.Errorf("unmarshal NLU result: %w (raw: %s)", err, content)
	}
	if payload.Action == "" {
		return intent.Raw{}, fmt.Errorf("response has no action (raw: %s)", content)
	}

	params := make(map[string]string, len(payload.Parameters))
	for name, v := range payload.Parameters {
		switch t := v.(type) {
		case nil:
			// treated as absent
		case string:
			params[name] = t
		case float64:
			params[name] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			params[name] = strconv.FormatBool(t)
		default:
			return intent.Raw{}, fmt.Errorf("parameter %q is not a scalar (raw: %s)", name, content)
		}
	}

	return intent.Raw{
		Action:     payload.Action,
		Parameters: params,
		Confidence: payload.Confidence,
		RawText:    content,
	}, nil
}
