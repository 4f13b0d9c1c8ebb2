package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/justsurfingit/applytrail/internal/config"
	"go.uber.org/zap"
)

// TaggedToken is one element of the recognizer output. Aggregated responses carry the
// label in "entity_group", raw token responses in "entity".
type TaggedToken struct {
	Tag   string  `json:"entity_group"`
	Token string  `json:"word"`
	Score float64 `json:"score"`
}

func (t *TaggedToken) UnmarshalJSON(data []byte) error {
	var raw struct {
		EntityGroup string  `json:"entity_group"`
		Entity      string  `json:"entity"`
		Word        string  `json:"word"`
		Score       float64 `json:"score"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.Tag = raw.EntityGroup
	if t.Tag == "" {
		t.Tag = raw.Entity
	}
	t.Token = raw.Word
	t.Score = raw.Score
	return nil
}

// ErrNERStatus is wrapped by errors for non-200 responses.
var ErrNERStatus = errors.New("unexpected status from entity recognition service")

// HuggingFaceNER calls a token-classification model on the Hugging Face inference API.
type HuggingFaceNER struct {
	endpoint    string
	apiToken    string
	httpClient  *http.Client
	maxAttempts uint
	retryDelay  time.Duration
	logger      *zap.Logger
}

func NewHuggingFaceNER(cfg config.NERConfig, logger *zap.Logger) *HuggingFaceNER {
	return &HuggingFaceNER{
		endpoint:    cfg.Endpoint,
		apiToken:    cfg.APIToken,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		maxAttempts: uint(cfg.MaxAttempts),
		retryDelay:  time.Second,
		logger:      logger,
	}
}

func (c *HuggingFaceNER) Tag(ctx context.Context, text string) ([]TaggedToken, error) {
	payload, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return nil, fmt.Errorf("marshal ner request: %w", err)
	}

	var tokens []TaggedToken
	err = retry.Do(
		func() error {
			var e error
			tokens, e = c.post(ctx, payload)
			return e
		},
		retry.Attempts(c.maxAttempts),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("Retrying entity recognition", zap.Uint("attempt", n), zap.Error(err))
		}),
	)
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func (c *HuggingFaceNER) post(ctx context.Context, payload []byte) ([]TaggedToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("build ner request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call ner service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read ner response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("%w: %d: %s", ErrNERStatus, resp.StatusCode, truncate(string(body), 200))
		// The model answers 503 while it is loading; rate limits and server errors may clear up.
		if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return nil, statusErr
		}
		return nil, retry.Unrecoverable(statusErr)
	}

	var tokens []TaggedToken
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("decode ner response: %w", err))
	}
	return tokens, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
