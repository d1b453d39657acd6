package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"log/slog"

	"github.com/quantpulse/jumpsent/internal/models"
)

const (
	maxRetries     = 3
	initialBackoff = 500 * time.Millisecond
	userAgent      = "jumpsent-client/1.0 (+https://github.com/quantpulse/jumpsent)"
)

// Remote calls an HTTP sentiment analyzer that answers with a probability
// triple.
type Remote struct {
	endpoint  string
	client    *http.Client
	maxLength int
}

func NewRemote(endpoint string, timeout time.Duration) *Remote {
	return &Remote{
		endpoint:  endpoint,
		client:    &http.Client{Timeout: timeout},
		maxLength: DefaultMaxLength,
	}
}

type remoteRequest struct {
	Text      string `json:"text"`
	MaxLength int    `json:"max_length"`
}

func (r *Remote) Classify(ctx context.Context, text string) (models.Probabilities, error) {
	payload := remoteRequest{
		Text:      Truncate(text, r.maxLength),
		MaxLength: r.maxLength,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return models.Probabilities{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return models.Probabilities{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.doWithRetry(req, body)
	if err != nil {
		return models.Probabilities{}, fmt.Errorf("request failed after retries: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Probabilities{}, fmt.Errorf("analyzer returned status %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Probabilities{}, fmt.Errorf("failed to read response: %w", err)
	}

	var probs models.Probabilities
	if err := json.Unmarshal(respBody, &probs); err != nil {
		return models.Probabilities{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return probs, nil
}

func (r *Remote) doWithRetry(req *http.Request, body []byte) (*http.Response, error) {
	var resp *http.Response
	var err error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		req.Body = io.NopCloser(bytes.NewReader(body))
		resp, err = r.client.Do(req)
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}
		if attempt == maxRetries-1 {
			break
		}

		if resp != nil {
			resp.Body.Close()
		}
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}

		slog.Warn("[RemoteClassifier] Request failed, will retry",
			slog.Int("attempt", attempt+1),
			slog.String("error", errMsg(err, resp)))

		time.Sleep(backoff)
		backoff *= 2
	}

	if err != nil {
		return nil, err
	}
	return resp, nil
}

func errMsg(err error, resp *http.Response) string {
	if err != nil {
		return err.Error()
	}
	if resp != nil {
		return fmt.Sprintf("status code %d", resp.StatusCode)
	}
	return "unknown error"
}
