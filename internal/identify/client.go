// Package identify talks to the external artwork recognition webhook.
//
// One call to Identify is exactly one POST. There is no retry and no
// cancellation beyond the caller's context.
package identify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/glimpse/internal/domain"
	"github.com/MrSnakeDoc/glimpse/internal/logger"
	"github.com/MrSnakeDoc/glimpse/internal/utils"
)

// ArtworkIDPrefix starts every synthesized artwork id.
const ArtworkIDPrefix = "artwork-"

type request struct {
	ImageData string `json:"imageData"`
}

// Client sends images to the webhook and normalizes its answers.
type Client struct {
	endpoint string
	http     *http.Client
	logger   logger.Logger
	newID    func() string
}

// NewClient builds a Client. An empty endpoint is accepted here and reported
// as a ConfigurationError on every Identify call. timeout 0 keeps the
// transport default.
func NewClient(endpoint string, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		logger:   log,
		newID:    NewArtworkID,
	}
}

// Configured reports whether a webhook endpoint is set.
func (c *Client) Configured() bool {
	return c.endpoint != ""
}

// NewArtworkID returns "artwork-<uuidv7>": time ordered like the historical
// "artwork-<millis>" ids, without their collisions.
func NewArtworkID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return ArtworkIDPrefix + uuid.NewString()
	}
	return ArtworkIDPrefix + id.String()
}

// StripDataURL drops a "data:<mime>;base64," prefix, leaving the raw payload.
func StripDataURL(imageData string) string {
	if !strings.HasPrefix(imageData, "data:") {
		return imageData
	}
	if _, payload, found := strings.Cut(imageData, ","); found {
		return payload
	}
	return ""
}

// Identify posts imageData (raw base64 or a data URL) to the webhook.
// The returned result always carries a non-empty ID.
func (c *Client) Identify(ctx context.Context, imageData string) (*domain.IdentificationResult, error) {
	if !c.Configured() {
		return nil, &ConfigurationError{Reason: "identification webhook URL is not configured"}
	}

	body, err := json.Marshal(request{ImageData: StripDataURL(imageData)})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("invalid webhook URL: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("sending identification request",
		logger.String("endpoint", c.endpoint),
		logger.Int("payload_bytes", len(body)))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer utils.Close(resp.Body)

	// Read everything first: an empty body and a malformed one are different failures.
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	text := string(raw)

	c.logger.Debug("received identification response",
		logger.Int("status", resp.StatusCode),
		logger.Int("body_bytes", len(raw)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{
			Status:  resp.StatusCode,
			Message: httpErrorMessage(resp, raw),
		}
	}

	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyResponse
	}

	result, err := decodeResult(raw)
	if err != nil {
		return nil, err
	}

	if result.ID == "" {
		result.ID = c.newID()
	}
	return result, nil
}

// decodeResult fails only on bodies that are not valid JSON. Valid bodies
// that are not objects decode to an empty result.
func decodeResult(raw []byte) (*domain.IdentificationResult, error) {
	trimmed := bytes.TrimSpace(raw)

	var result domain.IdentificationResult
	if err := json.Unmarshal(trimmed, &result); err != nil {
		return nil, &MalformedResponseError{Detail: err.Error()}
	}
	result.Raw = append(json.RawMessage(nil), trimmed...)
	return &result, nil
}

// httpErrorMessage builds "API Error: <status> - <detail>" where detail is the
// JSON "message" field, the compact JSON body, or the status text.
func httpErrorMessage(resp *http.Response, raw []byte) string {
	msg := "API Error: " + strconv.Itoa(resp.StatusCode)

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return msg + " - " + statusText(resp)
	}

	if obj, ok := parsed.(map[string]any); ok {
		if m, ok := obj["message"]; ok && m != nil && m != "" {
			return msg + " - " + fmt.Sprint(m)
		}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return msg + " - " + statusText(resp)
	}
	return msg + " - " + compact.String()
}

// statusText is the reason phrase of resp, falling back to the canonical one.
func statusText(resp *http.Response) string {
	if text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))); text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
