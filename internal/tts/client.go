package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"voice-808/internal/domain"
)

const defaultTimeout = 120 * time.Second

// Request is one synthesis call. Voice is used for tts, Speakers for multi-speaker.
type Request struct {
	UserID   int64
	Type     domain.GenerationType
	Text     string
	Voice    string
	Speakers map[string]string
}

// Result is what the backend returns for a successful synthesis.
type Result struct {
	AudioURL string  `json:"audio_url"`
	S3Key    string  `json:"s3_key,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

type singleSpeakerPayload struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

type multiSpeakerPayload struct {
	Text     string            `json:"text"`
	Speakers map[string]string `json:"speakers"`
}

// Config describes how to reach the synthesis backend.
type Config struct {
	BaseURL    string
	Credential Credential
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to the external text-to-speech service over HTTP.
type Client struct {
	baseURL    string
	credential Credential
	http       *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("tts base url is required")
	}
	if cfg.Credential == nil {
		return nil, errors.New("tts credential is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    base,
		credential: cfg.Credential,
		http:       httpClient,
	}, nil
}

// Synthesize posts the request to /tts or /multi-speaker depending on its type.
func (c *Client) Synthesize(ctx context.Context, req Request) (*Result, error) {
	var (
		endpoint string
		payload  any
	)
	switch req.Type {
	case domain.GenerationTypeMultiSpeaker:
		endpoint = "/multi-speaker"
		payload = multiSpeakerPayload{Text: req.Text, Speakers: req.Speakers}
	case domain.GenerationTypeTTS, "":
		endpoint = "/tts"
		payload = singleSpeakerPayload{Text: req.Text, Voice: req.Voice}
	default:
		return nil, fmt.Errorf("unknown generation type %q", req.Type)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode tts request: %w", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, c.baseURL+endpoint, req.UserID, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call tts api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apiError(resp)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode tts response: %w", err)
	}
	if strings.TrimSpace(result.AudioURL) == "" {
		return nil, errors.New("tts response missing audio_url")
	}
	return &result, nil
}

// Fetch downloads a generated audio file. The caller closes the body.
func (c *Client) Fetch(ctx context.Context, url string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build audio request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download audio: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, "", apiError(resp)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/wav"
	}
	return resp.Body, contentType, nil
}

// Ping checks that the backend answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+"/health", 0, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ping tts api: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, url string, userID int64, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build tts request: %w", err)
	}
	bearer, err := c.credential.Bearer(userID)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func apiError(resp *http.Response) error {
	var body struct {
		Detail string `json:"detail"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &body); err == nil && body.Detail != "" {
		return fmt.Errorf("TTS API error: %s: %s", http.StatusText(resp.StatusCode), body.Detail)
	}
	return fmt.Errorf("TTS API error: %s", http.StatusText(resp.StatusCode))
}

// EstimateDuration approximates audio length when the backend does not report it.
func EstimateDuration(characters int) float64 {
	return float64(characters) * 0.05
}
