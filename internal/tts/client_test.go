package tts

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-808/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, cred Credential) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{BaseURL: srv.URL + "/", Credential: cred, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return client
}

func TestSynthesizeSingleSpeaker(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"audio_url":"http://backend/audio/abc.wav","s3_key":"seedvc-outputs/abc.wav"}`))
	}, StaticKey("secret"))

	res, err := client.Synthesize(context.Background(), Request{
		UserID: 1,
		Type:   domain.GenerationTypeTTS,
		Text:   "hello",
		Voice:  "Kore",
	})
	require.NoError(t, err)

	assert.Equal(t, "/tts", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, map[string]any{"text": "hello", "voice": "Kore"}, gotBody)
	assert.Equal(t, "http://backend/audio/abc.wav", res.AudioURL)
	assert.Equal(t, "seedvc-outputs/abc.wav", res.S3Key)
	assert.Zero(t, res.Duration)
}

func TestSynthesizeMultiSpeaker(t *testing.T) {
	var gotPath string
	var gotBody multiSpeakerPayload
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"audio_url":"http://backend/audio/x.wav","duration":3.5}`))
	}, StaticKey("secret"))

	speakers := map[string]string{"Alice": "Kore", "Bob": "Puck"}
	res, err := client.Synthesize(context.Background(), Request{
		Type:     domain.GenerationTypeMultiSpeaker,
		Text:     "Alice: hi\nBob: hey",
		Speakers: speakers,
	})
	require.NoError(t, err)

	assert.Equal(t, "/multi-speaker", gotPath)
	assert.Equal(t, speakers, gotBody.Speakers)
	assert.Equal(t, 3.5, res.Duration)
}

func TestSynthesizeErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "detail", status: http.StatusUnauthorized, body: `{"detail":"Invalid API key"}`, wantErr: "TTS API error: Unauthorized: Invalid API key"},
		{name: "plain", status: http.StatusBadGateway, body: `oops`, wantErr: "TTS API error: Bad Gateway"},
		{name: "missing url", status: http.StatusOK, body: `{"s3_key":"k"}`, wantErr: "missing audio_url"},
		{name: "bad json", status: http.StatusOK, body: `{`, wantErr: "decode tts response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, StaticKey("secret"))

			_, err := client.Synthesize(context.Background(), Request{Type: domain.GenerationTypeTTS, Text: "x", Voice: "Kore"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSynthesizeSignedToken(t *testing.T) {
	secret := []byte("jwt-secret")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var bearer string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		bearer = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		_, _ = w.Write([]byte(`{"audio_url":"http://backend/audio/a.wav"}`))
	}, SignedToken{Secret: secret, Now: func() time.Time { return now }})

	_, err := client.Synthesize(context.Background(), Request{UserID: 42, Type: domain.GenerationTypeTTS, Text: "x", Voice: "Kore"})
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(bearer, claims, func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithTimeFunc(func() time.Time { return now }))
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, tokenIssuer, claims.Issuer)
	assert.True(t, now.Add(defaultTokenTTL).Equal(claims.ExpiresAt.Time))
}

func TestStaticKeyEmpty(t *testing.T) {
	_, err := StaticKey("").Bearer(1)
	require.Error(t, err)
}

func TestFetch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/audio/missing.wav" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "audio/x-wav")
		_, _ = w.Write([]byte("RIFF"))
	}, StaticKey("secret"))

	body, contentType, err := client.Fetch(context.Background(), client.baseURL+"/audio/a.wav")
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(data))
	assert.Equal(t, "audio/x-wav", contentType)

	_, _, err = client.Fetch(context.Background(), client.baseURL+"/audio/missing.wav")
	require.Error(t, err)
}

func TestPing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}, StaticKey("secret"))
	require.NoError(t, client.Ping(context.Background()))
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{Credential: StaticKey("k")})
	require.Error(t, err)
	_, err = NewClient(Config{BaseURL: "http://x"})
	require.Error(t, err)
}

func TestVoices(t *testing.T) {
	list := Voices()
	require.Len(t, list, 30)
	assert.Equal(t, "Achernar", list[0].Name)
	assert.True(t, KnownVoice("Kore"))
	assert.False(t, KnownVoice("kore"))
	assert.False(t, KnownVoice("Aria"))
}

func TestEstimateDuration(t *testing.T) {
	assert.InDelta(t, 5.0, EstimateDuration(100), 1e-9)
	assert.Zero(t, EstimateDuration(0))
}
