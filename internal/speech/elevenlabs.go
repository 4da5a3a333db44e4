// Package speech turns message text into a publicly fetchable audio asset.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"voice-dialer/internal/config"
	"voice-dialer/internal/provider"

	"github.com/google/uuid"
)

const providerName = "elevenlabs"

// maxAudioBytes bounds a single synthesized clip.
const maxAudioBytes = 20 << 20

type elevenLabsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// ElevenLabs synthesizes speech with a fixed voice and model and hands the
// MP3 bytes to an AudioStore.
type ElevenLabs struct {
	cfg   config.ElevenLabsConfig
	store AudioStore
	HTTP  *http.Client

	// newName returns the file name for a clip.
	newName  func() string
	maxBytes int64
}

func NewElevenLabs(cfg config.ElevenLabsConfig, store AudioStore, timeout time.Duration) *ElevenLabs {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ElevenLabs{
		cfg:      cfg,
		store:    store,
		HTTP:     &http.Client{Timeout: timeout},
		newName:  func() string { return "eleven_" + uuid.NewString() + ".mp3" },
		maxBytes: maxAudioBytes,
	}
}

// Synthesize returns the stored clip's reference: a relative path for the
// local store, an absolute URL for object storage.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (string, error) {
	if e.cfg.APIKey == "" {
		return "", provider.Configuration(providerName, "ELEVENLABS_API_KEY is not set")
	}
	if e.store == nil {
		return "", provider.Configuration(providerName, "audio store is not configured")
	}

	body, err := json.Marshal(elevenLabsRequest{
		Text:    text,
		ModelID: e.cfg.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       e.cfg.Stability,
			SimilarityBoost: e.cfg.SimilarityBoost,
		},
	})
	if err != nil {
		return "", err
	}

	url := strings.TrimRight(e.cfg.BaseURL, "/") + "/" + e.cfg.VoiceID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.cfg.APIKey)

	resp, err := e.HTTP.Do(req)
	if err != nil {
		return "", provider.Transport(providerName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", provider.FromStatus(providerName, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBytes+1))
	if err != nil {
		return "", provider.Transport(providerName, err)
	}
	if int64(len(audio)) > e.maxBytes {
		return "", &provider.Error{Provider: providerName, Kind: provider.KindRejected, Status: resp.StatusCode, Message: fmt.Sprintf("audio exceeds %d bytes", e.maxBytes)}
	}
	if len(audio) == 0 {
		return "", &provider.Error{Provider: providerName, Kind: provider.KindRejected, Status: resp.StatusCode, Message: "empty audio response"}
	}

	ref, err := e.store.Put(ctx, e.newName(), audio)
	if err != nil {
		return "", fmt.Errorf("store audio: %w", err)
	}
	return ref, nil
}
