// Package tts synthesizes speech through an OpenAI-compatible API and keeps
// the rendered audio in a local cache.
package tts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/text/language"

	openai "github.com/sashabaranov/go-openai"
)

// Config holds the speech endpoint settings.
type Config struct {
	BaseURL  string // OpenAI-compatible API base URL; empty uses the default
	APIKey   string
	Model    string  // e.g. "tts-1"
	Voice    string  // e.g. "alloy"
	Speed    float64 // 0.25 to 4.0; children's lessons use 0.8
	CacheDir string  // where synthesized audio is kept
}

// Client wraps an OpenAI-compatible speech API and caches results on disk.
type Client struct {
	api      *openai.Client
	model    openai.SpeechModel
	voice    openai.SpeechVoice
	speed    float64
	cacheDir string
	mu       sync.Mutex
}

// New creates a new speech client.
func New(cfg Config) (*Client, error) {
	if cfg.CacheDir == "" {
		return nil, fmt.Errorf("tts: cache directory is required")
	}
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("tts: create cache dir: %w", err)
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = string(openai.TTSModel1)
	}
	voice := cfg.Voice
	if voice == "" {
		voice = string(openai.VoiceAlloy)
	}
	return &Client{
		api:      openai.NewClientWithConfig(config),
		model:    openai.SpeechModel(model),
		voice:    openai.SpeechVoice(voice),
		speed:    cfg.Speed,
		cacheDir: cfg.CacheDir,
	}, nil
}

// Synthesize returns the path of an MP3 rendering of text, calling the API
// only when no cached file exists.
func (c *Client) Synthesize(ctx context.Context, text string, locale language.Tag) (string, error) {
	path := filepath.Join(c.cacheDir, c.cacheKey(text, locale)+".mp3")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another request may have filled the cache while we waited.
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	resp, err := c.api.CreateSpeech(ctx, c.request(text))
	if err != nil {
		return "", fmt.Errorf("speech API call: %w", err)
	}
	defer resp.Close()

	tmp, err := os.CreateTemp(c.cacheDir, "speech-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write audio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close audio: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("store audio: %w", err)
	}

	slog.Debug("synthesized speech", "text", text, "locale", locale.String(), "path", path)
	return path, nil
}

func (c *Client) request(text string) openai.CreateSpeechRequest {
	return openai.CreateSpeechRequest{
		Model:          c.model,
		Input:          text,
		Voice:          c.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          c.speed,
	}
}

// cacheKey identifies a rendering by voice settings, locale and text.
func (c *Client) cacheKey(text string, locale language.Tag) string {
	id := fmt.Sprintf("%s:%s:%g:%s:%s", c.model, c.voice, c.speed, locale, text)
	h := sha256.Sum256([]byte(id))
	return hex.EncodeToString(h[:16])
}
