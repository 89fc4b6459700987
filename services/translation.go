package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultLingoURL = "https://api.lingo.dev/v1/translate"

// Translator converts text between locales on a best-effort basis. An
// implementation never fails: when the provider is unreachable or returns
// garbage it hands back the original text, so translation can never break
// report creation or retrieval.
type Translator interface {
	Translate(ctx context.Context, text, from, to string) string
}

// NewTranslatorFromEnv picks the provider from TRANSLATION_PROVIDER
// ("gemini" or the default Lingo HTTP API).
func NewTranslatorFromEnv() Translator {
	if strings.EqualFold(os.Getenv("TRANSLATION_PROVIDER"), "gemini") {
		return NewGeminiTranslator()
	}
	return NewLingoTranslator()
}

// LingoTranslator calls the Lingo translate API. Stateless, safe for
// concurrent use.
type LingoTranslator struct {
	apiURL string
	apiKey string
	client *http.Client
}

func NewLingoTranslator() *LingoTranslator {
	apiURL := os.Getenv("LINGO_API_URL")
	if apiURL == "" {
		apiURL = defaultLingoURL
	}
	return &LingoTranslator{
		apiURL: apiURL,
		apiKey: os.Getenv("LINGO_API_KEY"),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *LingoTranslator) Translate(ctx context.Context, text, from, to string) string {
	if skipTranslation(text, from, to) {
		return text
	}
	if t.apiKey == "" {
		return text
	}

	translated, err := t.call(ctx, text, from, to)
	if err != nil {
		slog.Warn("translation failed, falling back to original text",
			slog.String("target", to), slog.String("error", err.Error()))
		return text
	}
	return translated
}

func (t *LingoTranslator) call(ctx context.Context, text, from, to string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"text":            text,
		"source_language": from,
		"target_language": to,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("provider returned %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		TranslatedText string `json:"translated_text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.TranslatedText == "" {
		return "", fmt.Errorf("provider returned empty translation")
	}
	return result.TranslatedText, nil
}

// skipTranslation implements the short-circuit: empty text, missing target,
// or a known source equal to the target never hits the provider.
func skipTranslation(text, from, to string) bool {
	if text == "" || to == "" {
		return true
	}
	return from != "" && strings.EqualFold(from, to)
}
