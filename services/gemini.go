package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiTranslator translates through the Gemini API. Without an API key it
// degrades to a passthrough, keeping the best-effort contract.
type GeminiTranslator struct {
	client *genai.Client
}

func NewGeminiTranslator() *GeminiTranslator {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		slog.Warn("GEMINI_API_KEY not set, translation disabled")
		return &GeminiTranslator{}
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		slog.Error("failed to create Gemini client", slog.String("error", err.Error()))
		return &GeminiTranslator{}
	}
	return &GeminiTranslator{client: client}
}

func (t *GeminiTranslator) Translate(ctx context.Context, text, from, to string) string {
	if skipTranslation(text, from, to) || t.client == nil {
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

func (t *GeminiTranslator) call(ctx context.Context, text, from, to string) (string, error) {
	model := t.client.GenerativeModel("gemini-1.5-flash")
	model.SetTemperature(0.2)

	source := from
	if source == "" {
		source = "the source language"
	}
	prompt := fmt.Sprintf("Translate the following text from %s to %s. Return ONLY the translated text without any explanations or quotes: %s", source, to, text)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no translation generated")
	}

	translated := ""
	for _, part := range resp.Candidates[0].Content.Parts {
		translated += fmt.Sprintf("%v", part)
	}
	return translated, nil
}
