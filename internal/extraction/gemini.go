package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const extractPrompt = `Extract the location name from this disaster description. Return only the location name (city, state/country format if possible): %q`

// GeminiExtractor asks the Gemini generative API for the location
// named in a description.
type GeminiExtractor struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewGeminiExtractor(apiKey, baseURL string, timeout time.Duration) *GeminiExtractor {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	return &GeminiExtractor{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *GeminiExtractor) ExtractLocation(ctx context.Context, description string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{{Text: fmt.Sprintf(extractPrompt, description)}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("error encoding request: %w", err)
	}

	u := fmt.Sprintf("%s/models/gemini-pro:generateContent?key=%s", g.baseURL, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error while doing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status code: %d - body: %s", resp.StatusCode, respBody)
	}

	var data geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("error decoding resp.Body: %w", err)
	}

	if len(data.Candidates) == 0 || len(data.Candidates[0].Content.Parts) == 0 {
		return "", ErrExtractionFailed
	}

	location := strings.TrimSpace(data.Candidates[0].Content.Parts[0].Text)
	if location == "" {
		return "", ErrExtractionFailed
	}
	return location, nil
}
