package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"time"
)

// HTTPDetector calls a model-serving endpoint that accepts a JPEG and
// returns labeled boxes.
type HTTPDetector struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewHTTPDetector(baseURL, model string) *HTTPDetector {
	return &HTTPDetector{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type detectResponse struct {
	Boxes []Box `json:"boxes"`
	Error string `json:"error,omitempty"`
}

func (d *HTTPDetector) Detect(ctx context.Context, img image.Image) ([]Box, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	url := fmt.Sprintf("%s/detect/%s", d.baseURL, d.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call detector %s: %w", d.model, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read detector response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector %s returned status %d: %s", d.model, resp.StatusCode, string(body))
	}

	var parsed detectResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal detector response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("detector %s error: %s", d.model, parsed.Error)
	}

	return parsed.Boxes, nil
}
