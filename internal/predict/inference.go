package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// InferenceResult is the model runner's answer. Prediction is a category
// name or "none".
type InferenceResult struct {
	Prediction string             `json:"prediction"`
	Confidence float64            `json:"confidence"`
	AllScores  map[string]float64 `json:"all_scores"`
}

// Inference is the boundary to the on-device model runner. Implementations
// take the fixed feature vector and return the model's class distribution.
// The scorer treats any error as "service unavailable" and carries on.
type Inference interface {
	Predict(ctx context.Context, features []float64) (*InferenceResult, error)
}

// HTTPInference talks to a local model-runner endpoint over HTTP.
type HTTPInference struct {
	url  string
	http *http.Client
}

func NewHTTPInference(url string) *HTTPInference {
	return &HTTPInference{
		url:  url,
		http: &http.Client{Timeout: 2 * time.Second},
	}
}

func (c *HTTPInference) Predict(ctx context.Context, features []float64) (*InferenceResult, error) {
	if len(features) != FeatureCount {
		return nil, fmt.Errorf("expected %d features, got %d", FeatureCount, len(features))
	}

	body, err := json.Marshal(map[string]any{"features": features})
	if err != nil {
		return nil, fmt.Errorf("encoding features: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling inference service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("inference service returned %d: %s", resp.StatusCode, data)
	}

	var result InferenceResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding inference response: %w", err)
	}
	return &result, nil
}
