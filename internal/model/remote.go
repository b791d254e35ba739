package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/i474232898/aqi-predictor/internal/prediction"
)

// RemoteModel delegates prediction to an HTTP ML service.
type RemoteModel struct {
	endpoint string
	client   *http.Client
}

// NewRemote creates a RemoteModel. A nil client gets a 10 second timeout.
func NewRemote(endpoint string, client *http.Client) *RemoteModel {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RemoteModel{endpoint: endpoint, client: client}
}

type remoteRequest struct {
	Features     []float64 `json:"features"`
	FeatureNames []string  `json:"feature_names"`
}

type remoteResponse struct {
	Prediction *float64 `json:"prediction"`
}

func (m *RemoteModel) Predict(ctx context.Context, v prediction.FeatureVector) (float64, error) {
	body, err := json.Marshal(remoteRequest{
		Features:     v[:],
		FeatureNames: prediction.FeatureOrder[:],
	})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal ML request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create ML request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("ML service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("ML service returned status: %d", resp.StatusCode)
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to decode ML response: %w", err)
	}
	if out.Prediction == nil {
		return 0, fmt.Errorf("ML response has no prediction")
	}
	return *out.Prediction, nil
}
