// Package model loads the AQI regression model used by the prediction service.
package model

import (
	"context"

	"github.com/i474232898/aqi-predictor/internal/prediction"
)

// Predictor evaluates a loaded model.
type Predictor interface {
	Predict(ctx context.Context, v prediction.FeatureVector) (float64, error)
}

// Handle holds a predictor that may have failed to load. An empty Handle
// answers every Predict with prediction.ErrModelUnavailable.
type Handle struct {
	predictor Predictor
	loadErr   error
}

// NewHandle wraps a successfully loaded predictor.
func NewHandle(p Predictor) *Handle {
	return &Handle{predictor: p}
}

// Unavailable returns a Handle recording why no model could be loaded.
func Unavailable(err error) *Handle {
	return &Handle{loadErr: err}
}

func (h *Handle) Available() bool {
	return h != nil && h.predictor != nil
}

// Err returns the load error of an unavailable Handle.
func (h *Handle) Err() error {
	if h == nil {
		return prediction.ErrModelUnavailable
	}
	return h.loadErr
}

func (h *Handle) Predict(ctx context.Context, v prediction.FeatureVector) (float64, error) {
	if !h.Available() {
		return 0, prediction.ErrModelUnavailable
	}
	return h.predictor.Predict(ctx, v)
}
