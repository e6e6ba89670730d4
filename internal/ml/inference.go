package ml

import (
	"fmt"
	"time"
)

// Inference is the raw output of every model in a bundle for one row.
type Inference struct {
	Version     string
	BestModel   string
	Predictions map[string]float64
	// Probability of an up move, nil when the bundle has no classifier or it failed.
	Probability *float64
	// Cluster is nil when the bundle has no regime model or it failed.
	Cluster *int
}

// Infer scales row and runs every model. A failing regressor is skipped;
// at least one must succeed.
func (b *ModelBundle) Infer(row []float64) (*Inference, error) {
	start := time.Now()
	defer func() { MLInferenceLatency.Observe(time.Since(start).Seconds()) }()

	scaled, err := b.Scaler.Transform(row)
	if err != nil {
		return nil, fmt.Errorf("failed to scale features: %w", err)
	}

	out := &Inference{
		Version:     b.Metadata.Version,
		BestModel:   b.Metadata.BestModel,
		Predictions: make(map[string]float64, len(b.Regressors)),
	}
	for _, name := range b.RegressorNames() {
		p, err := b.Regressors[name].Predict(scaled)
		if err != nil {
			MLInferenceTotal.WithLabelValues(name, "failure").Inc()
			continue
		}
		MLInferenceTotal.WithLabelValues(name, "success").Inc()
		out.Predictions[name] = p
	}
	if len(out.Predictions) == 0 {
		return nil, ErrNoRegressorOutput
	}

	if b.Classifier != nil {
		if p, err := b.Classifier.PredictProba(scaled); err == nil {
			out.Probability = &p
			MLInferenceTotal.WithLabelValues(b.Classifier.Kind(), "success").Inc()
		} else {
			MLInferenceTotal.WithLabelValues(b.Classifier.Kind(), "failure").Inc()
		}
	}

	if b.Regime != nil {
		if c, err := b.Regime.Cluster(scaled); err == nil {
			out.Cluster = &c
		}
	}
	return out, nil
}

// Chosen returns the estimate of the best model, falling back to any
// available estimate, and the name of the model that produced it.
func (i *Inference) Chosen() (string, float64) {
	if p, ok := i.Predictions[i.BestModel]; ok {
		return i.BestModel, p
	}
	// deterministic fallback
	var name string
	for n := range i.Predictions {
		if name == "" || n < name {
			name = n
		}
	}
	return name, i.Predictions[name]
}
