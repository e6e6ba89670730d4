package ml

import (
	"encoding/json"
	"fmt"
)

// envelope tags a serialized estimator with its kind.
type envelope struct {
	Kind   string          `json:"kind"`
	Params json.RawMessage `json:"params"`
}

type bundleJSON struct {
	Metadata   Metadata            `json:"metadata"`
	Scaler     *StandardScaler     `json:"scaler"`
	Regressors map[string]envelope `json:"regressors"`
	Classifier *envelope           `json:"classifier,omitempty"`
	Reducer    *envelope           `json:"reducer,omitempty"`
	Clusterer  *envelope           `json:"clusterer,omitempty"`
}

type decodeFunc func(json.RawMessage) (interface{}, error)

func decodeInto[T any](target T) decodeFunc {
	return func(raw json.RawMessage) (interface{}, error) {
		if err := json.Unmarshal(raw, target); err != nil {
			return nil, err
		}
		return target, nil
	}
}

var decoders = map[string]func() decodeFunc{
	KindRidge:    func() decodeFunc { return decodeInto(&RidgeRegressor{}) },
	KindLinear:   func() decodeFunc { return decodeInto(&RidgeRegressor{}) },
	KindKNN:      func() decodeFunc { return decodeInto(&KNNRegressor{}) },
	KindLogistic: func() decodeFunc { return decodeInto(&LogisticClassifier{}) },
	KindPCA:      func() decodeFunc { return decodeInto(&PCA{}) },
	KindKMeans:   func() decodeFunc { return decodeInto(&KMeans{}) },
}

func wrap(kind string, model interface{}) (envelope, error) {
	params, err := json.Marshal(model)
	if err != nil {
		return envelope{}, fmt.Errorf("failed to encode %s: %w", kind, err)
	}
	return envelope{Kind: kind, Params: params}, nil
}

func unwrap(env envelope) (interface{}, error) {
	factory, ok := decoders[env.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModelKind, env.Kind)
	}
	model, err := factory()(env.Params)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", env.Kind, err)
	}
	return model, nil
}

// EncodeBundle serializes a bundle to JSON.
func EncodeBundle(b *ModelBundle) ([]byte, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	out := bundleJSON{
		Metadata:   b.Metadata,
		Scaler:     b.Scaler,
		Regressors: make(map[string]envelope, len(b.Regressors)),
	}
	for name, reg := range b.Regressors {
		env, err := wrap(reg.Kind(), reg)
		if err != nil {
			return nil, err
		}
		out.Regressors[name] = env
	}
	if b.Classifier != nil {
		env, err := wrap(b.Classifier.Kind(), b.Classifier)
		if err != nil {
			return nil, err
		}
		out.Classifier = &env
	}
	if b.Regime != nil {
		reducer, err := wrap(b.Regime.Reducer.Kind(), b.Regime.Reducer)
		if err != nil {
			return nil, err
		}
		clusterer, err := wrap(b.Regime.Clusterer.Kind(), b.Regime.Clusterer)
		if err != nil {
			return nil, err
		}
		out.Reducer = &reducer
		out.Clusterer = &clusterer
	}

	return json.Marshal(out)
}

// DecodeBundle restores a bundle written by EncodeBundle.
func DecodeBundle(data []byte) (*ModelBundle, error) {
	var raw bundleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse bundle: %w", err)
	}

	b := &ModelBundle{
		Metadata:   raw.Metadata,
		Scaler:     raw.Scaler,
		Regressors: make(map[string]Regressor, len(raw.Regressors)),
	}
	for name, env := range raw.Regressors {
		model, err := unwrap(env)
		if err != nil {
			return nil, err
		}
		reg, ok := model.(Regressor)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a regressor", ErrUnknownModelKind, env.Kind)
		}
		b.Regressors[name] = reg
	}

	if raw.Classifier != nil {
		model, err := unwrap(*raw.Classifier)
		if err != nil {
			return nil, err
		}
		cls, ok := model.(Classifier)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a classifier", ErrUnknownModelKind, raw.Classifier.Kind)
		}
		b.Classifier = cls
	}

	if raw.Reducer != nil && raw.Clusterer != nil {
		rm, err := unwrap(*raw.Reducer)
		if err != nil {
			return nil, err
		}
		cm, err := unwrap(*raw.Clusterer)
		if err != nil {
			return nil, err
		}
		reducer, ok := rm.(Reducer)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a reducer", ErrUnknownModelKind, raw.Reducer.Kind)
		}
		clusterer, ok := cm.(Clusterer)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a clusterer", ErrUnknownModelKind, raw.Clusterer.Kind)
		}
		b.Regime = &RegimeModel{Reducer: reducer, Clusterer: clusterer}
	}

	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}
