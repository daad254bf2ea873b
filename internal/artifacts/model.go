// Package artifacts decodes trained model artifacts and serves them from S3.
//
// An artifact is a JSON document with a "kind" of either "decision_tree" or
// "linear". Trees walk nodes from index 0, going left when
// features[feature] <= threshold, until a leaf. Linear artifacts compute
// weights·features + bias; when "labels" is set they hold one weight row and
// bias per label and predict the label with the highest score.
package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/postleo/riftinsights/internal/inference"
)

const (
	KindDecisionTree = "decision_tree"
	KindLinear       = "linear"
)

// ErrInvalidArtifact wraps every decode or validation failure.
var ErrInvalidArtifact = errors.New("invalid artifact")

// ErrFeatureCount is returned by Predict when the vector length does not match the artifact.
var ErrFeatureCount = errors.New("feature count mismatch")

type document struct {
	Kind        string `json:"kind"`
	NumFeatures int    `json:"n_features"`

	Nodes []treeNode `json:"nodes,omitempty"`

	Weights []float64   `json:"weights,omitempty"`
	Bias    float64     `json:"bias,omitempty"`
	Labels  []string    `json:"labels,omitempty"`
	Rows    [][]float64 `json:"coefficients,omitempty"`
	Biases  []float64   `json:"intercepts,omitempty"`
}

type treeNode struct {
	Leaf      bool    `json:"leaf,omitempty"`
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Label     string  `json:"label,omitempty"`
	Value     float64 `json:"value,omitempty"`
}

// Parse decodes and validates an artifact document.
func Parse(data []byte) (inference.Artifact, error) {
	if err := validateDocument(data); err != nil {
		return nil, err
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if doc.NumFeatures <= 0 {
		return nil, fmt.Errorf("%w: n_features must be positive", ErrInvalidArtifact)
	}

	switch doc.Kind {
	case KindDecisionTree:
		return newTree(doc)
	case KindLinear:
		return newLinear(doc)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidArtifact, doc.Kind)
	}
}

type decisionTree struct {
	nFeatures int
	nodes     []treeNode
}

func newTree(doc document) (*decisionTree, error) {
	if len(doc.Nodes) == 0 {
		return nil, fmt.Errorf("%w: decision tree has no nodes", ErrInvalidArtifact)
	}
	for i, n := range doc.Nodes {
		if n.Leaf {
			continue
		}
		if n.Feature < 0 || n.Feature >= doc.NumFeatures {
			return nil, fmt.Errorf("%w: node %d feature %d out of range", ErrInvalidArtifact, i, n.Feature)
		}
		// Children must point forward, which also rules out cycles.
		if n.Left <= i || n.Left >= len(doc.Nodes) || n.Right <= i || n.Right >= len(doc.Nodes) {
			return nil, fmt.Errorf("%w: node %d has invalid children", ErrInvalidArtifact, i)
		}
	}
	return &decisionTree{nFeatures: doc.NumFeatures, nodes: doc.Nodes}, nil
}

func (t *decisionTree) Predict(features []float64) (inference.Prediction, error) {
	if len(features) != t.nFeatures {
		return inference.Prediction{}, fmt.Errorf("%w: got %d, want %d", ErrFeatureCount, len(features), t.nFeatures)
	}
	i := 0
	for !t.nodes[i].Leaf {
		n := t.nodes[i]
		if features[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	leaf := t.nodes[i]
	return inference.Prediction{Label: leaf.Label, Value: leaf.Value}, nil
}

type linear struct {
	nFeatures int
	weights   []float64
	bias      float64
	labels    []string
	rows      [][]float64
	biases    []float64
}

func newLinear(doc document) (*linear, error) {
	l := &linear{
		nFeatures: doc.NumFeatures,
		weights:   doc.Weights,
		bias:      doc.Bias,
		labels:    doc.Labels,
		rows:      doc.Rows,
		biases:    doc.Biases,
	}

	if len(doc.Labels) == 0 {
		if len(doc.Weights) != doc.NumFeatures {
			return nil, fmt.Errorf("%w: %d weights for %d features", ErrInvalidArtifact, len(doc.Weights), doc.NumFeatures)
		}
		return l, nil
	}

	if len(doc.Rows) != len(doc.Labels) {
		return nil, fmt.Errorf("%w: %d coefficient rows for %d labels", ErrInvalidArtifact, len(doc.Rows), len(doc.Labels))
	}
	for i, row := range doc.Rows {
		if len(row) != doc.NumFeatures {
			return nil, fmt.Errorf("%w: row %d has %d weights", ErrInvalidArtifact, i, len(row))
		}
	}
	if l.biases == nil {
		l.biases = make([]float64, len(doc.Labels))
	} else if len(l.biases) != len(doc.Labels) {
		return nil, fmt.Errorf("%w: %d intercepts for %d labels", ErrInvalidArtifact, len(doc.Biases), len(doc.Labels))
	}
	return l, nil
}

func (l *linear) Predict(features []float64) (inference.Prediction, error) {
	if len(features) != l.nFeatures {
		return inference.Prediction{}, fmt.Errorf("%w: got %d, want %d", ErrFeatureCount, len(features), l.nFeatures)
	}
	if len(l.labels) == 0 {
		v := dot(l.weights, features) + l.bias
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return inference.Prediction{}, fmt.Errorf("%w: %v", inference.ErrNonFinitePrediction, v)
		}
		return inference.Prediction{Value: v}, nil
	}

	best := 0
	bestScore := dot(l.rows[0], features) + l.biases[0]
	for i := 1; i < len(l.rows); i++ {
		if s := dot(l.rows[i], features) + l.biases[i]; s > bestScore {
			best, bestScore = i, s
		}
	}
	return inference.Prediction{Label: l.labels[best], Value: bestScore}, nil
}

func dot(w, x []float64) float64 {
	var s float64
	for i := range w {
		s += w[i] * x[i]
	}
	return s
}
