package ml

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// RegressionTree is a flattened binary regression tree. Node 0 is the root.
type RegressionTree struct {
	Nodes []TreeNode `json:"nodes"`
}

type TreeNode struct {
	Feature    string  `json:"feature,omitempty"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf"`
}

func (rt *RegressionTree) Predict(ctx context.Context, features FeatureVector) ([]float64, error) {
	if len(rt.Nodes) == 0 {
		return nil, errors.New("model not loaded")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx := 0
	// A well-formed tree visits each node at most once.
	for steps := 0; steps <= len(rt.Nodes); steps++ {
		node := rt.Nodes[idx]
		if node.IsLeaf {
			return []float64{node.Value}, nil
		}
		value, ok := features.Get(node.Feature)
		if !ok {
			return nil, fmt.Errorf("feature %s missing from input", node.Feature)
		}
		if value <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(rt.Nodes) {
			return nil, errors.New("invalid tree state")
		}
	}
	return nil, errors.New("tree contains a cycle")
}

func (rt *RegressionTree) Save(path string) error {
	if len(rt.Nodes) == 0 {
		return errors.New("model not loaded")
	}
	payload, err := json.Marshal(rt)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (rt *RegressionTree) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var loaded RegressionTree
	if err := json.Unmarshal(payload, &loaded); err != nil {
		return err
	}
	if err := loaded.validate(); err != nil {
		return err
	}
	*rt = loaded
	return nil
}

func (rt *RegressionTree) validate() error {
	if len(rt.Nodes) == 0 {
		return errors.New("regression tree has no nodes")
	}
	for i, node := range rt.Nodes {
		if node.IsLeaf {
			continue
		}
		if node.Feature == "" {
			return fmt.Errorf("node %d: split without feature", i)
		}
		if !validChild(node.LeftChild, len(rt.Nodes)) || !validChild(node.RightChild, len(rt.Nodes)) {
			return fmt.Errorf("node %d: child index out of range", i)
		}
	}
	return nil
}

// Features lists the columns the tree splits on.
func (rt *RegressionTree) Features() []string {
	seen := make(map[string]bool)
	var names []string
	for _, node := range rt.Nodes {
		if node.IsLeaf || seen[node.Feature] {
			continue
		}
		seen[node.Feature] = true
		names = append(names, node.Feature)
	}
	return names
}

func validChild(idx, n int) bool {
	return idx > 0 && idx < n
}
