package ml

import (
	"math"
	"math/rand"
)

// IsolationForest is an unsupervised anomaly detector built from random
// partitioning trees. Points that are isolated in fewer random splits
// (shorter average path length) are more anomalous.
//
// The anomaly score is mapped to [0,1] via 2^(-avgPath/c(sampleSize));
// scores near 1 mean isolated (anomalous), scores near 0.5 or below mean
// normal. The 0.5 decision threshold is a fixed convention, not derived
// from any contamination rate.
type IsolationForest struct {
	nTrees     int
	sampleSize int
	threshold  float64
	rng        *rand.Rand

	trees  []*isoNode
	cNorm  float64 // expected path length c(effective sample size)
	fitted bool
}

// isoNode is a node in an isolation tree. Internal nodes carry a split,
// leaves carry the residual partition size and termination depth.
type isoNode struct {
	splitFeature int
	splitValue   float64
	left, right  *isoNode

	leaf  bool
	size  int
	depth int
}

// NewIsolationForest creates a forest with the given ensemble size. The
// seed fixes the random source so that Fit followed by Score is fully
// reproducible.
func NewIsolationForest(nTrees, sampleSize int, seed int64) *IsolationForest {
	return &IsolationForest{
		nTrees:     nTrees,
		sampleSize: sampleSize,
		threshold:  0.5,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Name implements Model.
func (f *IsolationForest) Name() string { return ModelIsolationForest }

// Fit builds nTrees isolation trees, each on a uniform random subsample of
// size min(sampleSize, len(X)) drawn without replacement. A branch stops
// when the partition holds at most one point or the depth bound
// ceil(log2(subsample size)) is reached.
func (f *IsolationForest) Fit(X [][]float64) error {
	if len(X) == 0 {
		return ErrInvalidInput
	}

	ss := f.sampleSize
	if len(X) < ss {
		ss = len(X)
	}
	maxDepth := int(math.Ceil(math.Log2(float64(ss))))
	if maxDepth < 1 {
		maxDepth = 1
	}

	f.trees = make([]*isoNode, 0, f.nTrees)
	for i := 0; i < f.nTrees; i++ {
		sample := f.subsample(X, ss)
		f.trees = append(f.trees, f.buildTree(sample, 0, maxDepth))
	}

	f.cNorm = expectedPathLength(ss)
	f.fitted = true
	return nil
}

// subsample draws n rows from X uniformly without replacement.
func (f *IsolationForest) subsample(X [][]float64, n int) [][]float64 {
	idx := f.rng.Perm(len(X))[:n]
	sample := make([][]float64, n)
	for i, j := range idx {
		sample[i] = X[j]
	}
	return sample
}

// buildTree recursively partitions points on a uniformly random feature and
// a uniformly random split value within that feature's observed range.
func (f *IsolationForest) buildTree(points [][]float64, depth, maxDepth int) *isoNode {
	if len(points) <= 1 || depth >= maxDepth {
		return &isoNode{leaf: true, size: len(points), depth: depth}
	}

	feature, minVal, maxVal, ok := f.pickSplitFeature(points)
	if !ok {
		// Every feature is constant across the partition; the points are
		// indistinguishable and the branch terminates here.
		return &isoNode{leaf: true, size: len(points), depth: depth}
	}

	split := minVal + f.rng.Float64()*(maxVal-minVal)

	var left, right [][]float64
	for _, p := range points {
		if p[feature] < split {
			left = append(left, p)
		} else {
			right = append(right, p)
		}
	}

	return &isoNode{
		splitFeature: feature,
		splitValue:   split,
		left:         f.buildTree(left, depth+1, maxDepth),
		right:        f.buildTree(right, depth+1, maxDepth),
	}
}

// pickSplitFeature chooses a random feature with non-zero spread in the
// current partition and returns its observed range.
func (f *IsolationForest) pickSplitFeature(points [][]float64) (feature int, minVal, maxVal float64, ok bool) {
	order := f.rng.Perm(len(points[0]))
	for _, feat := range order {
		lo, hi := points[0][feat], points[0][feat]
		for _, p := range points[1:] {
			if p[feat] < lo {
				lo = p[feat]
			}
			if p[feat] > hi {
				hi = p[feat]
			}
		}
		if hi > lo {
			return feat, lo, hi, true
		}
	}
	return 0, 0, 0, false
}

// Score returns the anomaly score for one feature vector: the average path
// length over all trees, normalized by the expected path length for the
// configured sample size and mapped through 2^(-avg/c).
func (f *IsolationForest) Score(x []float64) (float64, error) {
	if !f.fitted {
		return 0, ErrNotFitted
	}
	if len(x) != NumFeatures {
		return 0, ErrInvalidInput
	}

	var total float64
	for _, tree := range f.trees {
		total += pathLength(tree, x)
	}
	avg := total / float64(len(f.trees))

	return math.Pow(2, -avg/f.cNorm), nil
}

// Predict implements Model: anomaly iff score exceeds the 0.5 threshold.
func (f *IsolationForest) Predict(x []float64) (ModelResult, error) {
	score, err := f.Score(x)
	if err != nil {
		return ModelResult{}, err
	}
	return ModelResult{IsAnomaly: score > f.threshold, Score: score}, nil
}

// pathLength walks x down one tree and returns the depth of the terminal
// leaf plus the expected-path-length correction for its residual size.
func pathLength(node *isoNode, x []float64) float64 {
	for !node.leaf {
		if x[node.splitFeature] < node.splitValue {
			node = node.left
		} else {
			node = node.right
		}
	}
	return float64(node.depth) + expectedPathLength(node.size)
}

// expectedPathLength is the closed-form average path length of an
// unsuccessful BST search over n points: c(n) = 2H(n-1) - 2(n-1)/n, with
// c(0) = c(1) = 0. This correction keeps scores comparable across leaves
// of different residual size.
func expectedPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	return 2*harmonic(n-1) - 2*float64(n-1)/float64(n)
}

// harmonic returns the n-th harmonic number H(n) = sum(1/i, i=1..n).
func harmonic(n int) float64 {
	var h float64
	for i := 1; i <= n; i++ {
		h += 1 / float64(i)
	}
	return h
}
