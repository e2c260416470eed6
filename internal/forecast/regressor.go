package forecast

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sort"
)

// errNoSplit signals a degenerate fit (e.g. all targets identical at
// the root with no usable split); callers treat it as a leaf.
var errNoSplit = errors.New("no usable split")

// node is one node of a regression tree, stored in a flat slice so
// trees serialize cleanly. Left/Right are indexes; -1 marks a leaf.
type node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"`
}

type tree struct {
	Nodes []node `json:"nodes"`
}

func (t *tree) predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Left < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// forestConfig holds the ensemble hyperparameters.
type forestConfig struct {
	trees         int
	maxDepth      int
	minLeaf       int
	featureSubset int // features considered per split
	seed          int64
}

// Forest is a bagged ensemble of variance-reduction regression trees.
type Forest struct {
	Trees []tree `json:"trees"`
}

// Predict averages the per-tree predictions.
func (f *Forest) Predict(x []float64) float64 {
	sum := 0.0
	for i := range f.Trees {
		sum += f.Trees[i].predict(x)
	}
	return sum / float64(len(f.Trees))
}

// fitForest trains the ensemble on the given rows. Each tree gets a
// bootstrap sample and a deterministic per-tree RNG. The context is
// checked between trees so a training timeout surfaces promptly.
func fitForest(ctx context.Context, x [][]float64, y []float64, cfg forestConfig) (*Forest, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, errors.New("fit: empty or mismatched training data")
	}

	forest := &Forest{Trees: make([]tree, 0, cfg.trees)}
	for i := 0; i < cfg.trees; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rng := rand.New(rand.NewSource(cfg.seed + int64(i)))
		idx := bootstrap(len(x), rng)

		b := &treeBuilder{x: x, y: y, cfg: cfg, rng: rng}
		b.build(idx, 0)
		forest.Trees = append(forest.Trees, tree{Nodes: b.nodes})
	}
	return forest, nil
}

func bootstrap(n int, rng *rand.Rand) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.Intn(n)
	}
	return idx
}

type treeBuilder struct {
	x     [][]float64
	y     []float64
	cfg   forestConfig
	rng   *rand.Rand
	nodes []node
}

// build grows a subtree over the sample indexes and returns its root
// node index.
func (b *treeBuilder) build(idx []int, depth int) int {
	if depth >= b.cfg.maxDepth || len(idx) < 2*b.cfg.minLeaf {
		return b.leaf(idx)
	}

	feature, threshold, err := b.bestSplit(idx)
	if err != nil {
		return b.leaf(idx)
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < b.cfg.minLeaf || len(right) < b.cfg.minLeaf {
		return b.leaf(idx)
	}

	self := len(b.nodes)
	b.nodes = append(b.nodes, node{Feature: feature, Threshold: threshold, Left: -1, Right: -1})
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[self].Left = l
	b.nodes[self].Right = r
	return self
}

func (b *treeBuilder) leaf(idx []int) int {
	sum := 0.0
	for _, i := range idx {
		sum += b.y[i]
	}
	b.nodes = append(b.nodes, node{Left: -1, Right: -1, Value: sum / float64(len(idx))})
	return len(b.nodes) - 1
}

// bestSplit scans a random feature subset for the threshold minimizing
// the summed squared error of the two children. Candidates are the
// midpoints between adjacent distinct sorted values.
func (b *treeBuilder) bestSplit(idx []int) (int, float64, error) {
	dim := len(b.x[idx[0]])
	features := b.rng.Perm(dim)[:b.cfg.featureSubset]

	bestCost := math.Inf(1)
	bestFeature := -1
	bestThreshold := 0.0

	vals := make([]float64, len(idx))
	targets := make([]float64, len(idx))
	order := make([]int, len(idx))

	for _, f := range features {
		for i, sample := range idx {
			order[i] = i
			vals[i] = b.x[sample][f]
			targets[i] = b.y[sample]
		}
		sort.Slice(order, func(a, c int) bool { return vals[order[a]] < vals[order[c]] })

		// Prefix sums over the sorted order for O(n) split evaluation.
		n := len(idx)
		sum := 0.0
		sumSq := 0.0
		prefix := make([]float64, n+1)
		prefixSq := make([]float64, n+1)
		for i, o := range order {
			sum += targets[o]
			sumSq += targets[o] * targets[o]
			prefix[i+1] = sum
			prefixSq[i+1] = sumSq
		}

		for i := b.cfg.minLeaf; i <= n-b.cfg.minLeaf; i++ {
			lo := vals[order[i-1]]
			hi := vals[order[i]]
			if lo == hi {
				continue
			}

			nl := float64(i)
			nr := float64(n - i)
			sseLeft := prefixSq[i] - prefix[i]*prefix[i]/nl
			sseRight := (prefixSq[n] - prefixSq[i]) - (prefix[n]-prefix[i])*(prefix[n]-prefix[i])/nr

			cost := sseLeft + sseRight
			if cost < bestCost {
				bestCost = cost
				bestFeature = f
				bestThreshold = (lo + hi) / 2
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, errNoSplit
	}
	return bestFeature, bestThreshold, nil
}
