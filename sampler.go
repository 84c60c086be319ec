package questionpooler

import (
	rand "math/rand/v2"
)

// RandomSelect draws up to n distinct unused questions, uniformly at random.
// Fewer than n are returned when fewer are unused. n must be at least 1.
// A nil rng uses the global source.
func RandomSelect(rng *rand.Rand, questions []*Question, n int) ([]*Question, error) {
	if n < 1 {
		return nil, &PoolError{Op: "random select", Kind: KindInvalidArgument, Requested: n}
	}

	unused := make([]*Question, 0, len(questions))
	for _, q := range questions {
		if !q.Used {
			unused = append(unused, q)
		}
	}

	n = min(n, len(unused))

	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}

	// Collect n unique random indices into the unused list
	picked := make(map[int]struct{}, n)
	indexes := make([]int, 0, n)
	for len(indexes) < n {
		i := intN(len(unused))
		if _, ok := picked[i]; ok {
			continue
		}
		picked[i] = struct{}{}
		indexes = append(indexes, i)
	}

	selection := make([]*Question, 0, n)
	for _, i := range indexes {
		selection = append(selection, unused[i])
	}
	return selection, nil
}
