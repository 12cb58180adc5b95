package proptest

// OneOf returns one of values.
func OneOf[T any](g *Generator, values ...T) T {
	return values[g.Intn(len(values))]
}

// Pick returns a random element of slice.
func Pick[T any](g *Generator, slice []T) T {
	return slice[g.Intn(len(slice))]
}

// Slice returns between 0 and maxLen values from gen.
func Slice[T any](g *Generator, maxLen int, gen func(*Generator) T) []T {
	return SliceN(g, 0, maxLen, gen)
}

// SliceN returns between minLen and maxLen values from gen.
func SliceN[T any](g *Generator, minLen, maxLen int, gen func(*Generator) T) []T {
	n := g.IntRange(minLen, maxLen)
	out := make([]T, n)
	for i := range out {
		out[i] = gen(g)
	}
	return out
}

// Shuffle returns a shuffled copy of slice.
func Shuffle[T any](g *Generator, slice []T) []T {
	out := append([]T(nil), slice...)
	g.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Recursive builds a value of bounded depth: leaf is used once depth runs
// out, otherwise node may call back with depth-1.
func Recursive[T any](g *Generator, depth int, leaf func(*Generator) T, node func(g *Generator, depth int) T) T {
	if depth <= 0 || g.Chance(0.3) {
		return leaf(g)
	}
	return node(g, depth-1)
}
