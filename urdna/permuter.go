package urdna

import "sort"

// Permuter enumerates the distinct permutations of a list of ids in
// lexicographic order, starting from the sorted list.
type Permuter struct {
	current []string
	last    []string
	done    bool
}

// NewPermuter returns a Permuter over a sorted copy of ids
func NewPermuter(ids []string) *Permuter {
	current := append([]string(nil), ids...)
	sort.Strings(current)
	return &Permuter{current: current}
}

// HasNext reports whether another permutation remains
func (p *Permuter) HasNext() bool { return !p.done }

// Next returns the next permutation. The returned slice is owned by
// the caller.
func (p *Permuter) Next() []string {
	p.last = append(p.last[:0], p.current...)
	result := append([]string(nil), p.current...)
	p.done = !nextPermutation(p.current)
	return result
}

// Skip discards every remaining permutation that shares the first i+1
// elements of the permutation most recently returned by Next.
func (p *Permuter) Skip(i int) {
	if p.done || p.last == nil || i+1 >= len(p.last) {
		return
	}
	// The last permutation with this prefix has its suffix in descending order.
	copy(p.current, p.last)
	sort.Sort(sort.Reverse(sort.StringSlice(p.current[i+1:])))
	p.done = !nextPermutation(p.current)
}

// nextPermutation rearranges a into its lexicographic successor,
// reporting false when a is already the greatest permutation.
func nextPermutation(a []string) bool {
	i := len(a) - 2
	for i >= 0 && a[i] >= a[i+1] {
		i--
	}
	if i < 0 {
		return false
	}
	j := len(a) - 1
	for a[j] <= a[i] {
		j--
	}
	a[i], a[j] = a[j], a[i]
	for l, r := i+1, len(a)-1; l < r; l, r = l+1, r-1 {
		a[l], a[r] = a[r], a[l]
	}
	return true
}
