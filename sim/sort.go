// sim/sort.go
//
// Stable merge sort over an intrusive singly-linked list of indices. The
// list lives inside a shared forward-link slice: element i's successor is
// links[i], and a zero link terminates the list. Sorting rewrites only the
// link values; no data moves.
//
// The algorithm is a top-down recursive merge sort that exploits
// presequencing: each leaf of the recursion grabs the longest run that is
// already in order from the front of the remaining list, so a sorted or
// mostly-sorted input needs close to n-1 comparisons instead of n log n.
// That is the common case for a scheduler bucket that received a handful of
// insertions since it was last dispatched.

package sim

// sortList sorts the list starting at head by the three-way comparator and
// returns the new head. The sort is stable: elements that compare equal keep
// their original relative order. One- and two-element lists, the most common
// cases for hash buckets, are handled by inspection.
func sortList(links []int, head int, order func(a, b int) int) int {
	n := 0
	for i := head; i != 0; i = links[i] {
		n++
	}
	if n == 0 {
		return 0
	}
	if n == 1 {
		return head
	}
	if n == 2 {
		second := links[head]
		if order(head, second) <= 0 {
			return head
		}
		links[second] = head
		links[head] = 0
		return second
	}

	s := linkSorter{links: links, order: order, curr: head}
	return s.sort(n)
}

// linkSorter carries the traversal state threaded through the recursion:
// curr is the first unsorted element remaining, and count reports how many
// elements the last sort call actually consumed (a leaf can swallow more
// than requested when it finds a pre-ordered run).
type linkSorter struct {
	links []int
	order func(a, b int) int
	curr  int
	prev  int
	count int
}

// sort orders at least n elements starting at s.curr and returns the head of
// the sorted sublist, detached from the rest of the list.
func (s *linkSorter) sort(n int) int {
	if n <= 1 {
		// Collect the longest already-ordered run from the front.
		if s.curr == 0 {
			return 0
		}
		run := s.curr
		s.count = 0
		for {
			s.prev = s.curr
			s.count++
			s.curr = s.links[s.curr]
			if s.curr == 0 {
				return run
			}
			if s.order(s.prev, s.curr) > 0 {
				break
			}
		}
		s.links[s.prev] = 0 // detach the run from the remainder
		return run
	}

	first := s.sort(n / 2)
	if n <= s.count { // the run happened to cover the whole request
		return first
	}
	sorted := s.count
	second := s.sort(n - sorted)
	s.count += sorted
	return s.merge(first, second)
}

// merge interleaves two sorted lists into one. The first list is primary: on
// equal keys its elements come out first, which is what keeps the overall
// sort stable.
func (s *linkSorter) merge(p, q int) int {
	if p == 0 {
		return q
	}
	if q == 0 {
		return p
	}

	head := p
	var prev int
	if s.order(p, q) <= 0 {
		// Advance past the primary elements that precede q.
		for {
			prev = p
			if p = s.links[p]; p == 0 {
				s.links[prev] = q
				return head
			}
			if s.order(p, q) > 0 {
				break
			}
		}
		s.links[prev] = q
	} else {
		head = q
	}

	for {
		// Scan the secondary list for an element >= the current primary
		// element, then splice the primary element in front of it.
		for {
			prev = q
			if q = s.links[q]; q == 0 {
				s.links[prev] = p
				return head
			}
			if s.order(p, q) <= 0 {
				break
			}
		}
		s.links[prev] = p

		// Scan the primary list for an element > the current secondary
		// element; ties stay with the primary list.
		for {
			prev = p
			if p = s.links[p]; p == 0 {
				s.links[prev] = q
				return head
			}
			if s.order(p, q) > 0 {
				break
			}
		}
		s.links[prev] = q
	}
}
