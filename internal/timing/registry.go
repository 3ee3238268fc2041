package timing

import "sort"

type entry struct {
	order int
	comp  Component
}

// registry is the ordered order-key to component map of one kind. Entries
// are kept sorted by order key.
type registry struct {
	entries []entry
}

// add appends at max+1 unless explicit. An explicit key already in use
// pushes every key at or after it up by one.
func (r *registry) add(c Component, order int, explicit bool) {
	if !explicit {
		order = 1
		if n := len(r.entries); n > 0 {
			order = r.entries[n-1].order + 1
		}
		r.entries = append(r.entries, entry{order: order, comp: c})
		return
	}
	if r.occupied(order) {
		for i := range r.entries {
			if r.entries[i].order >= order {
				r.entries[i].order++
			}
		}
	}
	r.entries = append(r.entries, entry{order: order, comp: c})
	r.sort()
}

func (r *registry) remove(c Component) bool {
	for i, e := range r.entries {
		if e.comp == c {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (r *registry) orderOf(c Component) (int, bool) {
	for _, e := range r.entries {
		if e.comp == c {
			return e.order, true
		}
	}
	return 0, false
}

func (r *registry) occupied(order int) bool {
	for _, e := range r.entries {
		if e.order == order {
			return true
		}
	}
	return false
}

// reorder moves c to newOrder. An occupied target is swapped when swap is
// set; otherwise the components between the two positions shift by one
// toward the vacated key.
func (r *registry) reorder(c Component, newOrder int, swap bool) bool {
	oldOrder, ok := r.orderOf(c)
	if !ok {
		return false
	}
	if oldOrder == newOrder {
		return true
	}

	switch {
	case !r.occupied(newOrder):
		r.setOrder(c, newOrder)
	case swap:
		for i := range r.entries {
			if r.entries[i].order == newOrder {
				r.entries[i].order = oldOrder
			} else if r.entries[i].comp == c {
				r.entries[i].order = newOrder
			}
		}
	default:
		for i := range r.entries {
			o := r.entries[i].order
			switch {
			case r.entries[i].comp == c:
				r.entries[i].order = newOrder
			case newOrder > oldOrder && o > oldOrder && o <= newOrder:
				r.entries[i].order--
			case newOrder < oldOrder && o >= newOrder && o < oldOrder:
				r.entries[i].order++
			}
		}
	}
	r.sort()
	return true
}

func (r *registry) setOrder(c Component, order int) {
	for i := range r.entries {
		if r.entries[i].comp == c {
			r.entries[i].order = order
		}
	}
}

func (r *registry) components() []Component {
	out := make([]Component, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.comp
	}
	return out
}

func (r *registry) orders() []int {
	out := make([]int, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.order
	}
	return out
}

func (r *registry) sort() {
	sort.SliceStable(r.entries, func(i, j int) bool {
		return r.entries[i].order < r.entries[j].order
	})
}
