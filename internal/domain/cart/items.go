// Package cart holds the local cart state and mirrors it to the server when
// the session is authenticated.
//
// The cart is a mapping from product ID to size label to a positive quantity.
// Absence of a key means zero: entries are deleted rather than zeroed, and a
// product whose last size is removed disappears entirely, so the structure
// never contains a non-positive quantity or an empty inner map.
package cart

import "sort"

// Items is the nested product -> size -> quantity mapping.
type Items map[string]map[string]int

// Set stores quantity for the (productID, size) pair. A quantity of zero or
// less deletes the entry and prunes the product if it becomes empty.
func (it Items) Set(productID, size string, quantity int) {
	if quantity <= 0 {
		sizes, ok := it[productID]
		if !ok {
			return
		}
		delete(sizes, size)
		if len(sizes) == 0 {
			delete(it, productID)
		}
		return
	}

	sizes, ok := it[productID]
	if !ok {
		sizes = make(map[string]int)
		it[productID] = sizes
	}
	sizes[size] = quantity
}

// Add increments the quantity for the (productID, size) pair, creating entries
// as needed. Non-positive increments are ignored.
func (it Items) Add(productID, size string, quantity int) {
	if quantity <= 0 {
		return
	}
	it.Set(productID, size, it.Get(productID, size)+quantity)
}

// Get returns the quantity for the (productID, size) pair, or zero.
func (it Items) Get(productID, size string) int {
	return it[productID][size]
}

// Count sums all quantities in the cart.
func (it Items) Count() int {
	total := 0
	for _, sizes := range it {
		for _, q := range sizes {
			total += q
		}
	}
	return total
}

// Empty reports whether the cart holds no items.
func (it Items) Empty() bool {
	return len(it) == 0
}

// Clone returns a deep copy.
func (it Items) Clone() Items {
	out := make(Items, len(it))
	for p, sizes := range it {
		cp := make(map[string]int, len(sizes))
		for s, q := range sizes {
			cp[s] = q
		}
		out[p] = cp
	}
	return out
}

// Line is a flattened cart entry, the shape used on the wire and in orders.
type Line struct {
	ProductID string
	Size      string
	Quantity  int
}

// Lines flattens the cart into a deterministic, sorted slice of lines.
func (it Items) Lines() []Line {
	lines := make([]Line, 0, len(it))
	for p, sizes := range it {
		for s, q := range sizes {
			lines = append(lines, Line{ProductID: p, Size: s, Quantity: q})
		}
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].ProductID != lines[j].ProductID {
			return lines[i].ProductID < lines[j].ProductID
		}
		return lines[i].Size < lines[j].Size
	})
	return lines
}
