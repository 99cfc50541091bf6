// Package pagination computes page windows for listings and search results.
//
// Both the thread listing and the search service page through their results
// with Compute, so rounding never differs between the two.
package pagination

import "math"

// Window describes one page of a result set.
type Window struct {
	// TotalPages is ceil(totalCount / perPage), zero iff there are no items.
	TotalPages int
	// Offset is the index of the first item on the page.
	Offset int
	// Limit is the page size the window was computed with.
	Limit int
}

// Compute returns the window for currentPage. Pages are 1-based; a page below
// 1 is treated as the first page. A perPage below 1 yields an empty window.
func Compute(currentPage, totalCount, perPage int) Window {
	if perPage < 1 {
		return Window{}
	}
	if currentPage < 1 {
		currentPage = 1
	}
	if totalCount < 0 {
		totalCount = 0
	}
	pages := totalCount / perPage
	if totalCount%perPage != 0 {
		pages++
	}
	// Pages too far out to address land past any result set.
	offset := math.MaxInt
	if currentPage-1 <= math.MaxInt/perPage {
		offset = (currentPage - 1) * perPage
	}
	return Window{
		TotalPages: pages,
		Offset:     offset,
		Limit:      perPage,
	}
}

// Bounds clamps the window to a slice of length n and returns [start, end).
// A window past the end yields start == end == n.
func (w Window) Bounds(n int) (start, end int) {
	start = min(max(w.Offset, 0), n)
	end = start + min(max(w.Limit, 0), n-start)
	return start, end
}
