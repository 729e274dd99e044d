// Package pagerange validates page selections and groups them into output chunks.
//
// Callers speak 1-based page numbers; selections hold 0-based indices.
package pagerange

import (
	"fmt"
	"sort"

	"github.com/yourorg/pdf-service/pkg/errors"
)

// Mode selects how a page selection is built.
type Mode string

const (
	ModeRange       Mode = "range"
	ModeFixedCount  Mode = "fixed_count"
	ModeSizeBounded Mode = "size_bounded"
	ModePermutation Mode = "permutation"
	ModeDeletion    Mode = "deletion"
)

// SizeFunc measures the encoded size in bytes of a chunk made of the given
// 0-based pages.
type SizeFunc func(pages []int) (int64, error)

// Params carries the inputs of every mode. Only the fields of the chosen mode are read.
type Params struct {
	Start         int
	End           int
	PagesPerSplit int
	MaxSizeMB     float64
	Measure       SizeFunc
	Order         []int
	Delete        []int
}

// Group is one output chunk of 0-based page indices.
type Group struct {
	Pages []int
}

// Label returns the 1-based "first_to_last" name used in output filenames.
func (g Group) Label() string {
	if len(g.Pages) == 0 {
		return ""
	}
	return fmt.Sprintf("%d_to_%d", g.Pages[0]+1, g.Pages[len(g.Pages)-1]+1)
}

// Selection is a validated, ordered set of page groups.
type Selection struct {
	Mode   Mode
	Groups []Group
}

// Pages flattens all groups in order.
func (s Selection) Pages() []int {
	var out []int
	for _, g := range s.Groups {
		out = append(out, g.Pages...)
	}
	return out
}

// Sizes returns the page count of each group.
func (s Selection) Sizes() []int {
	out := make([]int, len(s.Groups))
	for i, g := range s.Groups {
		out[i] = len(g.Pages)
	}
	return out
}

// Resolve builds a Selection for a document with total pages.
func Resolve(mode Mode, p Params, total int) (Selection, error) {
	if total <= 0 {
		return Selection{}, errors.NewValidationError("Document has no pages")
	}

	var (
		groups []Group
		err    error
	)
	switch mode {
	case ModeRange:
		groups, err = resolveRange(p.Start, p.End, total)
	case ModeFixedCount:
		groups, err = resolveFixedCount(p.PagesPerSplit, total)
	case ModeSizeBounded:
		groups, err = resolveSizeBounded(p.MaxSizeMB, p.Measure, total)
	case ModePermutation:
		groups, err = resolvePermutation(p.Order, total)
	case ModeDeletion:
		groups, err = resolveDeletion(p.Delete, total)
	default:
		err = errors.NewValidationError(fmt.Sprintf("Unknown page selection mode %q", mode))
	}
	if err != nil {
		return Selection{}, err
	}
	return Selection{Mode: mode, Groups: groups}, nil
}

func resolveRange(start, end, total int) ([]Group, error) {
	if start < 1 || start > end || end > total {
		return nil, errors.NewInvalidRangeError(start, end, total)
	}
	pages := make([]int, 0, end-start+1)
	for i := start - 1; i < end; i++ {
		pages = append(pages, i)
	}
	return []Group{{Pages: pages}}, nil
}

func resolveFixedCount(n, total int) ([]Group, error) {
	if n <= 0 {
		return nil, errors.NewValidationError("pages_per_split must be greater than zero")
	}
	groups := make([]Group, 0, (total+n-1)/n)
	for first := 0; first < total; first += n {
		last := first + n
		if last > total {
			last = total
		}
		pages := make([]int, 0, last-first)
		for i := first; i < last; i++ {
			pages = append(pages, i)
		}
		groups = append(groups, Group{Pages: pages})
	}
	return groups, nil
}

// resolveSizeBounded grows each chunk one page at a time and re-measures it.
// The page that pushes a chunk over the bound stays in that chunk.
func resolveSizeBounded(maxMB float64, measure SizeFunc, total int) ([]Group, error) {
	if maxMB <= 0 {
		return nil, errors.NewValidationError("max_size_mb must be greater than zero")
	}
	if measure == nil {
		return nil, errors.NewInternalError("size-bounded split requires a size measurer")
	}
	limit := int64(maxMB * 1024 * 1024)

	var (
		groups  []Group
		current []int
	)
	for i := 0; i < total; i++ {
		current = append(current, i)
		size, err := measure(current)
		if err != nil {
			return nil, err
		}
		if size > limit || i == total-1 {
			groups = append(groups, Group{Pages: current})
			current = nil
		}
	}
	return groups, nil
}

func resolvePermutation(order []int, total int) ([]Group, error) {
	if len(order) != total {
		return nil, errors.NewInvalidOrderError(
			fmt.Sprintf("Invalid page order: expected %d pages, got %d", total, len(order)))
	}
	sorted := append([]int(nil), order...)
	sort.Ints(sorted)
	for i, v := range sorted {
		if v != i+1 {
			return nil, errors.NewInvalidOrderError(
				fmt.Sprintf("Invalid page order: must contain each page from 1 to %d exactly once", total))
		}
	}
	pages := make([]int, len(order))
	for i, v := range order {
		pages[i] = v - 1
	}
	return []Group{{Pages: pages}}, nil
}

func resolveDeletion(del []int, total int) ([]Group, error) {
	if len(del) == 0 {
		return nil, errors.NewValidationError("delete_pages must not be empty")
	}
	drop := make(map[int]struct{}, len(del))
	for _, p := range del {
		if p < 1 || p > total {
			return nil, errors.NewInvalidPageIndexError(p, total)
		}
		drop[p-1] = struct{}{}
	}
	pages := make([]int, 0, total-len(drop))
	for i := 0; i < total; i++ {
		if _, ok := drop[i]; !ok {
			pages = append(pages, i)
		}
	}
	if len(pages) == 0 {
		return nil, errors.NewValidationError("Cannot delete every page of the document")
	}
	return []Group{{Pages: pages}}, nil
}
