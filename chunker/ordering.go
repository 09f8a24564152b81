package chunker

import (
	"cmp"
	"slices"

	"github.com/boazelbom-creator/etl2/core"
)

// OrderComments returns a post's comments sorted by (priority ascending,
// text length ascending). A nil priority sorts after every explicit
// priority. The sort is stable, so comments equal on both keys keep their
// retrieval order. The input slice is left untouched.
func OrderComments(comments []*core.Comment) []*core.Comment {
	ordered := slices.Clone(comments)
	slices.SortStableFunc(ordered, compareComments)
	return ordered
}

// SplitComments splits an ordered comment sequence into the single
// "important answer" comment and the remaining "other comments".
// An empty sequence yields (nil, nil).
func SplitComments(ordered []*core.Comment) (first *core.Comment, rest []*core.Comment) {
	if len(ordered) == 0 {
		return nil, nil
	}
	return ordered[0], ordered[1:]
}

func compareComments(a, b *core.Comment) int {
	if c := comparePriority(a.Priority, b.Priority); c != 0 {
		return c
	}
	return cmp.Compare(a.TextLength, b.TextLength)
}

func comparePriority(a, b *int64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return cmp.Compare(*a, *b)
	}
}
