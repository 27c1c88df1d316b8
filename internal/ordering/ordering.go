package ordering

import (
	"bytes"
	"slices"

	"github.com/desertthunder/plsort/internal/models"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sorter orders tracks by name using the collation rules of a language tag.
//
// A [collate.Collator] is not safe for concurrent use, so one is built per call and a Sorter can be shared.
type Sorter struct {
	tag language.Tag
}

// NewSorter creates a [Sorter] for tag. Use [language.Und] for root collation.
func NewSorter(tag language.Tag) *Sorter {
	return &Sorter{tag: tag}
}

// Tag returns the language tag used for collation.
func (s *Sorter) Tag() language.Tag {
	return s.tag
}

type keyed struct {
	key   []byte
	index int
	track models.TrackRef
}

// Sort returns a new slice with tracks in ascending, case-insensitive name order.
// Tracks with equal names keep their input order.
func (s *Sorter) Sort(tracks []models.TrackRef) []models.TrackRef {
	items := s.sorted(tracks)
	out := make([]models.TrackRef, len(items))
	for i, it := range items {
		out[i] = it.track
	}
	return out
}

// Positions returns, for each input index, the index the track takes after [Sorter.Sort].
func (s *Sorter) Positions(tracks []models.TrackRef) []int {
	positions := make([]int, len(tracks))
	for pos, it := range s.sorted(tracks) {
		positions[it.index] = pos
	}
	return positions
}

func (s *Sorter) sorted(tracks []models.TrackRef) []keyed {
	items := s.keys(tracks)
	slices.SortStableFunc(items, func(a, b keyed) int {
		return bytes.Compare(a.key, b.key)
	})
	return items
}

// IsSorted reports whether tracks are already in the order [Sorter.Sort] would produce.
func (s *Sorter) IsSorted(tracks []models.TrackRef) bool {
	items := s.keys(tracks)
	return slices.IsSortedFunc(items, func(a, b keyed) int {
		return bytes.Compare(a.key, b.key)
	})
}

func (s *Sorter) keys(tracks []models.TrackRef) []keyed {
	c := collate.New(s.tag, collate.IgnoreCase)
	var buf collate.Buffer

	items := make([]keyed, len(tracks))
	for i, t := range tracks {
		items[i] = keyed{key: bytes.Clone(c.KeyFromString(&buf, t.Name)), index: i, track: t}
		buf.Reset()
	}
	return items
}

var root = NewSorter(language.Und)

// SortTracks orders tracks with root collation. See [Sorter.Sort].
func SortTracks(tracks []models.TrackRef) []models.TrackRef {
	return root.Sort(tracks)
}

// IsSorted reports whether tracks are in root collation order.
func IsSorted(tracks []models.TrackRef) bool {
	return root.IsSorted(tracks)
}
