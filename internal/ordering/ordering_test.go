package ordering

import (
	"slices"
	"testing"

	"github.com/desertthunder/plsort/internal/models"
	"golang.org/x/text/language"
)

func names(tracks []models.TrackRef) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.Name
	}
	return out
}

func TestSortTracks(t *testing.T) {
	t.Run("Case-insensitive order", func(t *testing.T) {
		input := []models.TrackRef{
			{URI: "u1", Name: "Zebra"},
			{URI: "u2", Name: "apple"},
			{URI: "u3", Name: "Mango"},
		}

		got := models.URIs(SortTracks(input))
		want := []string{"u2", "u3", "u1"}
		if !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("Does not mutate input", func(t *testing.T) {
		input := []models.TrackRef{{URI: "u1", Name: "b"}, {URI: "u2", Name: "a"}}
		before := slices.Clone(input)

		_ = SortTracks(input)
		if !slices.Equal(input, before) {
			t.Errorf("expected input unchanged, got %v", input)
		}
	})

	t.Run("Stable for equal names", func(t *testing.T) {
		input := []models.TrackRef{
			{URI: "u1", Name: "Song"},
			{URI: "u2", Name: "Alpha"},
			{URI: "u3", Name: "song"},
			{URI: "u4", Name: "SONG"},
		}

		got := models.URIs(SortTracks(input))
		want := []string{"u2", "u1", "u3", "u4"}
		if !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		input := []models.TrackRef{
			{URI: "u1", Name: "delta"},
			{URI: "u2", Name: "Charlie"},
			{URI: "u3", Name: "bravo"},
			{URI: "u4", Name: "Alpha"},
			{URI: "u5", Name: "charlie"},
		}

		once := SortTracks(input)
		twice := SortTracks(once)
		if !slices.Equal(once, twice) {
			t.Errorf("expected %v, got %v", once, twice)
		}
		if !IsSorted(once) {
			t.Error("expected sorted output to report as sorted")
		}
		if IsSorted(input) {
			t.Error("expected unsorted input to report as unsorted")
		}
	})

	t.Run("Empty and single", func(t *testing.T) {
		if got := SortTracks(nil); len(got) != 0 {
			t.Errorf("expected empty result, got %v", got)
		}

		one := []models.TrackRef{{URI: "u1", Name: "only"}}
		if got := SortTracks(one); !slices.Equal(got, one) {
			t.Errorf("expected %v, got %v", one, got)
		}
		if !IsSorted(nil) {
			t.Error("expected empty sequence to be sorted")
		}
	})

	t.Run("Empty names sort first", func(t *testing.T) {
		input := []models.TrackRef{{URI: "u1", Name: "b"}, {URI: "u2", Name: ""}}
		got := models.URIs(SortTracks(input))
		if !slices.Equal(got, []string{"u2", "u1"}) {
			t.Errorf("expected [u2 u1], got %v", got)
		}
	})

	t.Run("Accented letters collate with base letters", func(t *testing.T) {
		input := []models.TrackRef{
			{URI: "u1", Name: "Zoo"},
			{URI: "u2", Name: "Éclair"},
			{URI: "u3", Name: "apple"},
		}

		got := names(SortTracks(input))
		want := []string{"apple", "Éclair", "Zoo"}
		if !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})
}

func TestSorter(t *testing.T) {
	t.Run("Locale rules", func(t *testing.T) {
		input := []models.TrackRef{
			{URI: "u1", Name: "ö"},
			{URI: "u2", Name: "z"},
		}

		root := NewSorter(language.Und)
		if got := names(root.Sort(input)); !slices.Equal(got, []string{"ö", "z"}) {
			t.Errorf("expected root collation [ö z], got %v", got)
		}

		swedish := NewSorter(language.Swedish)
		if got := names(swedish.Sort(input)); !slices.Equal(got, []string{"z", "ö"}) {
			t.Errorf("expected swedish collation [z ö], got %v", got)
		}
		if swedish.Tag() != language.Swedish {
			t.Errorf("expected tag %v, got %v", language.Swedish, swedish.Tag())
		}
	})

	t.Run("Positions", func(t *testing.T) {
		input := []models.TrackRef{
			{URI: "u1", Name: "Zebra"},
			{URI: "u2", Name: "apple"},
			{URI: "u3", Name: "Mango"},
		}

		got := NewSorter(language.Und).Positions(input)
		if want := []int{2, 0, 1}; !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})
}
