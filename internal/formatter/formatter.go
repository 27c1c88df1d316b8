// package formatter renders a playlist's track listing in various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/desertthunder/plsort/internal/models"
	"github.com/desertthunder/plsort/internal/shared"
)

// Format names an export format.
type Format string

const (
	CSV      Format = "csv"
	Markdown Format = "md"
	Text     Format = "txt"
	JSON     Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case CSV, Markdown, Text, JSON:
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown format %q (csv, md, txt, json)", shared.ErrInvalidInput, s)
}

// Listing is a playlist's tracks in stored order. SortedPositions, when set, holds each track's zero-based
// position after sorting.
type Listing struct {
	Playlist        models.Playlist   `json:"playlist"`
	Tracks          []models.TrackRef `json:"tracks"`
	SortedPositions []int             `json:"sortedPositions,omitempty"`
}

func (l *Listing) sortedPosition(i int) string {
	if i >= len(l.SortedPositions) {
		return ""
	}
	return strconv.Itoa(l.SortedPositions[i] + 1)
}

func visibility(public bool) string {
	if public {
		return "Public"
	}
	return "Private"
}

// ExportToCSV converts a Listing to CSV format with columns: Position, Sorted Position, Name, URI, Local
func ExportToCSV(l *Listing) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Sorted Position", "Name", "URI", "Local"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range l.Tracks {
		record := []string{
			strconv.Itoa(i + 1),
			l.sortedPosition(i),
			track.Name,
			track.URI,
			strconv.FormatBool(track.Local),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a Listing to Markdown format
func ExportToMarkdown(l *Listing) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", l.Playlist.Name)

	if l.Playlist.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", l.Playlist.Description)
	}

	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(l.Tracks))
	fmt.Fprintf(&buf, "**Visibility**: %s\n\n", visibility(l.Playlist.Public))

	buf.WriteString("## Tracks\n\n")
	for i, track := range l.Tracks {
		fmt.Fprintf(&buf, "%d. %s", i+1, track.Name)
		if pos := l.sortedPosition(i); pos != "" {
			fmt.Fprintf(&buf, " (→ %s)", pos)
		}
		if track.Local {
			buf.WriteString(" _local_")
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts a Listing to plain text format
func ExportToText(l *Listing) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", l.Playlist.Name)
	if l.Playlist.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", l.Playlist.Description)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(l.Tracks))

	for i, track := range l.Tracks {
		fmt.Fprintf(&buf, "%d. %s", i+1, track.Name)
		if pos := l.sortedPosition(i); pos != "" {
			fmt.Fprintf(&buf, " -> %s", pos)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// Export renders l in format f.
func Export(l *Listing, f Format) ([]byte, error) {
	switch f {
	case CSV:
		return ExportToCSV(l)
	case Markdown:
		return ExportToMarkdown(l)
	case Text:
		return ExportToText(l)
	case JSON:
		return shared.MarshalJSON(l, true)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidInput, f)
	}
}

// WriteExport writes l to path in format f.
//
// Defaults to {playlist.ID}_tracks.{format} as the filename.
func WriteExport(l *Listing, f Format, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_tracks.%s", l.Playlist.ID, f)
	}

	data, err := Export(l, f)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", f, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}
