package domain

import (
	"bytes"
	"encoding/json"
)

// ArtworkRecord is the display and persistence shape of an artwork.
//
// It is what the favourites list stores and what the artwork page renders.
// An ArtworkRecord is uniquely identified by its ID.
type ArtworkRecord struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is stable across sessions and is the de-duplication key
	// of the favourites list.
	ID string `json:"id" yaml:"id"`

	// ─────────────────────────────
	// Display metadata
	// ─────────────────────────────

	Title string `json:"title" yaml:"title"`

	// Artist is the attributed creator. The webhook calls it "author".
	Artist string `json:"artist" yaml:"artist"`

	// Year is display formatted ("1889", "c. 1665", "15th century").
	Year string `json:"year" yaml:"year"`

	// Museum is the holding institution.
	Museum string `json:"museum" yaml:"museum"`

	ImageURL string `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`

	// ─────────────────────────────
	// Legacy fields
	// (read back from older lists, never written by current flows)
	// ─────────────────────────────

	Medium      string `json:"medium,omitempty" yaml:"medium,omitempty"`
	Dimensions  string `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	Location    string `json:"location,omitempty" yaml:"location,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// IdentificationResult is the raw payload returned by the identification
// webhook. Unknown fields are ignored on decode.
type IdentificationResult struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   string `json:"year"`
	Museum string `json:"museum"`
	ID     string `json:"id,omitempty"`

	// Raw is the response body as received, when decoded from the webhook.
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON accepts any valid JSON. Numbers and booleans become their
// literal text ("year": 1889 reads as "1889"), null reads as empty, and a
// document that is not an object yields an empty result.
func (r *IdentificationResult) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		*r = IdentificationResult{}
		return nil
	}

	var wire struct {
		Title  looseString `json:"title"`
		Author looseString `json:"author"`
		Year   looseString `json:"year"`
		Museum looseString `json:"museum"`
		ID     looseString `json:"id"`
	}
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return err
	}

	*r = IdentificationResult{
		Title:  string(wire.Title),
		Author: string(wire.Author),
		Year:   string(wire.Year),
		Museum: string(wire.Museum),
		ID:     string(wire.ID),
	}
	return nil
}

// looseString decodes any JSON value into text.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
	case len(data) > 0 && data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
	default:
		var compact bytes.Buffer
		if err := json.Compact(&compact, data); err != nil {
			return err
		}
		*s = looseString(compact.String())
	}
	return nil
}

// ToArtworkRecord converts a webhook payload into the display model under the
// given key. author is renamed to artist here and nowhere else.
func (r IdentificationResult) ToArtworkRecord(id, imageURL string) ArtworkRecord {
	return ArtworkRecord{
		ID:       id,
		Title:    r.Title,
		Artist:   r.Author,
		Year:     r.Year,
		Museum:   r.Museum,
		ImageURL: imageURL,
	}
}
