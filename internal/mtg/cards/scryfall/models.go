package scryfall

import (
	"errors"
	"fmt"
	"time"
)

// Card represents a Magic card printing from Scryfall.
type Card struct {
	// Core fields
	ID       string `json:"id"`
	OracleID string `json:"oracle_id"`

	// Card details
	Name       string     `json:"name"`
	Lang       string     `json:"lang"`
	ReleasedAt string     `json:"released_at"`
	Layout     string     `json:"layout"`
	ImageURIs  *ImageURIs `json:"image_uris,omitempty"`
	TypeLine   string     `json:"type_line"`

	// Print details
	SetCode         string   `json:"set"`
	SetName         string   `json:"set_name"`
	CollectorNumber string   `json:"collector_number"`
	Rarity          string   `json:"rarity"`
	Digital         bool     `json:"digital"`
	Promo           bool     `json:"promo"`
	FullArt         bool     `json:"full_art"`
	Textless        bool     `json:"textless"`
	Oversized       bool     `json:"oversized"`
	BorderColor     string   `json:"border_color"`
	FrameEffects    []string `json:"frame_effects,omitempty"`
	Finishes        []string `json:"finishes,omitempty"`

	// Card faces (for DFCs, MDFCs, split cards)
	CardFaces []CardFace `json:"card_faces,omitempty"`

	// Related
	AllParts        []RelatedCard `json:"all_parts,omitempty"`
	PrintsSearchURI string        `json:"prints_search_uri,omitempty"`
}

// CardFace represents one face of a multi-faced card.
type CardFace struct {
	Name      string     `json:"name"`
	TypeLine  string     `json:"type_line"`
	ImageURIs *ImageURIs `json:"image_uris,omitempty"`
}

// ImageURIs contains URLs for card images in various sizes.
type ImageURIs struct {
	Small      string `json:"small"`
	Normal     string `json:"normal"`
	Large      string `json:"large"`
	PNG        string `json:"png"`
	ArtCrop    string `json:"art_crop"`
	BorderCrop string `json:"border_crop"`
}

// Best returns the highest resolution image available.
func (u *ImageURIs) Best() string {
	if u == nil {
		return ""
	}
	for _, uri := range []string{u.PNG, u.Large, u.Normal} {
		if uri != "" {
			return uri
		}
	}
	return ""
}

// RelatedCard is an entry of a card's all_parts list.
type RelatedCard struct {
	ID        string `json:"id"`
	Component string `json:"component"` // "token", "meld_part", "combo_piece", ...
	Name      string `json:"name"`
	TypeLine  string `json:"type_line"`
}

// SearchResult represents search results from Scryfall.
type SearchResult struct {
	Object     string `json:"object"`
	TotalCards int    `json:"total_cards"`
	HasMore    bool   `json:"has_more"`
	NextPage   string `json:"next_page,omitempty"`
	Data       []Card `json:"data"`
}

// BulkDataList represents the list of bulk data files.
type BulkDataList struct {
	Object  string     `json:"object"`
	HasMore bool       `json:"has_more"`
	Data    []BulkData `json:"data"`
}

// BulkData represents a bulk data file download.
type BulkData struct {
	ID              string    `json:"id"`
	Object          string    `json:"object"`
	Type            string    `json:"type"`
	UpdatedAt       time.Time `json:"updated_at"`
	URI             string    `json:"uri"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	CompressedSize  int       `json:"compressed_size"`
	Size            int64     `json:"size"`
	DownloadURI     string    `json:"download_uri"`
	ContentType     string    `json:"content_type"`
	ContentEncoding string    `json:"content_encoding"`
}

// APIError represents an error response from the Scryfall API.
type APIError struct {
	Object   string   `json:"object"`
	Code     string   `json:"code"`
	Status   int      `json:"status"`
	Details  string   `json:"details"`
	Type     string   `json:"type,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("Scryfall API error (HTTP %d): %s", e.Status, e.Details)
	}
	return fmt.Sprintf("Scryfall API error (HTTP %d): %s", e.Status, e.Code)
}

// NotFoundError represents a 404 error from the API. Searches that match
// nothing are reported the same way.
type NotFoundError struct {
	URL string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource not found: %s", e.URL)
}

// IsNotFound returns true if err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
