// Package models holds the wire types exchanged with the explorer backend.
package models

// EntryType names a dashboard entry kind.
type EntryType string

const (
	EntryTypeSearch EntryType = "search"
	EntryTypeImage  EntryType = "image"
	EntryTypeAll    EntryType = "all"
)

// ParseEntryType accepts "search" and "image".
func ParseEntryType(s string) (EntryType, bool) {
	switch EntryType(s) {
	case EntryTypeSearch, EntryTypeImage:
		return EntryType(s), true
	}
	return "", false
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
}

type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type SearchItem struct {
	Title   string `json:"title,omitempty"`
	URL     string `json:"url,omitempty"`
	Summary string `json:"summary,omitempty"`
}

type Image struct {
	URL  string         `json:"url"`
	Meta map[string]any `json:"meta,omitempty"`
}

type SearchRequest struct {
	Query string `json:"query"`
}

type SearchResponse struct {
	ID        int64        `json:"id"`
	Query     string       `json:"query"`
	Results   []SearchItem `json:"results"`
	CreatedAt string       `json:"created_at,omitempty"`
}

type ImageRequest struct {
	Prompt string `json:"prompt"`
}

type ImageResponse struct {
	ID        int64   `json:"id"`
	Prompt    string  `json:"prompt"`
	Images    []Image `json:"images"`
	CreatedAt string  `json:"created_at,omitempty"`
}

// SaveSearchRequest and SaveImageRequest are the two bodies POST /dashboard
// accepts.
type SaveSearchRequest struct {
	Type    EntryType    `json:"type"`
	Query   string       `json:"query"`
	Results []SearchItem `json:"results"`
}

type SaveImageRequest struct {
	Type   EntryType `json:"type"`
	Prompt string    `json:"prompt"`
	Images []Image   `json:"images"`
}

type SaveResponse struct {
	OK bool  `json:"ok"`
	ID int64 `json:"id"`
}

type DashboardItem struct {
	ID        int64     `json:"id"`
	Type      EntryType `json:"type"`
	Title     string    `json:"title"`
	Snippet   *string   `json:"snippet,omitempty"`
	ImageURL  *string   `json:"image_url,omitempty"`
	CreatedAt string    `json:"created_at"`
}

type DashboardPage struct {
	Items      []DashboardItem `json:"items"`
	Page       int             `json:"page"`
	TotalPages int             `json:"total_pages"`
}

// DashboardFilter narrows a dashboard listing. Zero values mean "all types",
// "first page" and "no text filter".
type DashboardFilter struct {
	Type  EntryType
	Page  int
	Query string
}

// Detail is the expanded form of a dashboard entry. Which fields are set
// depends on Type; use Variant to get a typed view.
type Detail struct {
	ID        int64        `json:"id"`
	Type      EntryType    `json:"type"`
	Title     string       `json:"title"`
	CreatedAt string       `json:"created_at"`
	Query     string       `json:"query,omitempty"`
	Results   []SearchItem `json:"results,omitempty"`
	Prompt    string       `json:"prompt,omitempty"`
	Images    []Image      `json:"images,omitempty"`
}

type SearchDetail struct {
	ID        int64
	Title     string
	CreatedAt string
	Query     string
	Results   []SearchItem
}

type ImageDetail struct {
	ID        int64
	Title     string
	CreatedAt string
	Prompt    string
	Images    []Image
}

// Variant returns *SearchDetail or *ImageDetail, or nil for an unknown type.
func (d Detail) Variant() any {
	switch d.Type {
	case EntryTypeSearch:
		return &SearchDetail{ID: d.ID, Title: d.Title, CreatedAt: d.CreatedAt, Query: d.Query, Results: d.Results}
	case EntryTypeImage:
		return &ImageDetail{ID: d.ID, Title: d.Title, CreatedAt: d.CreatedAt, Prompt: d.Prompt, Images: d.Images}
	}
	return nil
}

type CleanupResult struct {
	OK      bool `json:"ok"`
	Deleted struct {
		Search int `json:"search"`
		Image  int `json:"image"`
	} `json:"deleted"`
}
