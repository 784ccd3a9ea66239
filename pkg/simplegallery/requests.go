package simplegallery

// IngestRequest is one upload handed over by the transport layer.
type IngestRequest struct {
	CollectionID string
	Data         []byte
	FileName     string
	MimeType     string
	Metadata     ImageMetadata
}

// UpdateImageRequest carries a partial metadata update. Nil fields are left
// unchanged. Derivative files are never touched.
type UpdateImageRequest struct {
	Title       *LocalizedText `json:"title,omitempty"`
	Description *LocalizedText `json:"description,omitempty"`
	Camera      *string        `json:"camera,omitempty"`
	Lens        *string        `json:"lens,omitempty"`
	Settings    *string        `json:"settings,omitempty"`
	Location    *string        `json:"location,omitempty"`
	PhotoDate   *string        `json:"photo_date,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	SortOrder   *int           `json:"sort_order,omitempty"`
	Featured    *bool          `json:"featured,omitempty"`
}

// CreateCollectionRequest creates a collection. When Slug is empty it is
// derived from the Spanish name.
type CreateCollectionRequest struct {
	Slug        string        `json:"slug"`
	Name        LocalizedText `json:"name"`
	Description LocalizedText `json:"description"`
	Layout      Layout        `json:"layout"`
	Featured    bool          `json:"featured"`
	SortOrder   int           `json:"sort_order"`
	Location    string        `json:"location"`
	YearRange   string        `json:"year_range"`
	Tags        []string      `json:"tags"`
}

// UpdateCollectionRequest carries a partial collection update.
type UpdateCollectionRequest struct {
	Slug                  *string        `json:"slug,omitempty"`
	Name                  *LocalizedText `json:"name,omitempty"`
	Description           *LocalizedText `json:"description,omitempty"`
	Layout                *Layout        `json:"layout,omitempty"`
	Featured              *bool          `json:"featured,omitempty"`
	SortOrder             *int           `json:"sort_order,omitempty"`
	Location              *string        `json:"location,omitempty"`
	YearRange             *string        `json:"year_range,omitempty"`
	Tags                  []string       `json:"tags,omitempty"`
	CoverImageSrc         *string        `json:"cover_image_src,omitempty"`
	CoverImagePlaceholder *string        `json:"cover_image_placeholder,omitempty"`
	CoverImageAlt         *LocalizedText `json:"cover_image_alt,omitempty"`
}
