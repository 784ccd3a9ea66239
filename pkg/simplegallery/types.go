package simplegallery

import (
	"sort"
	"time"
)

// Layout is the presentation style of a collection.
type Layout string

const (
	LayoutCinematic        Layout = "cinematic"
	LayoutGrid             Layout = "grid"
	LayoutMasonry          Layout = "masonry"
	LayoutHorizontalScroll Layout = "horizontal-scroll"
)

// Valid reports whether l is one of the known layouts.
func (l Layout) Valid() bool {
	switch l {
	case LayoutCinematic, LayoutGrid, LayoutMasonry, LayoutHorizontalScroll:
		return true
	}
	return false
}

// SizeLabel names one tier of the derivative set.
type SizeLabel string

const (
	SizeThumb       SizeLabel = "thumb"
	SizeSmall       SizeLabel = "small"
	SizeMedium      SizeLabel = "medium"
	SizeLarge       SizeLabel = "large"
	SizeFull        SizeLabel = "full"
	SizePlaceholder SizeLabel = "placeholder"
)

// SizeSpec is one row of the derivative table. MaxWidth is an upper bound;
// sources narrower than it are re-encoded without enlargement.
type SizeSpec struct {
	Label    SizeLabel `json:"label"`
	MaxWidth int       `json:"max_width"`
	Quality  int       `json:"quality"`
}

// DefaultSizes returns the standard six-tier derivative table.
func DefaultSizes() []SizeSpec {
	return []SizeSpec{
		{Label: SizeThumb, MaxWidth: 200, Quality: 70},
		{Label: SizeSmall, MaxWidth: 400, Quality: 75},
		{Label: SizeMedium, MaxWidth: 800, Quality: 80},
		{Label: SizeLarge, MaxWidth: 1600, Quality: 85},
		{Label: SizeFull, MaxWidth: 3200, Quality: 90},
		{Label: SizePlaceholder, MaxWidth: 40, Quality: 30},
	}
}

// DerivativeSet maps a size label to the public path of its file.
type DerivativeSet map[SizeLabel]string

// Dimensions are the intrinsic size of an original upload.
type Dimensions struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	AspectRatio string `json:"aspect_ratio"`
}

// LocalizedText holds a value in each supported language.
type LocalizedText struct {
	ES string `json:"es"`
	EN string `json:"en"`
	FR string `json:"fr"`
}

// Collection is a named, ordered group of images.
type Collection struct {
	ID                    string        `json:"id"`
	Slug                  string        `json:"slug"`
	Name                  LocalizedText `json:"name"`
	Description           LocalizedText `json:"description"`
	Layout                Layout        `json:"layout"`
	Featured              bool          `json:"featured"`
	SortOrder             int           `json:"sort_order"`
	Location              string        `json:"location"`
	YearRange             string        `json:"year_range"`
	Tags                  []string      `json:"tags"`
	ImageCount            int           `json:"image_count"`
	CoverImageSrc         string        `json:"cover_image_src,omitempty"`
	CoverImagePlaceholder string        `json:"cover_image_placeholder,omitempty"`
	CoverImageAlt         LocalizedText `json:"cover_image_alt"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

// Image is one catalogued photograph together with its derivatives.
type Image struct {
	ID               string        `json:"id"`
	CollectionID     string        `json:"collection_id"`
	Title            LocalizedText `json:"title"`
	Description      LocalizedText `json:"description"`
	Files            DerivativeSet `json:"files"`
	OriginalFilename string        `json:"original_filename"`
	Width            int           `json:"width"`
	Height           int           `json:"height"`
	AspectRatio      string        `json:"aspect_ratio"`
	Camera           string        `json:"camera"`
	Lens             string        `json:"lens"`
	Settings         string        `json:"settings"`
	Location         string        `json:"location"`
	PhotoDate        string        `json:"photo_date"`
	Tags             []string      `json:"tags"`
	SortOrder        int           `json:"sort_order"`
	Featured         bool          `json:"featured"`
	MimeType         string        `json:"mime_type"`
	Checksum         string        `json:"checksum"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// ImageMetadata is the free-form, uploader supplied part of an image.
type ImageMetadata struct {
	Title       LocalizedText `json:"title"`
	Description LocalizedText `json:"description"`
	Camera      string        `json:"camera"`
	Lens        string        `json:"lens"`
	Settings    string        `json:"settings"`
	Location    string        `json:"location"`
	PhotoDate   string        `json:"photo_date"`
	Tags        []string      `json:"tags"`
	Featured    bool          `json:"featured"`
}

// IngestStage is a state of the per-upload state machine.
type IngestStage string

const (
	StageReceived             IngestStage = "received"
	StageContentVerified      IngestStage = "content_verified"
	StageDerivativesGenerated IngestStage = "derivatives_generated"
	StageIndexed              IngestStage = "indexed"
	StageFailed               IngestStage = "failed"
)

// Verification is the outcome of content sniffing.
type Verification struct {
	DeclaredMime string
	SniffedMime  string
	Mismatch     bool
}

// Derivatives is what the generator produced for one upload.
type Derivatives struct {
	// Files maps each label to the file name written through the writer.
	Files      map[SizeLabel]string
	Dimensions Dimensions
}

// CascadeReport describes the outcome of deleting a collection.
type CascadeReport struct {
	CollectionID  string             `json:"collection_id"`
	DeletedImages int                `json:"deleted_images"`
	FileFailures  map[string][]error `json:"-"`
}

// FailedImages lists the images whose files could not all be removed.
func (r *CascadeReport) FailedImages() []string {
	ids := make([]string, 0, len(r.FileFailures))
	for id := range r.FileFailures {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
