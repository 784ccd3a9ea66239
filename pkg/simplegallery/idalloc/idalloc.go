// Package idalloc computes image identifiers of the form
// "{collectionId}-{n:03d}".
//
// Allocation is only safe inside a unit of work that is serialized per
// collection: the caller reads the highest suffix and inserts the new row
// without another writer in between. The suffix source is that unit.
package idalloc

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Format returns the identifier for suffix n. Suffixes above 999 widen.
func Format(collectionID string, n int) string {
	return fmt.Sprintf("%s-%03d", collectionID, n)
}

// Suffix parses the numeric suffix of imageID within collectionID.
func Suffix(collectionID, imageID string) (int, bool) {
	rest, ok := strings.CutPrefix(imageID, collectionID+"-")
	if !ok || rest == "" {
		return 0, false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// MaxSuffix returns the highest suffix among ids, or 0 if none parse.
func MaxSuffix(collectionID string, ids []string) int {
	max := 0
	for _, id := range ids {
		if n, ok := Suffix(collectionID, id); ok && n > max {
			max = n
		}
	}
	return max
}

// Next returns the identifier following maxSuffix.
func Next(collectionID string, maxSuffix int) string {
	return Format(collectionID, maxSuffix+1)
}

// SuffixSource reports the highest suffix already assigned in a collection.
type SuffixSource interface {
	MaxImageSuffix(ctx context.Context) (int, error)
}

// Allocator reserves identifiers through a serialized suffix source.
type Allocator struct{}

// New returns an Allocator.
func New() *Allocator {
	return &Allocator{}
}

// Allocate returns the next identifier for collectionID. attempt is the
// zero-based retry count after identifier conflicts; each retry skips one
// more candidate.
func (a *Allocator) Allocate(ctx context.Context, src SuffixSource, collectionID string, attempt int) (string, error) {
	max, err := src.MaxImageSuffix(ctx)
	if err != nil {
		return "", fmt.Errorf("read max suffix for %s: %w", collectionID, err)
	}
	if attempt < 0 {
		attempt = 0
	}
	return Next(collectionID, max+attempt), nil
}
