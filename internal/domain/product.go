package domain

import (
	"time"
)

// Allowed content types for product image uploads.
var AllowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// MaxImageSize is the maximum allowed image size in bytes (10 MB).
const MaxImageSize int64 = 10 * 1024 * 1024

// KnownSizes lists the stencil sizes the storefront offers. The catalog
// accepts any non-empty size string, so this set is advisory only.
var KnownSizes = []string{"6x6", "8x8", "10x10", "12x12"}

// Product is a kolam stencil in the catalog. Price, material, and usage
// suggestion are optional and stored as NULL when absent.
type Product struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Size            string    `json:"size"`
	Price           *string   `json:"price"`
	Material        *string   `json:"material"`
	UsageSuggestion *string   `json:"usage_suggestion"`
	ImageURL        string    `json:"image_url"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsAllowedContentType checks whether the given content type is allowed
// for product images.
func IsAllowedContentType(contentType string) bool {
	return AllowedContentTypes[contentType]
}
