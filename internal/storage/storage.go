// Package storage persists uploaded item images.
//
// Two backends implement ImageStore: DiskStore writes into the public image
// directory the server also serves from, MinioStore writes objects into an
// S3-compatible bucket. Both keep the uploader's original base filename, so a
// second upload with the same name replaces the first.
package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ImageStore saves item attachments. Images are never removed: several items
// may reference the same file name.
type ImageStore interface {
	// Save stores r under the sanitized form of filename and returns the
	// name it was stored as.
	Save(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error)
}

// Locator is implemented by stores whose images are not served from local
// disk. URL returns a short-lived link to the stored image.
type Locator interface {
	URL(ctx context.Context, name string, expiry time.Duration) (string, error)
}

// SafeFilename strips directory components from an uploaded filename so it
// cannot escape the image directory. An empty result becomes "image".
func SafeFilename(name string) string {
	// Browsers on Windows may send the full client path.
	name = strings.ReplaceAll(name, `\`, "/")
	name = filepath.Base(name)
	if name == "." || name == ".." || name == "/" {
		return "image"
	}
	name = strings.ReplaceAll(name, string(os.PathSeparator), "_")
	name = strings.TrimSpace(name)
	if name == "" {
		return "image"
	}
	return name
}
