package ui

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"image"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/disintegration/imaging"

	apperrors "go-medical-imaging/internal/errors"
	"go-medical-imaging/internal/payload"
)

var allowedExtensions = []string{".png", ".jpg", ".jpeg"}

// DefaultMaxPixels bounds the decoded size of an upload
const DefaultMaxPixels = 40_000_000

// normalizeUpload decodes an uploaded png/jpg/jpeg, applies its EXIF
// orientation and re-encodes it as PNG. Images above maxPixels are rejected
// from their header alone, before any pixel buffer is allocated.
func normalizeUpload(filename string, r io.Reader, maxPixels int64) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !slices.Contains(allowedExtensions, ext) {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("Unsupported file type %q, upload a png, jpg or jpeg image", ext), nil)
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewValidationError("The upload could not be read", err)
	}

	header, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewValidationError("The uploaded file is not a readable image", err)
	}
	if pixels := int64(header.Width) * int64(header.Height); pixels > maxPixels {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("The image is too large (%dx%d), the limit is %d pixels", header.Width, header.Height, maxPixels), nil)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, apperrors.NewValidationError("The uploaded file is not a readable image", err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, apperrors.NewProcessingError("failed to encode image as PNG", err)
	}
	return buf.Bytes(), nil
}

// previewURI marks the PNG data URI as safe for an img src attribute
func previewURI(png []byte) template.URL {
	return template.URL(payload.DataURI(base64.StdEncoding.EncodeToString(png)))
}
