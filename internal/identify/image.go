package identify

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

var acceptedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ValidateImage checks a base64 payload (optionally a data URL) and returns
// the sniffed content type.
func ValidateImage(imageData string, maxBytes int) (string, error) {
	payload := strings.TrimSpace(StripDataURL(imageData))
	if payload == "" {
		return "", &InvalidImageError{Reason: "no image data"}
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if raw, err = base64.RawStdEncoding.DecodeString(payload); err != nil {
			return "", &InvalidImageError{Reason: "image data is not valid base64"}
		}
	}
	return ValidateImageBytes(raw, maxBytes)
}

// ValidateImageBytes checks decoded image bytes against the size limit and
// the accepted formats. maxBytes <= 0 disables the size check.
func ValidateImageBytes(raw []byte, maxBytes int) (string, error) {
	if len(raw) == 0 {
		return "", &InvalidImageError{Reason: "no image data"}
	}
	if maxBytes > 0 && len(raw) > maxBytes {
		return "", &InvalidImageError{Reason: fmt.Sprintf("image is %d bytes, limit is %d", len(raw), maxBytes)}
	}

	contentType := http.DetectContentType(raw)
	if !acceptedImageTypes[contentType] {
		return "", &InvalidImageError{Reason: fmt.Sprintf("unsupported image type %q", contentType)}
	}
	return contentType, nil
}

// EncodeDataURL renders raw image bytes as a data URL.
func EncodeDataURL(contentType string, raw []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(raw)
}
