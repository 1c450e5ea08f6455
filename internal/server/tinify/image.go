package tinify

import (
	"encoding/base64"
	"regexp"
	"strings"
)

var dataURLPrefix = regexp.MustCompile(`^data:image/(\w+);base64,`)

// DecodeImageData accepts raw base64 or a data URL and returns the bytes.
func DecodeImageData(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(dataURLPrefix.ReplaceAllString(s, ""))
}

// DetectContentType guesses the MIME type from the file extension, falling
// back to the data URL prefix and finally to image/jpeg.
func DetectContentType(fileName, imageData string) string {
	if fileName != "" {
		ext := strings.ToLower(fileName)
		if i := strings.LastIndex(ext, "."); i >= 0 {
			ext = ext[i+1:]
		}
		switch ext {
		case "png":
			return "image/png"
		case "webp":
			return "image/webp"
		}
		return "image/jpeg"
	}
	if m := dataURLPrefix.FindStringSubmatch(imageData); m != nil {
		switch strings.ToLower(m[1]) {
		case "png":
			return "image/png"
		case "webp":
			return "image/webp"
		}
	}
	return "image/jpeg"
}
