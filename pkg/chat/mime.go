package chat

import (
	"path/filepath"
	"strings"
)

var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".json": true, ".csv": true,
	".go": true, ".py": true, ".yaml": true, ".yml": true, ".mk": true,
	".html": true, ".css": true, ".ts": true, ".tsx": true, ".js": true,
	".rs": true, ".java": true, ".sh": true, ".toml": true, ".sql": true,
	".dockerfile": true, ".graphql": true, ".svg": true, ".diff": true,
	".xml": true, ".c": true, ".h": true, ".cpp": true,
}

// DetectMimeType guesses an attachment's media type from its file name.
// Every text-like file maps to text/plain since that is what providers accept.
func DetectMimeType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	}
	if textExtensions[ext] {
		return "text/plain"
	}
	return "application/octet-stream"
}

// IsSupportedMimeType reports whether an attachment of this type can be sent to a provider.
func IsSupportedMimeType(mimeType string) bool {
	switch mimeType {
	case "image/jpeg", "image/png", "image/gif", "image/webp", "application/pdf", "text/plain":
		return true
	}
	return false
}

// IsImageMimeType reports whether mimeType is one of the supported image types.
func IsImageMimeType(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/") && IsSupportedMimeType(mimeType)
}

// SplitDataURL splits a data: URL into its media type and base64 payload.
func SplitDataURL(url string) (mediaType, data string, ok bool) {
	rest, found := strings.CutPrefix(url, "data:")
	if !found {
		return "", "", false
	}
	header, payload, found := strings.Cut(rest, ",")
	if !found {
		return "", "", false
	}
	mediaType, _, _ = strings.Cut(header, ";")
	return mediaType, payload, true
}
