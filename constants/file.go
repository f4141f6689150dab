package constants

import "strings"

// AllowedContentTypes holds the default allowed upload content types.
var AllowedContentTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
}

// ArtifactKind values for derived-artifact references.
const (
	ArtifactKindThumbnail = "thumbnail"
	ArtifactKindLabel     = "label"
)

// NormalizeContentType lowercases and strips any media-type parameters.
func NormalizeContentType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

// ExtensionForContentType maps an allowed content type to the blob key extension.
// Returns "" for unknown types.
func ExtensionForContentType(ct string) string {
	switch NormalizeContentType(ct) {
	case "image/jpeg":
		return "jpeg"
	case "image/png":
		return "png"
	}
	return ""
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
