package extract

import (
	"path/filepath"
	"strings"

	"github.com/meshadmin/topomapper/api"
)

// DetectFormat classifies raw file content as XML, JSON or generic
// text. Detection never fails; a misclassified file surfaces later as
// an extraction with zero interfaces rather than a detection error.
func DetectFormat(filename string, content []byte) api.Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xml":
		return api.FormatXML
	case ".json":
		return api.FormatJSON
	case ".txt", ".conf", ".cfg":
		return sniffContent(content)
	default:
		return api.FormatText
	}
}

func sniffContent(content []byte) api.Format {
	trimmed := strings.TrimSpace(string(content))
	if strings.HasPrefix(trimmed, "<?xml") {
		return api.FormatXML
	}
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		return api.FormatJSON
	}
	return api.FormatText
}
