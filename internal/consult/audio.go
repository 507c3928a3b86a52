package consult

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var allowedMIMETypes = map[string]bool{
	"audio/webm":      true,
	"audio/ogg":       true,
	"audio/mpeg":      true,
	"audio/mp3":       true,
	"audio/mp4":       true,
	"audio/x-m4a":     true,
	"audio/aac":       true,
	"audio/wav":       true,
	"audio/x-wav":     true,
	"audio/wave":      true,
	"audio/flac":      true,
	"audio/x-flac":    true,
	"video/mp4":       true,
	"video/webm":      true,
	"video/quicktime": true,
}

var extensionMIMETypes = map[string]string{
	".webm": "audio/webm",
	".ogg":  "audio/ogg",
	".opus": "audio/ogg",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/x-m4a",
	".aac":  "audio/aac",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
}

// BaseMIMEType strips parameters such as ";codecs=opus" and lowercases.
func BaseMIMEType(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

func IsAllowedMIMEType(mimeType string) bool {
	return allowedMIMETypes[BaseMIMEType(mimeType)]
}

// Validate checks a blob can be handed to the transfer client.
func (b AudioBlob) Validate() error {
	if len(b.Data) == 0 {
		return NewValidationError("audio", "empty audio")
	}
	if !IsAllowedMIMEType(b.MIMEType) {
		return NewValidationError("audio", fmt.Sprintf("unsupported content type %q", b.MIMEType))
	}
	return nil
}

// LoadAudioFile reads a file picked by the user into an upload blob. The
// content type is sniffed first and the extension is used as a fallback.
func LoadAudioFile(path string) (AudioBlob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AudioBlob{}, fmt.Errorf("read audio file: %w", err)
	}
	if len(data) == 0 {
		return AudioBlob{}, NewValidationError("audio", "empty audio")
	}

	mimeType := DetectMIMEType(data, path)
	if mimeType == "" {
		return AudioBlob{}, NewValidationError("audio", fmt.Sprintf("unsupported file type: %s", filepath.Base(path)))
	}

	return AudioBlob{
		Name:     filepath.Base(path),
		Data:     data,
		MIMEType: mimeType,
		Origin:   OriginUpload,
	}, nil
}

// DetectMIMEType returns an allow-listed content type for data, or "".
func DetectMIMEType(data []byte, name string) string {
	detected := BaseMIMEType(mimetype.Detect(data).String())
	if allowedMIMETypes[detected] {
		return detected
	}
	if byExt, ok := extensionMIMETypes[strings.ToLower(filepath.Ext(name))]; ok {
		return byExt
	}
	return ""
}
