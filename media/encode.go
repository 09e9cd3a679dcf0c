package media

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/YspCoder/omnimedia/dto"
)

// DefaultMaxUploadBytes caps the size of an encoded image.
const DefaultMaxUploadBytes int64 = 20 << 20

// Encode reads r fully into a payload. The content type comes from the
// extension of name and falls back to sniffing the bytes.
func Encode(name string, r io.Reader) (*dto.MediaPayload, error) {
	return EncodeWithLimit(name, r, DefaultMaxUploadBytes)
}

// EncodeWithLimit is Encode with an explicit size cap. A non-positive limit
// disables the cap.
func EncodeWithLimit(name string, r io.Reader, limit int64) (*dto.MediaPayload, error) {
	if r == nil {
		return nil, NewMediaError(ErrorTypeEncoding, "no input to encode", nil)
	}

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, NewMediaError(ErrorTypeEncoding, fmt.Sprintf("failed to read %q", name), err)
	}
	if len(data) == 0 {
		return nil, NewMediaError(ErrorTypeEncoding, fmt.Sprintf("%q is empty", name), nil)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, NewMediaError(ErrorTypeEncoding, fmt.Sprintf("%q exceeds %d bytes", name, limit), nil)
	}

	mimeType := declaredType(name)
	if mimeType == "" {
		mimeType = mimetype.Detect(data).String()
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, NewMediaError(ErrorTypeEncoding, fmt.Sprintf("%q is not an image (%s)", name, mimeType), nil)
	}

	return &dto.MediaPayload{
		Name:     filepath.Base(name),
		MIMEType: mimeType,
		Data:     data,
	}, nil
}

// EncodeFile encodes the image at path.
func EncodeFile(path string) (*dto.MediaPayload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewMediaError(ErrorTypeEncoding, fmt.Sprintf("failed to open %q", path), err)
	}
	defer f.Close()
	return Encode(path, f)
}

func declaredType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(mime.TypeByExtension(ext))
	if err != nil {
		return ""
	}
	return mediaType
}
