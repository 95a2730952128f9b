package restoration

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/photorestore/internal/common"
	"github.com/gabriel-vasile/mimetype"
)

// Photo is an original picture chosen by the user.
type Photo struct {
	Name        string
	ContentType string
	Data        []byte
}

// ValidateImage checks size and detected content type and returns the
// latter.
func ValidateImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", common.ErrInvalidImage)
	}
	if len(data) > common.MaxImageSize {
		return "", fmt.Errorf("%w: %d bytes exceeds the %d byte limit", common.ErrInvalidImage, len(data), common.MaxImageSize)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: unsupported type %s", common.ErrInvalidImage, mt.String())
	}
	return mt.String(), nil
}

// LoadPhoto reads and validates the file at path.
func LoadPhoto(path string) (Photo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Photo{}, err
	}

	ct, err := ValidateImage(data)
	if err != nil {
		return Photo{}, err
	}
	return Photo{Name: filepath.Base(path), ContentType: ct, Data: data}, nil
}
