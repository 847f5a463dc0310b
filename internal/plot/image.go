package plot

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"strings"
)

const (
	ImagePNG  ImageFormat = "png"
	ImageJPEG ImageFormat = "jpeg"

	jpegQuality = 98
)

// ImageFormat is an output encoding
type ImageFormat string

// ParseFormat accepts "png", "jpeg" and "jpg", ignoring case
func ParseFormat(s string) (ImageFormat, error) {
	switch strings.ToLower(s) {
	case "png":
		return ImagePNG, nil
	case "jpeg", "jpg":
		return ImageJPEG, nil
	default:
		return "", fmt.Errorf("invalid image format: %s", s)
	}
}

// Encode writes img in the given format
func Encode(w io.Writer, img image.Image, format ImageFormat) error {
	switch format {
	case ImagePNG:
		return png.Encode(w, img)
	case ImageJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
	default:
		return fmt.Errorf("invalid image format: %s", format)
	}
}

// WriteFile encodes img into a new file at path
func WriteFile(path string, img image.Image, format ImageFormat) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	defer func() {
		if cErr := f.Close(); cErr != nil {
			err = errors.Join(err, cErr)
		}
	}()

	return Encode(f, img, format)
}
