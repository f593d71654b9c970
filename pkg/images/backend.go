package images

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"image/png"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Backend stores story media on disk. Stored files are served from baseURL.
type Backend struct {
	path    string
	baseURL string
}

func NewImagesBackend(path, baseURL string) *Backend {
	return &Backend{
		path:    path,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Store writes the image and returns its file name.
func (ib *Backend) Store(bytes []byte) (string, error) {
	file, err := ioutil.TempFile(ib.path, "*.png")
	if err != nil {
		return "", errors.Wrap(err, "failed to create image file")
	}

	defer file.Close()

	_, err = file.Write(bytes)
	if err != nil {
		_ = os.Remove(file.Name())
		return "", errors.Wrap(err, "failed to write image")
	}

	return filepath.Base(file.Name()), nil
}

// URL returns the public reference for a stored file name.
func (ib *Backend) URL(name string) string {
	if ib.baseURL == "" {
		return name
	}

	return ib.baseURL + "/" + name
}

// Remove deletes the file a reference points to. References may be full
// URLs or bare names, removing a missing file is not an error.
func (ib *Backend) Remove(reference string) error {
	name := filepath.Base(strings.TrimPrefix(reference, ib.baseURL+"/"))
	if name == "." || name == "/" {
		return fmt.Errorf("invalid image reference %q", reference)
	}

	err := os.Remove(filepath.Join(ib.path, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

func ToPNG(imageBytes []byte) ([]byte, error) {
	contentType := http.DetectContentType(imageBytes)

	switch contentType {
	case "image/png":
		return imageBytes, nil
	case "image/jpeg":
		img, err := jpeg.Decode(bytes.NewReader(imageBytes))
		if err != nil {
			return nil, errors.Wrap(err, "unable to decode jpeg")
		}

		buf := new(bytes.Buffer)
		if err := png.Encode(buf, img); err != nil {
			return nil, errors.Wrap(err, "unable to encode png")
		}

		return buf.Bytes(), nil
	}

	return nil, fmt.Errorf("unable to convert %#v to png", contentType)
}
