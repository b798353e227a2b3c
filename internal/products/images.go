package product

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
)

const (
	productImageDir    = "products"
	publicUploadPrefix = "/uploads/"
)

var allowedImageTypes = []string{"image/png", "image/jpeg", "image/webp", "image/gif"}

// ImageUpload is an image received with a create or update request.
type ImageUpload struct {
	Filename string
	Reader   io.Reader
}

// ImageStore writes product images under the uploads directory.
type ImageStore struct {
	root     string
	maxBytes int64
	now      func() time.Time
}

// NewImageStore creates the product image directory under root.
func NewImageStore(root string, maxBytes int64) (*ImageStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("uploads dir required")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max upload size must be positive")
	}
	if err := os.MkdirAll(filepath.Join(root, productImageDir), 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &ImageStore{root: root, maxBytes: maxBytes, now: time.Now}, nil
}

// Save validates the content type by sniffing bytes and returns the public path.
func (s *ImageStore) Save(upload ImageUpload) (string, error) {
	if upload.Reader == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "image is required")
	}
	data, err := io.ReadAll(io.LimitReader(upload.Reader, s.maxBytes+1))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read image")
	}
	if int64(len(data)) > s.maxBytes {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("image exceeds %d bytes", s.maxBytes))
	}
	if len(data) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "image is empty")
	}

	detected := mimetype.Detect(data)
	if !mimetype.EqualsAny(detected.String(), allowedImageTypes...) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "only png, jpeg, webp or gif images are allowed").
			WithDetails(map[string]string{"detected": detected.String()})
	}

	name := fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), uuid.NewString()[:8], detected.Extension())
	target := filepath.Join(s.root, productImageDir, name)
	if err := writeFileAtomic(target, data); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store image")
	}
	return publicUploadPrefix + productImageDir + "/" + name, nil
}

// Remove deletes a previously saved image. Paths outside the product image
// directory (defaults, external URLs) are ignored.
func (s *ImageStore) Remove(publicPath string) error {
	prefix := publicUploadPrefix + productImageDir + "/"
	if !strings.HasPrefix(publicPath, prefix) {
		return nil
	}
	name := filepath.Base(strings.TrimPrefix(publicPath, prefix))
	if name == "." || name == "/" || name == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.root, productImageDir, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func writeFileAtomic(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), target)
}
