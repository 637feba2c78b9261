// Package upload stores menu images for staff.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/yeremiapane/canteen-app/session"
	"github.com/yeremiapane/canteen-app/utils"
)

// MaxImageSize is the largest accepted image, 5 MB.
const MaxImageSize = 5 << 20

const sniffLen = 3072

var (
	ErrNotImage = errors.New("file is not an image")
	ErrTooLarge = errors.New("image is larger than 5MB")
	ErrNotStaff = errors.New("only staff can upload images")
)

// FileHeader describes the incoming file.
type FileHeader struct {
	Name        string
	Size        int64
	ContentType string
}

// Result is what a successful upload returns.
type Result struct {
	Object string `json:"object"`
	URL    string `json:"url"`
}

// ObjectStore is the storage backend.
type ObjectStore interface {
	Put(ctx context.Context, bucket, name, contentType string, r io.Reader) error
	PublicURL(bucket, name string) string
}

type Uploader struct {
	store  ObjectStore
	bucket string
	now    func() time.Time
}

func NewUploader(store ObjectStore, bucket string) *Uploader {
	return &Uploader{store: store, bucket: bucket, now: time.Now}
}

// Validate checks size and declared type. It never touches the store.
func Validate(h FileHeader) error {
	if h.Size > MaxImageSize {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, h.Size)
	}
	ct := strings.ToLower(strings.TrimSpace(h.ContentType))
	if ct == "" || ct == "application/octet-stream" {
		return nil
	}
	if !strings.HasPrefix(ct, "image/") {
		return fmt.Errorf("%w: %s", ErrNotImage, h.ContentType)
	}
	return nil
}

// ObjectName builds menu-{unixMillis}-{staffIdentifier}-{originalName}.
func ObjectName(at time.Time, staff *session.Session, original string) string {
	name := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	name = strings.Join(strings.Fields(name), "-")
	if name == "" || name == "." || name == "/" {
		name = "image"
	}
	return fmt.Sprintf("menu-%d-%s-%s", at.UnixMilli(), staff.Identifier(), name)
}

// Upload validates the file, checks the staff role and stores it. Failures
// are returned as is; there is no retry.
func (u *Uploader) Upload(ctx context.Context, staff *session.Session, h FileHeader, r io.Reader) (*Result, error) {
	if err := Validate(h); err != nil {
		return nil, err
	}

	// Sniff the content when the type was not declared.
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	contentType := h.ContentType
	if ct := strings.ToLower(contentType); ct == "" || ct == "application/octet-stream" {
		detected := mimetype.Detect(head)
		if !strings.HasPrefix(detected.String(), "image/") {
			return nil, fmt.Errorf("%w: detected %s", ErrNotImage, detected.String())
		}
		contentType = detected.String()
	}

	if !staff.IsStaff() {
		return nil, ErrNotStaff
	}

	// Size can be unknown up front; enforce it on the stream too.
	body := &limitedReader{r: io.MultiReader(bytes.NewReader(head), r), left: MaxImageSize}
	name := ObjectName(u.now(), staff, h.Name)
	if err := u.store.Put(ctx, u.bucket, name, contentType, body); err != nil {
		utils.ErrorLogger.Errorf("upload %s by %s failed: %v", name, staff.Identifier(), err)
		return nil, err
	}
	utils.InfoLogger.Infof("uploaded %s/%s", u.bucket, name)
	return &Result{Object: name, URL: u.store.PublicURL(u.bucket, name)}, nil
}

type limitedReader struct {
	r    io.Reader
	left int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.left -= int64(n)
	if l.left < 0 {
		return n, ErrTooLarge
	}
	return n, err
}

// Hint turns an upload error into a message for the user.
func Hint(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrNotImage):
		return "Please choose an image file (JPG, PNG, GIF or WebP)."
	case errors.Is(err, ErrTooLarge):
		return "Image must be 5MB or smaller."
	case errors.Is(err, ErrNotStaff):
		return "Only staff members can upload menu images."
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "bucket"):
		return "Storage bucket is missing. Ask an admin to create the menu images bucket."
	case strings.Contains(msg, "RLS"), strings.Contains(msg, "policy"), strings.Contains(msg, "Unauthorized"):
		return "Upload was refused by a storage policy. Check that your account has staff access."
	}
	return "Upload failed: " + msg
}
