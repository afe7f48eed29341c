package internal

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/lychee-technology/formadmin"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// MultipartUpload adapts a multipart file part to formadmin.UploadedFile.
type MultipartUpload struct {
	header *multipart.FileHeader
}

func NewMultipartUpload(header *multipart.FileHeader) *MultipartUpload {
	return &MultipartUpload{header: header}
}

// UploadsFromForm wraps the first file of every non-empty part in form.
func UploadsFromForm(form *multipart.Form) map[string]formadmin.UploadedFile {
	if form == nil {
		return nil
	}
	out := make(map[string]formadmin.UploadedFile, len(form.File))
	for key, headers := range form.File {
		if len(headers) == 0 {
			continue
		}
		out[key] = NewMultipartUpload(headers[0])
	}
	return out
}

func (u *MultipartUpload) IsPresent() bool {
	return u != nil && u.header != nil && u.header.Size > 0 && u.header.Filename != ""
}

// GenerateStoredName returns "<user>_<uuid v7><ext>". The user part is reduced
// to name-safe characters and the extension comes from the client file name.
func (u *MultipartUpload) GenerateStoredName(userID string) string {
	user := unsafeNameChars.ReplaceAllString(userID, "")
	if user == "" {
		user = "anon"
	}
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return user + "_" + id.String() + u.extension()
}

func (u *MultipartUpload) extension() string {
	ext := strings.ToLower(filepath.Ext(u.header.Filename))
	if ext == "" || unsafeNameChars.MatchString(strings.TrimPrefix(ext, ".")) {
		return ""
	}
	return ext
}

// MoveTo copies the upload into files at dest, tagging it with the sniffed content type.
func (u *MultipartUpload) MoveTo(ctx context.Context, files formadmin.FileStore, dest string) error {
	src, err := u.header.Open()
	if err != nil {
		return fmt.Errorf("open upload %s: %w", u.header.Filename, err)
	}
	defer src.Close()

	mtype, err := mimetype.DetectReader(src)
	if err != nil {
		return fmt.Errorf("detect content type: %w", err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind upload: %w", err)
	}

	return files.Put(ctx, dest, src, mtype.String())
}
