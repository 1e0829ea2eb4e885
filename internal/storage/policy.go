package storage

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"returnsdesk/internal/config"
	contextutils "returnsdesk/internal/utils"

	"github.com/gabriel-vasile/mimetype"
)

// Rejection reasons reported on the returns.images.rejected counter
const (
	RejectEmptyName = "empty_name"
	RejectExtension = "extension"
	RejectContent   = "content"
)

// sniffLen is how much of the body is buffered for content detection
const sniffLen = 3072

var imageTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
}

// Policy decides which uploads are kept
type Policy struct {
	allowed       func(ext string) bool
	verifyContent bool
}

// NewPolicy reads the extension allowlist and content sniffing switch from cfg
func NewPolicy(cfg *config.Config) *Policy {
	return &Policy{
		allowed:       cfg.IsAllowedExtension,
		verifyContent: cfg.Uploads.VerifyContent,
	}
}

// Check sanitizes the file name and validates the upload. Rejected uploads return an
// UNSUPPORTED_FILE_TYPE error whose details carry the reason.
func (p *Policy) Check(u Upload) (Upload, error) {
	u.Filename = SanitizeFilename(u.Filename)
	if u.Filename == "" {
		return u, rejection(RejectEmptyName, "file name is empty after sanitizing")
	}

	ext := Extension(u.Filename)
	if !p.allowed(ext) {
		return u, rejection(RejectExtension, "extension "+ext+" is not allowed")
	}

	if !p.verifyContent {
		return u, nil
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(u.Body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return u, contextutils.WrapWithCode(err, contextutils.ErrStorage, "failed to read upload")
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	if !matchesExtension(detected, ext) {
		return u, rejection(RejectContent, "content "+detected.String()+" does not match ."+ext)
	}

	u.ContentType = detected.String()
	u.Body = io.MultiReader(bytes.NewReader(head), u.Body)
	return u, nil
}

func matchesExtension(detected *mimetype.MIME, ext string) bool {
	if want, ok := imageTypes[ext]; ok {
		return detected.Is(want)
	}
	// Extensions added through config only need to be some image
	return strings.HasPrefix(detected.String(), "image/")
}

func rejection(reason, details string) error {
	return contextutils.NewAppError(contextutils.ErrUnsupportedFileType.Code, contextutils.ErrUnsupportedFileType.Severity, reason, details)
}

// RejectionReason extracts the reason from an error returned by Check
func RejectionReason(err error) (string, bool) {
	var appErr *contextutils.AppError
	if !errors.As(err, &appErr) || !appErr.Is(contextutils.ErrUnsupportedFileType) {
		return "", false
	}
	return appErr.Message, true
}
