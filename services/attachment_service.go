package services

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"worklink_backend/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Per-kind decoded size caps.
const (
	MaxImageBytes = 10 << 20 // 10MB
	MaxVoiceBytes = 50 << 20 // 50MB
	MaxFileBytes  = 50 << 20 // 50MB
)

// IncomingFile is one inline-encoded attachment arriving in a send_message
// frame.
type IncomingFile struct {
	FileData string  `json:"file_data"` // base64
	FileName string  `json:"file_name"`
	FileSize int64   `json:"file_size,omitempty"` // client-declared, informational
	MimeType string  `json:"mime_type"`
	Duration float64 `json:"duration,omitempty"` // seconds, voice only
}

// FileError is a per-file ingest failure; one bad file never aborts its
// siblings.
type FileError struct {
	FileName string
	Err      error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.FileName, e.Err)
}

// AttachmentService decodes inline attachments, enforces size limits and
// writes accepted files to kind-scoped storage.
type AttachmentService struct {
	uploadRoot string
}

func NewAttachmentService(uploadRoot string) *AttachmentService {
	return &AttachmentService{uploadRoot: uploadRoot}
}

func limitFor(messageType string) int64 {
	switch messageType {
	case models.MessageTypeImage:
		return MaxImageBytes
	case models.MessageTypeVoice:
		return MaxVoiceBytes
	default:
		return MaxFileBytes
	}
}

// normalizeBase64 tolerates the sloppy encodings some clients emit:
// surrounding whitespace, data-URL prefixes and missing padding.
func normalizeBase64(data string) string {
	data = strings.TrimSpace(data)
	if idx := strings.Index(data, ";base64,"); idx != -1 {
		data = data[idx+len(";base64,"):]
	}
	data = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t', ' ':
			return -1
		}
		return r
	}, data)
	if m := len(data) % 4; m != 0 {
		data += strings.Repeat("=", 4-m)
	}
	return data
}

func sanitizeFileName(name string) string {
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', ':':
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." {
		name = uuid.NewString()
	}
	return name
}

// Ingest decodes and stores a batch of attachments for one message. The
// returned descriptors cover the accepted subset; failures come back per
// file. Only when every file fails (or the batch is empty) is the batch as a
// whole unusable, and that call is the caller's to make (a message may still
// carry text).
func (s *AttachmentService) Ingest(senderID uint, messageType string, items []IncomingFile) ([]models.FileDescriptor, []FileError) {
	var descriptors []models.FileDescriptor
	var fileErrors []FileError

	limit := limitFor(messageType)
	now := time.Now().UnixNano()

	for seq, item := range items {
		decoded, err := base64.StdEncoding.DecodeString(normalizeBase64(item.FileData))
		if err != nil {
			fileErrors = append(fileErrors, FileError{
				FileName: item.FileName,
				Err:      errors.Wrap(ErrValidation, "invalid base64 data"),
			})
			continue
		}

		if int64(len(decoded)) > limit {
			fileErrors = append(fileErrors, FileError{
				FileName: item.FileName,
				Err:      errors.Wrapf(ErrValidation, "file exceeds the %dMB limit for %s messages", limit>>20, messageType),
			})
			continue
		}

		dir := filepath.Join(s.uploadRoot, "chat", messageType)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fileErrors = append(fileErrors, FileError{
				FileName: item.FileName,
				Err:      errors.Wrap(err, "create storage directory"),
			})
			continue
		}

		// Collision avoidance, not security: sender, timestamp and batch
		// sequence keep concurrent uploads apart.
		storedName := fmt.Sprintf("%d_%d_%d_%s", senderID, now, seq, sanitizeFileName(item.FileName))
		storedPath := filepath.Join(dir, storedName)

		if err := os.WriteFile(storedPath, decoded, 0o644); err != nil {
			fileErrors = append(fileErrors, FileError{
				FileName: item.FileName,
				Err:      errors.Wrap(err, "write file"),
			})
			continue
		}

		descriptors = append(descriptors, models.FileDescriptor{
			FileName: item.FileName,
			FileURL:  "/uploads/chat/" + messageType + "/" + storedName,
			FileSize: int64(len(decoded)),
			MimeType: item.MimeType,
			Duration: item.Duration,
		})
	}

	return descriptors, fileErrors
}
