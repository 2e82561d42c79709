package attachments

import (
	"errors"
	"fmt"
)

var ErrAttachmentNotFound = errors.New("attachment not found")

// maxAttachmentSize caps the size of a file that may be referenced by
// a chat message. File bytes never pass through this service.
const maxAttachmentSize = 25 << 20 // 25 MiB

// Info describes a stored attachment. The chat core only stores and
// forwards the reference id; the file service owns the bytes.
type Info struct {
	Id          int    `json:"id"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Resolver looks up attachment metadata by reference id.
type Resolver interface {
	Resolve(attachmentId int) (Info, error)
}

// Validate rejects references the chat pipeline should not accept.
func Validate(info Info) error {
	if info.Size <= 0 {
		return fmt.Errorf("attachment %d has no content", info.Id)
	}
	if info.Size > maxAttachmentSize {
		return fmt.Errorf("attachment %d exceeds size limit: %d bytes", info.Id, info.Size)
	}
	if info.ContentType == "" {
		return fmt.Errorf("attachment %d has no content type", info.Id)
	}
	return nil
}
