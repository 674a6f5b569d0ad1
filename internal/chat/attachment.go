package chat

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MaxAttachmentSize bounds files sent inline with a message
const MaxAttachmentSize = 20 << 20

// LoadAttachment reads a file and guesses its MIME type from the extension,
// falling back to content sniffing.
func LoadAttachment(path string) (*Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open attachment: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("attachment %s is a directory", path)
	}
	if info.Size() > MaxAttachmentSize {
		return nil, fmt.Errorf("attachment %s is %d bytes, limit is %d", path, info.Size(), MaxAttachmentSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	return &Attachment{MIMEType: mimeType, Data: data}, nil
}

// Label is the log entry recorded for a message carrying a file
func (a *Attachment) Label(text string) string {
	label := fmt.Sprintf("[Arquivo Enviado: %s]", a.MIMEType)
	if text == "" {
		return label
	}
	return label + " " + text
}
