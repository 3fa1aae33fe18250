package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/nkiryanov/comictracker/internal/apperrors"
)

// Saves messages to a directory instead of sending them
// Every message is two files: <stamp>_<tag>.html with the body and <stamp>_<tag>.json with the headers
type DevSender struct {
	dir string
	now func() time.Time
}

func NewDevSender(dir string) *DevSender {
	return &DevSender{dir: dir, now: time.Now}
}

type devMetadata struct {
	Timestamp string `json:"timestamp"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Tag       string `json:"tag,omitempty"`
}

func (d *DevSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(d.dir, 0o700); err != nil {
		return fmt.Errorf("%w: can't create mail dir. Err: %w", apperrors.ErrSendEmail, err)
	}

	now := d.now()
	identifier := msg.Tag
	if identifier == "" {
		identifier = msg.Subject
	}
	base := filepath.Join(d.dir, fmt.Sprintf("%s_%s", now.Format("20060102_150405.000000000"), sanitizeFilename(identifier)))

	// Message bodies carry reset links, so nobody but owner may read them
	if err := os.WriteFile(base+".html", []byte(msg.HTMLBody), 0o600); err != nil {
		return fmt.Errorf("%w: can't write body. Err: %w", apperrors.ErrSendEmail, err)
	}

	meta, err := json.MarshalIndent(devMetadata{
		Timestamp: now.Format(time.RFC3339),
		To:        msg.To,
		Subject:   msg.Subject,
		Tag:       msg.Tag,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrSendEmail, err)
	}

	if err := os.WriteFile(base+".json", meta, 0o600); err != nil {
		return fmt.Errorf("%w: can't write metadata. Err: %w", apperrors.ErrSendEmail, err)
	}

	return nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = unsafeFilenameChars.ReplaceAllString(s, "")

	const maxLength = 100
	if len(s) > maxLength {
		s = s[:maxLength]
	}
	if s == "" {
		s = "email"
	}

	return strings.ToLower(s)
}
