// Package downloader saves a candidate's attachments and records the
// message in the ledger once at least one file landed on disk.
package downloader

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/airliecassidy/emaildownloader/internal/domain"
	"github.com/airliecassidy/emaildownloader/internal/ledger"
	"github.com/airliecassidy/emaildownloader/internal/mailsource"
)

type Downloader struct {
	destDir string
	led     ledger.Ledger

	// now is swapped out in tests to pin the collision suffix.
	now func() time.Time
}

func New(destDir string, led ledger.Ledger) *Downloader {
	return &Downloader{destDir: destDir, led: led, now: time.Now}
}

// Download saves every attachment of cand it can and returns the number
// saved. Individual save failures are logged and skipped. The message is
// marked processed only when count > 0 and the ledger write succeeded, so
// a fully failed message stays eligible for the next cycle.
func (d *Downloader) Download(ctx context.Context, cand domain.Candidate) (int, error) {
	if err := os.MkdirAll(d.destDir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create download dir %s: %w", d.destDir, err)
	}

	atts, err := cand.Message.Attachments()
	if err != nil {
		return 0, fmt.Errorf("failed to list attachments: %w", err)
	}

	count := 0
	for _, att := range atts {
		path := d.resolvePath(att.Filename())
		if err := save(att, path); err != nil {
			log.Printf("Failed to save attachment %q from %s: %v", att.Filename(), cand.Sender, err)
			continue
		}
		log.Printf("Saved attachment %s", path)
		count++
	}

	if count == 0 {
		return 0, nil
	}

	if err := d.led.Add(ctx, cand.Identity); err != nil {
		// Files are on disk but the identity is not durable; report failure
		// so the cycle logs it. The next scan may download again, which we
		// prefer over silently losing track.
		return count, fmt.Errorf("failed to record processed message: %w", err)
	}
	return count, nil
}

// resolvePath maps a declared attachment name onto a non-colliding path in
// the destination directory. An existing file of the same name gets a
// _YYYYMMDD_HHMMSS suffix before the extension; same-second collisions are
// out of scope.
func (d *Downloader) resolvePath(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "attachment.bin"
	}

	path := filepath.Join(d.destDir, base)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	stamp := d.now().Format("20060102_150405")
	return filepath.Join(d.destDir, fmt.Sprintf("%s_%s%s", stem, stamp, ext))
}

func save(att mailsource.Attachment, path string) error {
	rc, err := att.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
