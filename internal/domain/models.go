package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/airliecassidy/emaildownloader/internal/mailsource"
)

// Candidate is a message that passed sender, window and dedup filters and is
// ready for download. It holds a live view into the mail source; never
// persist one past the scan that produced it.
type Candidate struct {
	Identity string
	Sender   string
	Subject  string
	Received time.Time
	Message  mailsource.Message
}

// Identity fingerprints a message from its sender, subject and received
// timestamp. The same underlying message must hash identically across
// process restarts, so only stable header data goes in.
func Identity(sender, subject string, received time.Time) string {
	payload := fmt.Sprintf("%s|%s|%d", strings.ToLower(strings.TrimSpace(sender)), subject, received.Unix())
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
