package mailsource

import (
	"context"
	"io"
	"time"
)

// Source abstracts a mailbox. The core only ever sees this capability set;
// the concrete transport (IMAP, a local maildir, a test fake) lives behind it.
type Source interface {
	Connect(ctx context.Context) (Session, error)
}

// Session is an authenticated connection to a mailbox.
type Session interface {
	Folder(name string) (Folder, error)
	Close() error
}

// Folder is a single mail folder. Messages returns every message received on
// or after since; callers must still filter precisely, since backends may
// only support day-granularity cutoffs.
type Folder interface {
	Messages(ctx context.Context, since time.Time) ([]Message, error)
}

// Message is a read-only view over one mail item.
type Message interface {
	// Sender returns the sender address, lowercased, or "" if unavailable.
	Sender() string
	Subject() string
	// Received reports the received timestamp. ok is false for items with
	// no concrete timestamp, such as drafts.
	Received() (t time.Time, ok bool)
	Attachments() ([]Attachment, error)
}

// Attachment is one file attached to a message.
type Attachment interface {
	Filename() string
	Open() (io.ReadCloser, error)
}
