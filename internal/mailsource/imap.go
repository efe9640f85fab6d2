package mailsource

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
)

// IMAPOptions configures the IMAP-backed Source.
type IMAPOptions struct {
	Server   string
	Port     int
	Username string
	Password string
}

// IMAPSource connects to an IMAP server over TLS.
type IMAPSource struct {
	opts IMAPOptions
}

func NewIMAP(opts IMAPOptions) *IMAPSource {
	return &IMAPSource{opts: opts}
}

func (s *IMAPSource) Connect(ctx context.Context) (Session, error) {
	addr := fmt.Sprintf("%s:%d", s.opts.Server, s.opts.Port)
	c, err := client.DialTLS(addr, &tls.Config{ServerName: s.opts.Server})
	if err != nil {
		return nil, fmt.Errorf("failed to dial IMAP: %w", err)
	}

	if err := c.Login(s.opts.Username, s.opts.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("failed to login: %w", err)
	}

	return &imapSession{c: c}, nil
}

type imapSession struct {
	c *client.Client
}

func (s *imapSession) Folder(name string) (Folder, error) {
	// Read-only select: downloading must not flip \Seen flags on the
	// shared mailbox.
	if _, err := s.c.Select(name, true); err != nil {
		return nil, fmt.Errorf("failed to select %q: %w", name, err)
	}
	return &imapFolder{c: s.c, name: name}, nil
}

func (s *imapSession) Close() error {
	return s.c.Logout()
}

type imapFolder struct {
	c    *client.Client
	name string
}

func (f *imapFolder) Messages(ctx context.Context, since time.Time) ([]Message, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Since = since

	uids, err := f.c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("search in %q failed: %w", f.name, err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, imap.FetchInternalDate, section.FetchItem()}

	ch := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- f.c.UidFetch(seqSet, items, ch)
	}()

	var msgs []Message
	for msg := range ch {
		m, err := newIMAPMessage(msg, section)
		if err != nil {
			// One broken item must not sink the whole scan.
			log.Printf("Skipping message uid=%d in %q: %v", msg.Uid, f.name, err)
			continue
		}
		msgs = append(msgs, m)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch in %q failed: %w", f.name, err)
	}
	return msgs, nil
}

type imapMessage struct {
	envelope     *imap.Envelope
	internalDate time.Time
	raw          []byte
}

func newIMAPMessage(msg *imap.Message, section *imap.BodySectionName) (*imapMessage, error) {
	r := msg.GetBody(section)
	if r == nil {
		return nil, fmt.Errorf("server didn't return message body")
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return &imapMessage{
		envelope:     msg.Envelope,
		internalDate: msg.InternalDate,
		raw:          raw,
	}, nil
}

func (m *imapMessage) Sender() string {
	if m.envelope == nil || len(m.envelope.From) == 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(m.envelope.From[0].Address()))
}

func (m *imapMessage) Subject() string {
	if m.envelope == nil {
		return ""
	}
	return m.envelope.Subject
}

func (m *imapMessage) Received() (time.Time, bool) {
	if m.envelope != nil && !m.envelope.Date.IsZero() {
		return m.envelope.Date, true
	}
	if !m.internalDate.IsZero() {
		return m.internalDate, true
	}
	return time.Time{}, false
}

func (m *imapMessage) Attachments() ([]Attachment, error) {
	mr, err := mail.CreateReader(bytes.NewReader(m.raw))
	if err != nil {
		return nil, fmt.Errorf("failed to create mail reader: %w", err)
	}

	var atts []Attachment
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return atts, fmt.Errorf("failed to read part: %w", err)
		}

		h, ok := p.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}
		name, _ := h.Filename()
		data, err := io.ReadAll(p.Body)
		if err != nil {
			return atts, fmt.Errorf("failed to read attachment %q: %w", name, err)
		}
		atts = append(atts, &imapAttachment{name: name, data: data})
	}
	return atts, nil
}

type imapAttachment struct {
	name string
	data []byte
}

func (a *imapAttachment) Filename() string { return a.name }

func (a *imapAttachment) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(a.data)), nil
}
