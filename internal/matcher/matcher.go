// Package matcher filters a folder's messages down to download candidates.
package matcher

import (
	"context"
	"log"
	"strings"

	"github.com/airliecassidy/emaildownloader/internal/domain"
	"github.com/airliecassidy/emaildownloader/internal/ledger"
	"github.com/airliecassidy/emaildownloader/internal/mailsource"
	"github.com/airliecassidy/emaildownloader/internal/schedule"
)

// SkipReason classifies why a message was not emitted as a candidate.
type SkipReason string

const (
	SkipWrongSender      SkipReason = "wrong_sender"
	SkipNoTimestamp      SkipReason = "no_timestamp"
	SkipOutsideWindow    SkipReason = "outside_window"
	SkipAlreadyProcessed SkipReason = "already_processed"
	SkipDuplicateInScan  SkipReason = "duplicate_in_scan"
	SkipItemError        SkipReason = "item_error"
)

// Skip records one non-candidate message and why it was passed over.
type Skip struct {
	Reason SkipReason
	Sender string
	Err    error
}

// Report is the outcome of scanning one folder.
type Report struct {
	Candidates []domain.Candidate
	Skipped    []Skip
}

// Scan walks msgs in source order and keeps those from sender, received
// inside window and not yet in the ledger. Identical identities within one
// scan collapse to a single candidate. A failure on one item is recorded
// and the scan continues.
func Scan(ctx context.Context, msgs []mailsource.Message, window schedule.Window, sender string, led ledger.Ledger) Report {
	var report Report
	seen := make(map[string]struct{})

	for _, msg := range msgs {
		from := msg.Sender()
		if !strings.EqualFold(from, strings.TrimSpace(sender)) {
			report.Skipped = append(report.Skipped, Skip{Reason: SkipWrongSender, Sender: from})
			continue
		}

		received, ok := msg.Received()
		if !ok {
			// Drafts and the like carry no received timestamp.
			report.Skipped = append(report.Skipped, Skip{Reason: SkipNoTimestamp, Sender: from})
			continue
		}
		if !window.Contains(received) {
			report.Skipped = append(report.Skipped, Skip{Reason: SkipOutsideWindow, Sender: from})
			continue
		}

		id := domain.Identity(from, msg.Subject(), received)
		if _, dup := seen[id]; dup {
			report.Skipped = append(report.Skipped, Skip{Reason: SkipDuplicateInScan, Sender: from})
			continue
		}

		processed, err := led.Contains(ctx, id)
		if err != nil {
			log.Printf("Ledger lookup failed for message from %s: %v", from, err)
			report.Skipped = append(report.Skipped, Skip{Reason: SkipItemError, Sender: from, Err: err})
			continue
		}
		if processed {
			report.Skipped = append(report.Skipped, Skip{Reason: SkipAlreadyProcessed, Sender: from})
			continue
		}

		seen[id] = struct{}{}
		log.Printf("Found candidate email from %s received %s", from, received.Format("2006-01-02 15:04:05"))
		report.Candidates = append(report.Candidates, domain.Candidate{
			Identity: id,
			Sender:   from,
			Subject:  msg.Subject(),
			Received: received,
			Message:  msg,
		})
	}
	return report
}
