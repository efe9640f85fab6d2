// Package worker drives the scan-and-download cycle on a fixed interval.
package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/airliecassidy/emaildownloader/internal/config"
	"github.com/airliecassidy/emaildownloader/internal/downloader"
	"github.com/airliecassidy/emaildownloader/internal/ledger"
	"github.com/airliecassidy/emaildownloader/internal/mailsource"
	"github.com/airliecassidy/emaildownloader/internal/matcher"
	"github.com/airliecassidy/emaildownloader/internal/schedule"
)

// State names the phase a cycle is in. A cycle always ends back at IDLE,
// whatever went wrong in between.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateScanning   State = "scanning"
	StateProcessing State = "processing"
)

// Notifier is the alerting surface the worker needs. notify.Mailer
// satisfies it; tests install a recorder.
type Notifier interface {
	MissingReport(sender string, target time.Time) error
	SystemError(cause error) error
}

// Status is a point-in-time snapshot of the worker, served by the status API.
type Status struct {
	State        State     `json:"state"`
	CycleID      string    `json:"cycle_id"`
	LastRun      time.Time `json:"last_run"`
	TargetDate   string    `json:"target_date"`
	Candidates   int       `json:"candidates"`
	SavedFiles   int       `json:"saved_files"`
	LedgerSize   int       `json:"ledger_size"`
	LastError    string    `json:"last_error,omitempty"`
	AlertedCycle bool      `json:"alerted_cycle"`
}

type Worker struct {
	cfg      *config.Config
	src      mailsource.Source
	led      ledger.Ledger
	notifier Notifier
	dl       *downloader.Downloader

	// now is swapped out in tests to pin the scan window.
	now func() time.Time

	mu     sync.Mutex
	status Status
}

func New(cfg *config.Config, src mailsource.Source, led ledger.Ledger, notifier Notifier) *Worker {
	return &Worker{
		cfg:      cfg,
		src:      src,
		led:      led,
		notifier: notifier,
		dl:       downloader.New(cfg.DownloadFolder, led),
		now:      time.Now,
		status:   Status{State: StateIdle},
	}
}

func (w *Worker) interval() time.Duration {
	return time.Duration(w.cfg.CheckIntervalMinutes) * time.Minute
}

// cooldown is the post-error sleep; always strictly longer than the normal
// interval so an error loop cannot spin tight.
func (w *Worker) cooldown() time.Duration {
	d := time.Duration(w.cfg.ErrorCooldownMinutes) * time.Minute
	if d <= w.interval() {
		d = 2 * w.interval()
	}
	return d
}

// Start runs cycles until ctx is cancelled. Shutdown is only observed at
// the sleep boundary; a running cycle always completes.
func (w *Worker) Start(ctx context.Context) {
	log.Printf("Email downloader started, polling every %s", w.interval())

	for {
		delay := w.interval()
		if err := w.RunCycle(ctx); err != nil {
			log.Printf("Cycle failed unexpectedly: %v", err)
			if nerr := w.notifier.SystemError(err); nerr != nil {
				log.Printf("Failed to send system-error alert: %v", nerr)
			}
			delay = w.cooldown()
			log.Printf("Cooling down for %s before next attempt", delay)
		}

		select {
		case <-ctx.Done():
			log.Println("Email downloader stopping...")
			return
		case <-time.After(delay):
		}
	}
}

// RunCycle performs one connect-scan-process pass. Transient infrastructure
// failures (connect, folder lookup, listing) are logged and absorbed; only
// a panic escapes as an error, which Start answers with the cooldown.
func (w *Worker) RunCycle(ctx context.Context) (err error) {
	cycleID := ulid.Make().String()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle %s panicked: %v", cycleID, r)
			w.finish(cycleID, Status{LastError: err.Error()})
		}
	}()

	now := w.now()
	target := schedule.TargetDate(now, w.cfg.ExpectedDay)
	window := schedule.WindowFor(target)

	w.setState(StateConnecting, cycleID)
	sess, cerr := w.src.Connect(ctx)
	if cerr != nil {
		log.Printf("[%s] Mail source connect failed: %v", cycleID, cerr)
		w.finish(cycleID, Status{TargetDate: target.Format("2006-01-02"), LastError: cerr.Error()})
		return nil
	}
	defer sess.Close()

	folder, ferr := sess.Folder(w.cfg.SharedFolderName)
	if ferr != nil {
		log.Printf("[%s] Folder %q lookup failed: %v", cycleID, w.cfg.SharedFolderName, ferr)
		w.finish(cycleID, Status{TargetDate: target.Format("2006-01-02"), LastError: ferr.Error()})
		return nil
	}

	w.setState(StateScanning, cycleID)
	msgs, merr := folder.Messages(ctx, window.Start)
	if merr != nil {
		log.Printf("[%s] Listing %q failed: %v", cycleID, w.cfg.SharedFolderName, merr)
		w.finish(cycleID, Status{TargetDate: target.Format("2006-01-02"), LastError: merr.Error()})
		return nil
	}

	report := matcher.Scan(ctx, msgs, window, w.cfg.SenderEmail, w.led)
	log.Printf("[%s] Scanned %d messages in %q: %d candidates, %d skipped",
		cycleID, len(msgs), w.cfg.SharedFolderName, len(report.Candidates), len(report.Skipped))

	w.setState(StateProcessing, cycleID)
	saved := 0
	for _, cand := range report.Candidates {
		n, derr := w.dl.Download(ctx, cand)
		saved += n
		if derr != nil {
			log.Printf("[%s] Processing message from %s failed: %v", cycleID, cand.Sender, derr)
			continue
		}
		if n == 0 {
			log.Printf("[%s] No attachments saved from %s; will retry next cycle", cycleID, cand.Sender)
		}
	}

	alerted := false
	if len(report.Candidates) == 0 && schedule.AlertDue(now, target, w.cfg.ExpectedDay) {
		log.Printf("[%s] Expected email from %s for %s is missing, alerting",
			cycleID, w.cfg.SenderEmail, target.Format("2006-01-02"))
		if nerr := w.notifier.MissingReport(w.cfg.SenderEmail, target); nerr != nil {
			log.Printf("[%s] Failed to send missing-report alert: %v", cycleID, nerr)
		}
		alerted = true
	}

	w.finish(cycleID, Status{
		TargetDate:   target.Format("2006-01-02"),
		Candidates:   len(report.Candidates),
		SavedFiles:   saved,
		AlertedCycle: alerted,
	})
	return nil
}

func (w *Worker) setState(s State, cycleID string) {
	w.mu.Lock()
	w.status.State = s
	w.status.CycleID = cycleID
	w.mu.Unlock()
}

func (w *Worker) finish(cycleID string, s Status) {
	size, err := w.led.Len(context.Background())
	if err != nil {
		log.Printf("[%s] Ledger size unavailable: %v", cycleID, err)
	}

	w.mu.Lock()
	s.State = StateIdle
	s.CycleID = cycleID
	s.LastRun = w.now()
	s.LedgerSize = size
	w.status = s
	w.mu.Unlock()
}

// Snapshot returns the current status for diagnostics.
func (w *Worker) Snapshot() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}
