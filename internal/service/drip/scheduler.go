// Package drip runs the campaign send loop: each pass dispatches at most one
// email per active campaign, spaced by the campaign's interval and rotating
// through its templates. A campaign whose list is exhausted is marked sent.
package drip

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/domain"
	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/pkg/distlock"
	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/pkg/logger"
)

// DefaultPollInterval is how often the scheduler scans for due campaigns.
const DefaultPollInterval = 30 * time.Second

// ErrAlreadyClaimed must be returned by Ledger.Claim when another pass
// already holds the (campaign, contact) slot.
var ErrAlreadyClaimed = errors.New("contact already claimed for this campaign")

// CampaignStore is the campaign state the scheduler reads and advances.
type CampaignStore interface {
	Due(ctx context.Context, now time.Time, limit int) ([]domain.Campaign, error)
	MarkSending(ctx context.Context, id string) error
	MarkSent(ctx context.Context, id string, at time.Time) error
	TouchLastSent(ctx context.Context, id string, at time.Time) error
}

// ContactResolver turns a list id into recipient emails in stable order.
type ContactResolver interface {
	ListEmails(ctx context.Context, listID string) ([]string, error)
}

// Ledger is the send-log slice the scheduler needs: who was attempted, claim
// the next contact, record the outcome.
type Ledger interface {
	AttemptedEmails(ctx context.Context, campaignID string) (map[string]bool, error)
	Claim(ctx context.Context, campaignID, contactEmail, templateID string) (string, error)
	MarkResult(ctx context.Context, logID string, status domain.SendLogStatus, messageID, sendErr string, at time.Time) error
}

// Dispatcher renders and delivers one email for a claimed log row.
type Dispatcher interface {
	Dispatch(ctx context.Context, c *domain.Campaign, logID, templateID, toEmail string) (messageID string, sendErr error)
}

// LockFactory builds a distributed lock for the given key. The scheduler
// takes one lock per campaign so concurrent workers never race on the same
// campaign's drip sequence.
type LockFactory func(key string) distlock.DistLock

// Scheduler drives the drip state machine.
type Scheduler struct {
	store      CampaignStore
	contacts   ContactResolver
	ledger     Ledger
	dispatcher Dispatcher
	locks      LockFactory

	pollInterval time.Duration
	batchSize    int
	now          func() time.Time

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// Option tweaks scheduler behavior.
type Option func(*Scheduler)

// WithPollInterval overrides the scan cadence.
func WithPollInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.pollInterval = d }
}

// WithBatchSize caps how many campaigns one pass examines.
func WithBatchSize(n int) Option {
	return func(s *Scheduler) { s.batchSize = n }
}

// WithClock injects the time source. Tests use this.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// NewScheduler wires a scheduler over its collaborators.
func NewScheduler(store CampaignStore, contacts ContactResolver, ledger Ledger, dispatcher Dispatcher, locks LockFactory, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:        store,
		contacts:     contacts,
		ledger:       ledger,
		dispatcher:   dispatcher,
		locks:        locks,
		pollInterval: DefaultPollInterval,
		batchSize:    20,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the poll loop. Returns an error if already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler already running")
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop(ctx)
	log.Printf("[DripScheduler] Started (poll interval: %v)", s.pollInterval)
	return nil
}

// Stop halts the loop and waits for the in-flight pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()

	<-done
	log.Printf("[DripScheduler] Stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	// First pass immediately so a restart doesn't wait a full interval.
	s.RunPass(ctx)

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunPass(ctx)
		}
	}
}

// RunPass scans due campaigns and dispatches at most one email for each.
func (s *Scheduler) RunPass(ctx context.Context) {
	now := s.now()
	campaigns, err := s.store.Due(ctx, now, s.batchSize)
	if err != nil {
		logger.Error("drip pass failed to load due campaigns", "error", err.Error())
		return
	}

	for i := range campaigns {
		c := &campaigns[i]
		if err := s.processCampaign(ctx, c); err != nil {
			logger.Error("drip campaign pass failed", "campaign_id", c.ID, "error", err.Error())
		}
	}
}

// processCampaign advances one campaign under its per-campaign lock.
func (s *Scheduler) processCampaign(ctx context.Context, c *domain.Campaign) error {
	lock := s.locks("drip:" + c.ID)
	ok, err := lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		// Another worker owns this campaign right now.
		return nil
	}
	defer func() {
		if err := lock.Release(context.Background()); err != nil {
			logger.Warn("drip lock release failed", "campaign_id", c.ID, "error", err.Error())
		}
	}()

	now := s.now()

	if c.Status == domain.CampaignScheduled {
		if err := s.store.MarkSending(ctx, c.ID); err != nil {
			return fmt.Errorf("mark sending: %w", err)
		}
		c.Status = domain.CampaignSending
	}

	// Interval spacing: the first send goes out immediately, later sends
	// wait out the configured gap from the previous dispatch.
	if c.LastSentAt != nil && now.Sub(*c.LastSentAt) < c.Interval() {
		return nil
	}

	return s.dispatchNext(ctx, c, now)
}

// dispatchNext claims and sends to the first unattempted contact, or closes
// the campaign when everyone has a log row.
func (s *Scheduler) dispatchNext(ctx context.Context, c *domain.Campaign, now time.Time) error {
	emails, err := s.contacts.ListEmails(ctx, c.ListID)
	if err != nil {
		return fmt.Errorf("resolve contacts: %w", err)
	}

	attempted, err := s.ledger.AttemptedEmails(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("load attempted: %w", err)
	}

	next := ""
	for _, e := range emails {
		if !attempted[e] {
			next = e
			break
		}
	}
	if next == "" {
		if err := s.store.MarkSent(ctx, c.ID, now); err != nil {
			return fmt.Errorf("mark sent: %w", err)
		}
		log.Printf("[DripScheduler] Campaign %s complete (%d contacts attempted)", c.ID, len(attempted))
		return nil
	}

	// The k-th send (counting every attempted contact, failures included)
	// uses template k mod N.
	templateID, err := c.TemplateAt(len(attempted))
	if err != nil {
		return err
	}

	logID, err := s.ledger.Claim(ctx, c.ID, next, templateID)
	if errors.Is(err, ErrAlreadyClaimed) {
		// A concurrent pass got this contact. Its send counts for the
		// interval, so just wait for the next pass.
		return nil
	}
	if err != nil {
		return fmt.Errorf("claim contact: %w", err)
	}

	if err := s.store.TouchLastSent(ctx, c.ID, now); err != nil {
		return fmt.Errorf("touch last_sent_at: %w", err)
	}

	messageID, sendErr := s.dispatcher.Dispatch(ctx, c, logID, templateID, next)
	if sendErr != nil {
		// One attempt only. The row stays failed until the operator runs
		// resend-failed.
		if err := s.ledger.MarkResult(ctx, logID, domain.SendLogFailed, "", sendErr.Error(), s.now()); err != nil {
			return fmt.Errorf("mark failed: %w", err)
		}
		logger.Warn("drip send failed", "campaign_id", c.ID, "recipient", next, "error", sendErr.Error())
		return nil
	}

	if err := s.ledger.MarkResult(ctx, logID, domain.SendLogSuccess, messageID, "", s.now()); err != nil {
		return fmt.Errorf("mark success: %w", err)
	}
	return nil
}
