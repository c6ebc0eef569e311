package drip

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/domain"
	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/pkg/distlock"
)

// =============================================================================
// Fakes
// =============================================================================

type memStore struct {
	mu        sync.Mutex
	campaigns map[string]*domain.Campaign
}

func newMemStore(cs ...*domain.Campaign) *memStore {
	s := &memStore{campaigns: make(map[string]*domain.Campaign)}
	for _, c := range cs {
		s.campaigns[c.ID] = c
	}
	return s
}

func (s *memStore) Due(ctx context.Context, now time.Time, limit int) ([]domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Campaign
	for _, c := range s.campaigns {
		if c.Status == domain.CampaignSending ||
			(c.Status == domain.CampaignScheduled && c.ScheduledAt != nil && !c.ScheduledAt.After(now)) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *memStore) MarkSending(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns[id].Status = domain.CampaignSending
	return nil
}

func (s *memStore) MarkSent(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns[id].Status = domain.CampaignSent
	s.campaigns[id].SentAt = &at
	return nil
}

func (s *memStore) TouchLastSent(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := at
	s.campaigns[id].LastSentAt = &t
	return nil
}

type memContacts struct{ lists map[string][]string }

func (m *memContacts) ListEmails(ctx context.Context, listID string) ([]string, error) {
	return m.lists[listID], nil
}

type memLedger struct {
	mu      sync.Mutex
	rows    map[string]*domain.SendLog // by log id
	byPair  map[string]string          // campaign|email -> log id
	counter int
}

func newMemLedger() *memLedger {
	return &memLedger{rows: make(map[string]*domain.SendLog), byPair: make(map[string]string)}
}

func (l *memLedger) AttemptedEmails(ctx context.Context, campaignID string) (map[string]bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]bool)
	for _, row := range l.rows {
		if row.CampaignID == campaignID {
			out[row.ContactEmail] = true
		}
	}
	return out, nil
}

func (l *memLedger) Claim(ctx context.Context, campaignID, email, templateID string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := campaignID + "|" + email
	if _, exists := l.byPair[key]; exists {
		return "", ErrAlreadyClaimed
	}
	l.counter++
	id := "log-" + time.Now().Format("150405") + "-" + string(rune('a'+l.counter))
	l.rows[id] = &domain.SendLog{
		ID: id, CampaignID: campaignID, ContactEmail: email,
		TemplateID: templateID, Status: domain.SendLogSending,
	}
	l.byPair[key] = id
	return id, nil
}

func (l *memLedger) MarkResult(ctx context.Context, logID string, status domain.SendLogStatus, messageID, sendErr string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	row := l.rows[logID]
	row.Status = status
	row.MessageID = messageID
	row.Error = sendErr
	row.SentAt = &at
	return nil
}

func (l *memLedger) statuses(campaignID string) map[string]domain.SendLogStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]domain.SendLogStatus)
	for _, row := range l.rows {
		if row.CampaignID == campaignID {
			out[row.ContactEmail] = row.Status
		}
	}
	return out
}

type sentMail struct {
	email      string
	templateID string
}

type fakeDispatcher struct {
	mu     sync.Mutex
	sent   []sentMail
	failOn map[string]error // by recipient email
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, c *domain.Campaign, logID, templateID, toEmail string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err, ok := d.failOn[toEmail]; ok {
		return "", err
	}
	d.sent = append(d.sent, sentMail{email: toEmail, templateID: templateID})
	return "msg-" + toEmail, nil
}

type noopLock struct{}

func (noopLock) Acquire(ctx context.Context) (bool, error) { return true, nil }
func (noopLock) Release(ctx context.Context) error         { return nil }

type deniedLock struct{}

func (deniedLock) Acquire(ctx context.Context) (bool, error) { return false, nil }
func (deniedLock) Release(ctx context.Context) error         { return nil }

func noopLocks(key string) distlock.DistLock { return noopLock{} }

// =============================================================================
// Tests
// =============================================================================

type fixture struct {
	store      *memStore
	contacts   *memContacts
	ledger     *memLedger
	dispatcher *fakeDispatcher
	clock      *fakeClock
	scheduler  *Scheduler
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFixture(t *testing.T, c *domain.Campaign, emails []string) *fixture {
	t.Helper()
	f := &fixture{
		store:      newMemStore(c),
		contacts:   &memContacts{lists: map[string][]string{c.ListID: emails}},
		ledger:     newMemLedger(),
		dispatcher: &fakeDispatcher{failOn: map[string]error{}},
		clock:      &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	f.scheduler = NewScheduler(f.store, f.contacts, f.ledger, f.dispatcher, noopLocks,
		WithClock(f.clock.Now))
	return f
}

func dripCampaign(status domain.CampaignStatus, scheduledAt *time.Time) *domain.Campaign {
	return &domain.Campaign{
		ID: "camp-1", UserID: "user-1", Name: "Drip", ListID: "list-1",
		TemplateIDs:       []string{"tpl-a", "tpl-b"},
		Status:            status,
		ScheduledAt:       scheduledAt,
		SendIntervalValue: 2, SendIntervalUnit: domain.IntervalMinute,
	}
}

// The reference walk-through: three contacts, two templates, two-minute
// interval. Each pass sends to exactly one new contact; the pass after the
// last contact closes the campaign.
func TestScheduler_DripSequence(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, dripCampaign(domain.CampaignScheduled, &start),
		[]string{"a@example.com", "b@example.com", "c@example.com"})
	ctx := context.Background()

	// Pass 1: transition to sending, first contact, first template.
	f.scheduler.RunPass(ctx)
	if got := f.store.campaigns["camp-1"].Status; got != domain.CampaignSending {
		t.Fatalf("status after pass 1 = %s, want sending", got)
	}
	if len(f.dispatcher.sent) != 1 || f.dispatcher.sent[0].email != "a@example.com" {
		t.Fatalf("sent after pass 1 = %+v", f.dispatcher.sent)
	}
	if f.dispatcher.sent[0].templateID != "tpl-a" {
		t.Errorf("first send template = %s, want tpl-a", f.dispatcher.sent[0].templateID)
	}

	// Pass at +1m: interval not elapsed, nothing goes out.
	f.clock.Advance(time.Minute)
	f.scheduler.RunPass(ctx)
	if len(f.dispatcher.sent) != 1 {
		t.Fatalf("send fired before interval elapsed: %+v", f.dispatcher.sent)
	}

	// Pass at +2m: second contact, rotated template.
	f.clock.Advance(time.Minute)
	f.scheduler.RunPass(ctx)
	if len(f.dispatcher.sent) != 2 || f.dispatcher.sent[1].email != "b@example.com" {
		t.Fatalf("sent after pass 3 = %+v", f.dispatcher.sent)
	}
	if f.dispatcher.sent[1].templateID != "tpl-b" {
		t.Errorf("second send template = %s, want tpl-b", f.dispatcher.sent[1].templateID)
	}

	// Pass at +4m: third contact, rotation wraps back to the first template.
	f.clock.Advance(2 * time.Minute)
	f.scheduler.RunPass(ctx)
	if len(f.dispatcher.sent) != 3 || f.dispatcher.sent[2].email != "c@example.com" {
		t.Fatalf("sent after pass 4 = %+v", f.dispatcher.sent)
	}
	if f.dispatcher.sent[2].templateID != "tpl-a" {
		t.Errorf("third send template = %s, want tpl-a (wrap)", f.dispatcher.sent[2].templateID)
	}
	if f.store.campaigns["camp-1"].Status != domain.CampaignSending {
		t.Error("campaign closed while a contact was being attempted")
	}

	// Pass at +6m: list exhausted, campaign closes.
	f.clock.Advance(2 * time.Minute)
	f.scheduler.RunPass(ctx)
	c := f.store.campaigns["camp-1"]
	if c.Status != domain.CampaignSent || c.SentAt == nil {
		t.Errorf("campaign not closed: status=%s sent_at=%v", c.Status, c.SentAt)
	}
	if len(f.dispatcher.sent) != 3 {
		t.Errorf("extra sends after exhaustion: %+v", f.dispatcher.sent)
	}
}

func TestScheduler_ScheduledInFutureNotTouched(t *testing.T) {
	future := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, dripCampaign(domain.CampaignScheduled, &future), []string{"a@example.com"})

	f.scheduler.RunPass(context.Background())
	if f.store.campaigns["camp-1"].Status != domain.CampaignScheduled {
		t.Error("future campaign transitioned early")
	}
	if len(f.dispatcher.sent) != 0 {
		t.Errorf("future campaign sent mail: %+v", f.dispatcher.sent)
	}
}

// A failed delivery still consumes the contact's one attempt and still
// advances the template rotation.
func TestScheduler_FailureCountsAsAttempted(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, dripCampaign(domain.CampaignScheduled, &start),
		[]string{"a@example.com", "b@example.com"})
	f.dispatcher.failOn["a@example.com"] = errors.New("mailbox unavailable")
	ctx := context.Background()

	f.scheduler.RunPass(ctx)
	statuses := f.ledger.statuses("camp-1")
	if statuses["a@example.com"] != domain.SendLogFailed {
		t.Fatalf("first contact status = %s, want failed", statuses["a@example.com"])
	}

	// Next eligible pass goes to b, never back to a, and the rotation index
	// includes the failed attempt.
	f.clock.Advance(2 * time.Minute)
	f.scheduler.RunPass(ctx)
	if len(f.dispatcher.sent) != 1 || f.dispatcher.sent[0].email != "b@example.com" {
		t.Fatalf("sent = %+v, want only b", f.dispatcher.sent)
	}
	if f.dispatcher.sent[0].templateID != "tpl-b" {
		t.Errorf("template = %s, want tpl-b (failed attempt advances rotation)", f.dispatcher.sent[0].templateID)
	}

	// A third pass closes the campaign even though one contact failed.
	f.clock.Advance(2 * time.Minute)
	f.scheduler.RunPass(ctx)
	if f.store.campaigns["camp-1"].Status != domain.CampaignSent {
		t.Error("campaign with failures never closed")
	}
}

// Contacts added to the list while the campaign is sending get picked up.
func TestScheduler_MidCampaignContactsIncluded(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, dripCampaign(domain.CampaignScheduled, &start), []string{"a@example.com"})
	ctx := context.Background()

	f.scheduler.RunPass(ctx)
	f.contacts.lists["list-1"] = append(f.contacts.lists["list-1"], "late@example.com")

	f.clock.Advance(2 * time.Minute)
	f.scheduler.RunPass(ctx)
	if len(f.dispatcher.sent) != 2 || f.dispatcher.sent[1].email != "late@example.com" {
		t.Errorf("late contact not picked up: %+v", f.dispatcher.sent)
	}
}

// A claim conflict means another worker sent this pass; the campaign waits.
func TestScheduler_ClaimConflictSkipsPass(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, dripCampaign(domain.CampaignScheduled, &start),
		[]string{"a@example.com", "b@example.com"})
	ctx := context.Background()

	// Simulate the other worker's claim racing in between AttemptedEmails
	// and Claim: pre-insert the row the fake ledger will conflict on.
	conflictLedger := &conflictOnFirstClaim{memLedger: f.ledger}
	f.scheduler = NewScheduler(f.store, f.contacts, conflictLedger, f.dispatcher, noopLocks,
		WithClock(f.clock.Now))

	f.scheduler.RunPass(ctx)
	if len(f.dispatcher.sent) != 0 {
		t.Errorf("dispatch happened despite losing the claim: %+v", f.dispatcher.sent)
	}
}

type conflictOnFirstClaim struct {
	*memLedger
	claimed bool
}

func (l *conflictOnFirstClaim) Claim(ctx context.Context, campaignID, email, templateID string) (string, error) {
	if !l.claimed {
		l.claimed = true
		return "", ErrAlreadyClaimed
	}
	return l.memLedger.Claim(ctx, campaignID, email, templateID)
}

func TestScheduler_LockDeniedLeavesCampaignAlone(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, dripCampaign(domain.CampaignScheduled, &start), []string{"a@example.com"})
	f.scheduler = NewScheduler(f.store, f.contacts, f.ledger, f.dispatcher,
		func(key string) distlock.DistLock { return deniedLock{} },
		WithClock(f.clock.Now))

	f.scheduler.RunPass(context.Background())
	if len(f.dispatcher.sent) != 0 {
		t.Errorf("dispatch happened without the campaign lock: %+v", f.dispatcher.sent)
	}
	if f.store.campaigns["camp-1"].Status != domain.CampaignScheduled {
		t.Error("status changed without the campaign lock")
	}
}

// An empty list closes immediately: scheduled -> sending -> sent in one pass.
func TestScheduler_EmptyListClosesImmediately(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, dripCampaign(domain.CampaignScheduled, &start), nil)

	f.scheduler.RunPass(context.Background())
	if f.store.campaigns["camp-1"].Status != domain.CampaignSent {
		t.Errorf("empty campaign status = %s, want sent", f.store.campaigns["camp-1"].Status)
	}
}

func TestScheduler_StartStop(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, dripCampaign(domain.CampaignScheduled, &start), []string{"a@example.com"})
	f.scheduler.pollInterval = 10 * time.Millisecond

	if err := f.scheduler.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := f.scheduler.Start(context.Background()); err == nil {
		t.Error("double Start() should error")
	}
	f.scheduler.Stop()
	// Stop again is a no-op.
	f.scheduler.Stop()
}
