package campaigns

import (
	"context"
	"errors"
	"testing"
	"time"

	"bizdesk/internal/domain/tenant"
)

type fakeStore struct {
	campaigns map[string]Campaign
	sent      map[string]int
	recorded  map[string][]string
	due       []Campaign
}

func newFakeStore(cs ...Campaign) *fakeStore {
	f := &fakeStore{
		campaigns: map[string]Campaign{},
		sent:      map[string]int{},
		recorded:  map[string][]string{},
	}
	for _, c := range cs {
		f.campaigns[c.TenantID+"/"+c.ID] = c
	}
	return f
}

func (f *fakeStore) GetCampaign(_ context.Context, tenantID, id string) (Campaign, error) {
	c, ok := f.campaigns[tenantID+"/"+id]
	if !ok {
		return Campaign{}, errors.New("no rows in result set")
	}
	return c, nil
}

func (f *fakeStore) MarkSending(_ context.Context, tenantID, id string) (bool, error) {
	key := tenantID + "/" + id
	c, ok := f.campaigns[key]
	if !ok || (c.Status != StatusDraft && c.Status != StatusScheduled) {
		return false, nil
	}
	c.Status = StatusSending
	f.campaigns[key] = c
	return true, nil
}

func (f *fakeStore) MarkSent(_ context.Context, tenantID, id string, count int) error {
	key := tenantID + "/" + id
	c := f.campaigns[key]
	c.Status = StatusSent
	c.SentCount = count
	f.campaigns[key] = c
	f.sent[key] = count
	return nil
}

func (f *fakeStore) Schedule(_ context.Context, tenantID, id string, at time.Time) error {
	key := tenantID + "/" + id
	c, ok := f.campaigns[key]
	if !ok || c.Status != StatusDraft {
		return errors.New("no rows in result set")
	}
	c.Status = StatusScheduled
	c.ScheduledAt = &at
	f.campaigns[key] = c
	return nil
}

func (f *fakeStore) ListDue(context.Context, time.Time) ([]Campaign, error) {
	return f.due, nil
}

func (f *fakeStore) RecordEmails(_ context.Context, tenantID, id string, recipients []string) error {
	f.recorded[tenantID+"/"+id] = recipients
	return nil
}

type fakeRecipients struct {
	emails []string
}

func (f fakeRecipients) ListRecipients(context.Context, string, string) ([]string, error) {
	return f.emails, nil
}

type fakeQuota struct {
	usage int
	limit int
}

func (f fakeQuota) CanAdd(_ context.Context, _ string, _ tenant.LimitKind, n int) (bool, int, int, error) {
	if f.limit <= 0 {
		return true, f.usage, f.limit, nil
	}
	return f.usage+n <= f.limit, f.usage, f.limit, nil
}

type fakeMailer struct {
	failFor map[string]bool
	sent    []string
}

func (f *fakeMailer) Send(_ context.Context, to, _, _ string) error {
	if f.failFor[to] {
		return errors.New("smtp refused")
	}
	f.sent = append(f.sent, to)
	return nil
}

func draftCampaign() Campaign {
	return Campaign{ID: "c1", TenantID: "t1", Name: "August news", Subject: "Hello", Body: "...", ListID: "l1", Status: StatusDraft}
}

func TestSendDeliversAndRecords(t *testing.T) {
	store := newFakeStore(draftCampaign())
	mailer := &fakeMailer{}
	svc := NewService(store, fakeRecipients{emails: []string{"a@x.com", "b@x.com"}}, fakeQuota{limit: 500}, mailer)

	count, err := svc.Send(context.Background(), "t1", "c1")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 sends, got %d", count)
	}
	if got := store.campaigns["t1/c1"].Status; got != StatusSent {
		t.Errorf("expected status sent, got %q", got)
	}
	if len(store.recorded["t1/c1"]) != 2 {
		t.Errorf("expected 2 recorded emails, got %d", len(store.recorded["t1/c1"]))
	}
}

func TestSendRejectsOverQuota(t *testing.T) {
	store := newFakeStore(draftCampaign())
	svc := NewService(store, fakeRecipients{emails: []string{"a@x.com", "b@x.com", "c@x.com"}}, fakeQuota{usage: 499, limit: 500}, &fakeMailer{})

	_, err := svc.Send(context.Background(), "t1", "c1")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if got := store.campaigns["t1/c1"].Status; got != StatusDraft {
		t.Errorf("campaign should remain draft after quota rejection, got %q", got)
	}
}

func TestSendUnlimitedQuota(t *testing.T) {
	store := newFakeStore(draftCampaign())
	svc := NewService(store, fakeRecipients{emails: []string{"a@x.com"}}, fakeQuota{usage: 99999, limit: 0}, &fakeMailer{})

	if _, err := svc.Send(context.Background(), "t1", "c1"); err != nil {
		t.Fatalf("Send with unlimited quota: %v", err)
	}
}

func TestSendSkipsFailedDeliveries(t *testing.T) {
	store := newFakeStore(draftCampaign())
	mailer := &fakeMailer{failFor: map[string]bool{"b@x.com": true}}
	svc := NewService(store, fakeRecipients{emails: []string{"a@x.com", "b@x.com", "c@x.com"}}, fakeQuota{limit: 500}, mailer)

	count, err := svc.Send(context.Background(), "t1", "c1")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 successful sends, got %d", count)
	}
	if got := store.sent["t1/c1"]; got != 2 {
		t.Errorf("sent count recorded as %d, want 2", got)
	}
}

func TestSendRejectsEmptyList(t *testing.T) {
	svc := NewService(newFakeStore(draftCampaign()), fakeRecipients{}, fakeQuota{limit: 500}, &fakeMailer{})

	if _, err := svc.Send(context.Background(), "t1", "c1"); !errors.Is(err, ErrNoRecipients) {
		t.Fatalf("expected ErrNoRecipients, got %v", err)
	}
}

func TestSendRejectsAlreadySent(t *testing.T) {
	c := draftCampaign()
	c.Status = StatusSent
	svc := NewService(newFakeStore(c), fakeRecipients{emails: []string{"a@x.com"}}, fakeQuota{limit: 500}, &fakeMailer{})

	if _, err := svc.Send(context.Background(), "t1", "c1"); !errors.Is(err, ErrNotSendable) {
		t.Fatalf("expected ErrNotSendable, got %v", err)
	}
}

func TestScheduleRejectsPast(t *testing.T) {
	svc := NewService(newFakeStore(draftCampaign()), fakeRecipients{}, fakeQuota{}, &fakeMailer{})

	if err := svc.Schedule(context.Background(), "t1", "c1", time.Now().Add(-time.Hour)); err == nil {
		t.Fatal("expected error scheduling in the past")
	}
	if err := svc.Schedule(context.Background(), "t1", "c1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Schedule future: %v", err)
	}
}

func TestDispatchDueSendsEach(t *testing.T) {
	due := draftCampaign()
	due.Status = StatusScheduled
	store := newFakeStore(due)
	store.due = []Campaign{due}
	mailer := &fakeMailer{}
	svc := NewService(store, fakeRecipients{emails: []string{"a@x.com"}}, fakeQuota{limit: 500}, mailer)

	dispatched, err := svc.DispatchDue(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("DispatchDue: %v", err)
	}
	if dispatched != 1 {
		t.Fatalf("dispatched = %d, want 1", dispatched)
	}
	if got := store.campaigns["t1/c1"].Status; got != StatusSent {
		t.Fatalf("expected dispatched campaign to be sent, got %q", got)
	}
}
