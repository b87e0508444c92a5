package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"ahlan-reserve/internal/backend"
	"ahlan-reserve/internal/contract"
	"ahlan-reserve/internal/domain"

	"github.com/shopspring/decimal"
)

type fakeJournal struct {
	mu      sync.Mutex
	entries []domain.JournalEntry
	err     error
}

func (f *fakeJournal) Append(ctx context.Context, e domain.JournalEntry) (domain.JournalEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.JournalEntry{}, f.err
	}
	f.entries = append(f.entries, e)
	return e, nil
}

func (f *fakeJournal) ListByApartment(ctx context.Context, apartmentID int64, limit int) ([]domain.JournalEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.JournalEntry
	for _, e := range f.entries {
		if e.ApartmentID == apartmentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeJournal) outcomes() []domain.SubmissionOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.SubmissionOutcome, len(f.entries))
	for i, e := range f.entries {
		out[i] = e.Outcome
	}
	return out
}

type notification struct {
	sessionID string
	kind      string
	value     string
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (f *fakeNotifier) add(n notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, n)
	return nil
}

func (f *fakeNotifier) StateChanged(ctx context.Context, sessionID, state string) error {
	return f.add(notification{sessionID, "state", state})
}

func (f *fakeNotifier) ArtifactProgress(ctx context.Context, sessionID, kind, stage string) error {
	return f.add(notification{sessionID, "progress", kind + ":" + stage})
}

func (f *fakeNotifier) ArtifactReady(ctx context.Context, sessionID, kind, url, filename string) error {
	return f.add(notification{sessionID, "ready", kind + ":" + filename})
}

func (f *fakeNotifier) ArtifactFailed(ctx context.Context, sessionID, kind, errMsg string) error {
	return f.add(notification{sessionID, "failed", kind})
}

func (f *fakeNotifier) states() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		if e.kind == "state" {
			out = append(out, e.value)
		}
	}
	return out
}

func (f *fakeNotifier) of(kind string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		if e.kind == kind {
			out = append(out, e.value)
		}
	}
	return out
}

// blockingBackend holds CreatePayment until release is closed.
type blockingBackend struct {
	*backend.Memory
	entered chan struct{}
	release chan struct{}
}

func (b *blockingBackend) CreatePayment(ctx context.Context, s backend.Session, p domain.PaymentPlan) (domain.PaymentPlan, error) {
	close(b.entered)
	<-b.release
	return b.Memory.CreatePayment(ctx, s, p)
}

var testNow = time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

func testApartment() domain.Apartment {
	return domain.Apartment{
		ID:         12,
		ObjectID:   3,
		ObjectName: "Ahlan Residence",
		RoomNumber: "45",
		Floor:      5,
		Rooms:      3,
		Area:       decimal.RequireFromString("72.5"),
		Price:      decimal.RequireFromString("50000000"),
		Status:     domain.ApartmentAvailable,
	}
}

type harness struct {
	svc      *ReservationService
	backend  *backend.Memory
	store    *MemoryStore
	journal  *fakeJournal
	notifier *fakeNotifier
}

func newHarness(t *testing.T, b backend.Backend, mem *backend.Memory) *harness {
	t.Helper()
	h := &harness{
		backend:  mem,
		store:    NewMemoryStore(time.Hour),
		journal:  &fakeJournal{},
		notifier: &fakeNotifier{},
	}
	h.svc = NewReservationService(b, h.store, ReservationConfig{
		DueDay:   5,
		Executor: contract.Executor{Name: "AHLAN INVEST MCHJ", City: "Toshkent"},
	}, h.journal, h.notifier, nil, nil)

	seq := 0
	h.svc.now = func() time.Time { return testNow }
	h.svc.newID = func() string {
		seq++
		return fmt.Sprintf("sess-%d", seq)
	}
	return h
}

func setup(t *testing.T) *harness {
	t.Helper()
	mem := backend.NewMemory()
	mem.AddApartment(testApartment())
	mem.AddClient(domain.Client{ID: 7, FullName: "Karimov Anvar", Phone: "+998901112233", Passport: "AA1234567"})
	return newHarness(t, mem, mem)
}

func newClientForm() Form {
	return Form{
		Client: SelectNew(domain.NewClient{
			FullName: "Toshmatov Sardor",
			Phone:    "+998935556677",
			Passport: "AB7654321",
			Address:  "Toshkent sh., Chilonzor 9",
		}),
		PaymentType:    domain.PaymentInstallment,
		InitialPayment: decimal.RequireFromString("15000000"),
		TermMonths:     6,
		InterestRate:   ptr(decimal.Zero),
		Notes:          "ofisda to'landi",
	}
}

func ptr[T any](v T) *T {
	return &v
}
