package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ahlan-reserve/internal/backend"
	"ahlan-reserve/internal/contract"
	"ahlan-reserve/internal/domain"
	"ahlan-reserve/internal/installment"
	"ahlan-reserve/internal/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Staff-facing messages.
const (
	msgLoadFailed           = "Ma'lumotlarni yuklashda xatolik yuz berdi"
	msgClientCreationFailed = "Mijozni qo'shishda xatolik yuz berdi"
	msgPaymentFailed        = "To'lovni qo'shishda xatolik yuz berdi"
	msgAmountOverflow       = "Oylik to'lov summasi 12 xonadan oshmasligi kerak"
	msgApartmentUnavailable = "Xonadon allaqachon band qilingan yoki sotilgan"
	msgClientRequired       = "Mijozni tanlang yoki yangi mijoz ma'lumotlarini kiriting"
	msgUnknownClient        = "Tanlangan mijoz ro'yxatda topilmadi"
	msgInvalidPaymentType   = "To'lov turi noto'g'ri"
	msgInvalidTerm          = "Muddat (oy) musbat son bo'lishi kerak"
	msgInvalidInitial       = "Boshlang'ich to'lov 0 va xonadon narxi oralig'ida bo'lishi kerak"
	msgInvalidRate          = "Foiz stavkasi manfiy bo'lishi mumkin emas"
)

var ErrJournalDisabled = errors.New("reservation journal is not configured")

type Journal interface {
	Append(ctx context.Context, e domain.JournalEntry) (domain.JournalEntry, error)
	ListByApartment(ctx context.Context, apartmentID int64, limit int) ([]domain.JournalEntry, error)
}

type Notifier interface {
	StateChanged(ctx context.Context, sessionID, state string) error
	ArtifactProgress(ctx context.Context, sessionID, kind, stage string) error
	ArtifactReady(ctx context.Context, sessionID, kind, url, filename string) error
	ArtifactFailed(ctx context.Context, sessionID, kind, errMsg string) error
}

type ReservationConfig struct {
	// DueDay is the day of month installments fall due.
	DueDay       int
	MortgageRate decimal.Decimal
	Executor     contract.Executor
	// SubmitStaleAfter bounds how long a stored Submitting state is honoured.
	// After it a retry is allowed. Zero means defaultSubmitStaleAfter.
	SubmitStaleAfter time.Duration
}

const defaultSubmitStaleAfter = 2 * time.Minute

// Quote is a side-effect free preview of a form.
type Quote struct {
	Terms    installment.Terms         `json:"terms"`
	Schedule []installment.Installment `json:"schedule"`
}

// ReservationService drives a reservation session from loading the apartment
// to the composed contract. Journal and notifier may be nil.
type ReservationService struct {
	backend  backend.Backend
	store    SessionStore
	calc     installment.Calculator
	journal  Journal
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger

	dueDay      int
	executor    contract.Executor
	staleSubmit time.Duration

	now   func() time.Time
	newID func() string

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewReservationService(
	b backend.Backend,
	store SessionStore,
	cfg ReservationConfig,
	journal Journal,
	notifier Notifier,
	m *metrics.Metrics,
	logger *zap.Logger,
) *ReservationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	dueDay := cfg.DueDay
	if dueDay < 1 || dueDay > 31 {
		dueDay = 1
	}
	staleSubmit := cfg.SubmitStaleAfter
	if staleSubmit <= 0 {
		staleSubmit = defaultSubmitStaleAfter
	}
	return &ReservationService{
		backend:     b,
		store:       store,
		calc:        installment.NewCalculator(cfg.MortgageRate),
		journal:     journal,
		notifier:    notifier,
		metrics:     m,
		logger:      logger.Named("reservation"),
		dueDay:      dueDay,
		executor:    cfg.Executor,
		staleSubmit: staleSubmit,
		now:         time.Now,
		newID:       uuid.NewString,
		locks:       make(map[string]*sync.Mutex),
	}
}

func (s *ReservationService) lock(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	mu, ok := s.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[id] = mu
	}
	return mu
}

func (s *ReservationService) forget(id string) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	delete(s.locks, id)
}

// PruneLocks drops the locks of sessions the store no longer has, such as
// those expired by TTL. Locks currently held are left alone. It returns the
// number of locks dropped.
func (s *ReservationService) PruneLocks(ctx context.Context) int {
	s.locksMu.Lock()
	ids := make([]string, 0, len(s.locks))
	for id := range s.locks {
		ids = append(ids, id)
	}
	s.locksMu.Unlock()

	pruned := 0
	for _, id := range ids {
		s.locksMu.Lock()
		mu, ok := s.locks[id]
		s.locksMu.Unlock()
		if !ok || !mu.TryLock() {
			continue
		}
		_, err := s.store.Get(ctx, id)
		if errors.Is(err, domain.ErrSessionNotFound) {
			s.locksMu.Lock()
			if s.locks[id] == mu {
				delete(s.locks, id)
				pruned++
			}
			s.locksMu.Unlock()
		}
		mu.Unlock()
	}
	return pruned
}

// Open starts a session and loads the apartment and client list concurrently.
// Any load failure leaves the session in LoadFailed.
func (s *ReservationService) Open(ctx context.Context, sess backend.Session, apartmentID int64) (*Session, error) {
	now := s.now()
	rs := &Session{
		ID:          s.newID(),
		ApartmentID: apartmentID,
		State:       StateLoading,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Save(ctx, rs); err != nil {
		return nil, err
	}
	s.metrics.SessionEvent("opened")

	log := s.logger.With(zap.String("session_id", rs.ID), zap.Int64("apartment_id", apartmentID))

	var (
		apartment domain.Apartment
		clients   []domain.Client
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := s.backend.GetApartment(gctx, sess, apartmentID)
		if err != nil {
			return fmt.Errorf("load apartment %d: %w", apartmentID, err)
		}
		apartment = a
		return nil
	})
	g.Go(func() error {
		list, err := s.backend.ListClients(gctx, sess)
		if err != nil {
			return fmt.Errorf("load clients: %w", err)
		}
		clients = list
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Warn("reservation data load failed", zap.Error(err))
		rs.State = StateLoadFailed
		rs.LastError = msgLoadFailed
		s.persist(ctx, rs)
		s.metrics.SessionEvent("load_failed")
		return rs, domain.NewUserError(domain.ErrDataLoad, msgLoadFailed, err)
	}

	rs.Apartment = apartment
	rs.Clients = clients
	rs.State = StateReady
	if err := s.save(ctx, rs); err != nil {
		return nil, err
	}
	log.Info("reservation session opened", zap.Int("clients", len(clients)))
	return rs, nil
}

func (s *ReservationService) Get(ctx context.Context, id string) (*Session, error) {
	return s.store.Get(ctx, id)
}

// Preview computes the terms the form would be submitted with.
func (s *ReservationService) Preview(ctx context.Context, id string, form Form) (Quote, error) {
	rs, err := s.store.Get(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	if rs.State == StateLoading || rs.State == StateLoadFailed {
		return Quote{}, fmt.Errorf("%w: preview in %s", domain.ErrInvalidState, rs.State)
	}
	terms, err := s.plan(rs, form)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Terms:    terms,
		Schedule: installment.Schedule(terms, s.now(), s.dueDay),
	}, nil
}

func (s *ReservationService) plan(rs *Session, form Form) (installment.Terms, error) {
	if form.PaymentType != domain.PaymentCash && !form.PaymentType.Financed() {
		return installment.Terms{}, domain.NewUserError(domain.ErrInvalidPaymentType, msgInvalidPaymentType, nil)
	}
	terms, err := s.calc.Plan(rs.Apartment.Price, form.planInput())
	if err != nil {
		return installment.Terms{}, domain.NewUserError(err, planMessage(err), nil)
	}
	return terms, nil
}

func planMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrAmountOverflow):
		return msgAmountOverflow
	case errors.Is(err, domain.ErrInvalidTerm):
		return msgInvalidTerm
	case errors.Is(err, domain.ErrInvalidInitialPayment):
		return msgInvalidInitial
	case errors.Is(err, domain.ErrInvalidInterestRate):
		return msgInvalidRate
	default:
		return err.Error()
	}
}

// Submit runs one reservation attempt: compute terms, resolve the client,
// create the payment and compose the contract. Steps run strictly in order and
// a failure returns the session to Ready with the form kept. A second Submit on
// the same session while one is running fails with domain.ErrSubmitInProgress.
func (s *ReservationService) Submit(ctx context.Context, sess backend.Session, id string, form Form) (*Session, error) {
	mu := s.lock(id)
	if !mu.TryLock() {
		return nil, domain.ErrSubmitInProgress
	}
	defer mu.Unlock()

	rs, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	log := s.logger.With(zap.String("session_id", rs.ID), zap.Int64("apartment_id", rs.ApartmentID))
	switch rs.State {
	case StateReady:
	case StateSubmitting:
		// A stored Submitting outliving staleSubmit was left by a process that died mid-submit.
		if s.now().Sub(rs.SubmitStartedAt) < s.staleSubmit {
			return rs, domain.ErrSubmitInProgress
		}
		log.Warn("recovering stale submission", zap.Time("submit_started_at", rs.SubmitStartedAt))
	default:
		return rs, fmt.Errorf("%w: submit in %s", domain.ErrInvalidState, rs.State)
	}

	f := form
	rs.Form = &f

	attempt := domain.JournalEntry{
		SessionID:   rs.ID,
		ApartmentID: rs.ApartmentID,
		PaymentType: form.PaymentType,
		TotalAmount: rs.Apartment.Price,
	}

	if !rs.Apartment.Reservable() {
		return s.fail(ctx, rs, attempt, domain.OutcomeInvalid,
			domain.NewUserError(domain.ErrApartmentUnavailable, msgApartmentUnavailable, nil))
	}
	if err := s.checkSelection(rs, form.Client); err != nil {
		return s.fail(ctx, rs, attempt, domain.OutcomeInvalid, err)
	}

	// Terms are computed before any backend write so an overflow never leaves a stray client.
	terms, err := s.plan(rs, form)
	if err != nil {
		outcome := domain.OutcomeInvalid
		if errors.Is(err, domain.ErrAmountOverflow) {
			outcome = domain.OutcomeAmountOverflow
		}
		return s.fail(ctx, rs, attempt, outcome, err)
	}
	attempt.MonthlyPayment = terms.MonthlyPayment

	rs.State = StateSubmitting
	rs.SubmitStartedAt = s.now()
	rs.LastError = ""
	if err := s.save(ctx, rs); err != nil {
		return nil, err
	}

	client, created, err := s.resolveClient(ctx, sess, rs, form)
	if err != nil {
		log.Warn("client creation failed", zap.Error(err))
		return s.fail(ctx, rs, attempt, domain.OutcomeClientCreationFailed,
			domain.NewUserError(domain.ErrClientCreation, backendMessage(err, msgClientCreationFailed), err))
	}
	attempt.ClientID = &client.ID
	attempt.CreatedClient = created
	if created {
		rs.Clients = append(rs.Clients, client)
		rs.CreatedClientID = client.ID
	}
	if _, isNew := form.Client.New(); isNew {
		// Resubmitting after a later failure must reuse this client.
		rs.Form.Client = SelectExisting(client.ID)
	}

	plan := domain.PaymentPlan{
		ApartmentID:    rs.ApartmentID,
		ClientID:       client.ID,
		Type:           terms.Type,
		TotalAmount:    terms.TotalAmount,
		InitialPayment: terms.InitialPayment,
		InterestRate:   terms.InterestRate,
		DurationMonths: terms.DurationMonths,
		MonthlyPayment: terms.MonthlyPayment,
		DueDay:         s.dueDay,
		PaidAmount:     decimal.Zero,
		Status:         domain.PaymentPending,
		Notes:          form.Notes,
	}
	committed, err := s.backend.CreatePayment(ctx, sess, plan)
	if err != nil {
		log.Warn("payment submission failed", zap.Error(err), zap.Int64("client_id", client.ID))
		return s.fail(ctx, rs, attempt, domain.OutcomePaymentFailed,
			domain.NewUserError(domain.ErrPaymentSubmission, backendMessage(err, msgPaymentFailed), err))
	}
	attempt.PaymentID = &committed.ID

	issued := s.now()
	doc := contract.Compose(contract.Input{
		PaymentID: committed.ID,
		Apartment: rs.Apartment,
		Client:    client,
		Terms:     terms,
		DueDay:    s.dueDay,
		IssueDate: issued,
		Executor:  s.executor,
	})

	rs.Contract = &Contract{
		PaymentID: committed.ID,
		Client:    client,
		Terms:     terms,
		DueDay:    s.dueDay,
		IssuedAt:  issued,
		Document:  doc,
	}
	rs.Apartment.Status = domain.ApartmentReserved
	rs.State = StateContractReady
	rs.LastError = ""

	bg := context.WithoutCancel(ctx)
	if err := s.save(bg, rs); err != nil {
		log.Error("payment committed but session could not be stored", zap.Int64("payment_id", committed.ID), zap.Error(err))
		return nil, err
	}

	attempt.Outcome = domain.OutcomeCommitted
	s.record(bg, attempt)
	s.metrics.Submission(string(terms.Type), string(domain.OutcomeCommitted))
	log.Info("reservation committed",
		zap.Int64("payment_id", committed.ID),
		zap.Int64("client_id", client.ID),
		zap.Bool("created_client", created),
		zap.String("monthly_payment", terms.MonthlyPayment.StringFixed(2)),
	)
	return rs, nil
}

func (s *ReservationService) checkSelection(rs *Session, sel ClientSelection) error {
	if id, ok := sel.Existing(); ok {
		if _, found := rs.findClient(id); !found {
			return domain.NewUserError(domain.ErrUnknownClient, msgUnknownClient, nil)
		}
		return nil
	}
	if nc, ok := sel.New(); ok && nc.FullName != "" {
		return nil
	}
	return domain.NewUserError(domain.ErrClientRequired, msgClientRequired, nil)
}

// resolveClient returns the client snapshot for the contract and whether it was created now.
// Once this session has created a client, a new-client form always reuses it.
func (s *ReservationService) resolveClient(ctx context.Context, sess backend.Session, rs *Session, form Form) (domain.Client, bool, error) {
	if id, ok := form.Client.Existing(); ok {
		c, _ := rs.findClient(id)
		if form.Guarantor != nil {
			c.Guarantor = form.Guarantor
		}
		return c, false, nil
	}

	nc, _ := form.Client.New()
	if form.Guarantor != nil {
		nc.Guarantor = form.Guarantor
	}
	if rs.CreatedClientID != 0 {
		if c, found := rs.findClient(rs.CreatedClientID); found {
			if form.Guarantor != nil {
				c.Guarantor = form.Guarantor
			}
			return c, false, nil
		}
	}

	c, err := s.backend.CreateClient(ctx, sess, nc)
	if err != nil {
		return domain.Client{}, false, err
	}
	return c, true, nil
}

func backendMessage(err error, fallback string) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		if msg := apiErr.FirstFieldMessage(); msg != "" {
			return msg
		}
	}
	return fallback
}

// fail returns the session to Ready with the form kept and the user message set.
func (s *ReservationService) fail(ctx context.Context, rs *Session, attempt domain.JournalEntry, outcome domain.SubmissionOutcome, err error) (*Session, error) {
	bg := context.WithoutCancel(ctx)
	rs.State = StateReady
	rs.LastError = domain.UserMessage(err, err.Error())
	s.persist(bg, rs)

	attempt.Outcome = outcome
	attempt.Error = rs.LastError
	s.record(bg, attempt)
	s.metrics.Submission(string(attempt.PaymentType), string(outcome))
	return rs, err
}

// Dismiss discards the contract and returns the session to Ready.
func (s *ReservationService) Dismiss(ctx context.Context, id string) (*Session, error) {
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	rs, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rs.State != StateContractReady {
		return rs, fmt.Errorf("%w: dismiss in %s", domain.ErrInvalidState, rs.State)
	}
	rs.Contract = nil
	rs.Form = nil
	rs.LastError = ""
	rs.State = StateReady
	if err := s.save(ctx, rs); err != nil {
		return nil, err
	}
	s.metrics.SessionEvent("dismissed")
	return rs, nil
}

// Cancel drops the session and everything derived from it.
func (s *ReservationService) Cancel(ctx context.Context, id string) error {
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	if _, err := s.store.Get(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	s.forget(id)
	s.notify(ctx, id, StateCancelled)
	s.metrics.SessionEvent("cancelled")
	return nil
}

// Contract returns the composed contract of a ContractReady session.
func (s *ReservationService) Contract(ctx context.Context, id string) (*Contract, error) {
	rs, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rs.State != StateContractReady || rs.Contract == nil {
		return nil, domain.ErrNoContract
	}
	return rs.Contract, nil
}

// AttachArtifact records the download URL of a rendition of the contract for paymentID.
func (s *ReservationService) AttachArtifact(ctx context.Context, id string, paymentID int64, kind, url string) error {
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	rs, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if rs.Contract == nil || rs.Contract.PaymentID != paymentID {
		return domain.ErrNoContract
	}
	if rs.Contract.Artifacts == nil {
		rs.Contract.Artifacts = make(map[string]string)
	}
	rs.Contract.Artifacts[kind] = url
	rs.UpdatedAt = s.now()
	return s.store.Save(ctx, rs)
}

func (s *ReservationService) JournalFor(ctx context.Context, apartmentID int64, limit int) ([]domain.JournalEntry, error) {
	if s.journal == nil {
		return nil, ErrJournalDisabled
	}
	return s.journal.ListByApartment(ctx, apartmentID, limit)
}

// save stores rs and broadcasts its state.
func (s *ReservationService) save(ctx context.Context, rs *Session) error {
	rs.UpdatedAt = s.now()
	if err := s.store.Save(ctx, rs); err != nil {
		return fmt.Errorf("save session %s: %w", rs.ID, err)
	}
	s.notify(ctx, rs.ID, rs.State)
	return nil
}

// persist is save for paths that already carry an error to return.
func (s *ReservationService) persist(ctx context.Context, rs *Session) {
	if err := s.save(ctx, rs); err != nil {
		s.logger.Error("session save failed", zap.String("session_id", rs.ID), zap.Error(err))
	}
}

func (s *ReservationService) notify(ctx context.Context, id string, state State) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.StateChanged(ctx, id, string(state)); err != nil {
		s.logger.Debug("state notification failed", zap.String("session_id", id), zap.Error(err))
	}
}

func (s *ReservationService) record(ctx context.Context, e domain.JournalEntry) {
	if s.journal == nil {
		return
	}
	if _, err := s.journal.Append(ctx, e); err != nil {
		s.logger.Warn("journal append failed", zap.String("session_id", e.SessionID), zap.Error(err))
	}
}
