package backend

import (
	"context"
	"fmt"
	"sync"

	"ahlan-reserve/internal/domain"
)

// Memory is an in-process Backend for tests.
// Fail* fields inject errors into the matching operation.
type Memory struct {
	mu         sync.Mutex
	apartments map[int64]domain.Apartment
	clients    []domain.Client
	payments   []domain.PaymentPlan
	nextID     int64

	FailGetApartment  error
	FailListClients   error
	FailCreateClient  error
	FailCreatePayment error

	calls map[string]int
}

func NewMemory() *Memory {
	return &Memory{
		apartments: make(map[int64]domain.Apartment),
		nextID:     1000,
		calls:      make(map[string]int),
	}
}

func (m *Memory) AddApartment(a domain.Apartment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apartments[a.ID] = a
}

func (m *Memory) AddClient(c domain.Client) domain.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == 0 {
		m.nextID++
		c.ID = m.nextID
	}
	m.clients = append(m.clients, c)
	return c
}

func (m *Memory) Clients() []domain.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Client(nil), m.clients...)
}

func (m *Memory) Payments() []domain.PaymentPlan {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.PaymentPlan(nil), m.payments...)
}

// Calls reports how many times op was invoked, failed calls included.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *Memory) GetApartment(ctx context.Context, s Session, id int64) (domain.Apartment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["get_apartment"]++

	if err := ctx.Err(); err != nil {
		return domain.Apartment{}, err
	}
	if m.FailGetApartment != nil {
		return domain.Apartment{}, m.FailGetApartment
	}
	a, ok := m.apartments[id]
	if !ok {
		return domain.Apartment{}, fmt.Errorf("get_apartment: %w", ErrNotFound)
	}
	return a, nil
}

func (m *Memory) ListClients(ctx context.Context, s Session) ([]domain.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["list_clients"]++

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.FailListClients != nil {
		return nil, m.FailListClients
	}
	return append([]domain.Client(nil), m.clients...), nil
}

func (m *Memory) CreateClient(ctx context.Context, s Session, nc domain.NewClient) (domain.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["create_client"]++

	if err := ctx.Err(); err != nil {
		return domain.Client{}, err
	}
	if m.FailCreateClient != nil {
		return domain.Client{}, m.FailCreateClient
	}
	m.nextID++
	c := nc.WithID(m.nextID)
	m.clients = append(m.clients, c)
	return c, nil
}

func (m *Memory) CreatePayment(ctx context.Context, s Session, p domain.PaymentPlan) (domain.PaymentPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["create_payment"]++

	if err := ctx.Err(); err != nil {
		return domain.PaymentPlan{}, err
	}
	if m.FailCreatePayment != nil {
		return domain.PaymentPlan{}, m.FailCreatePayment
	}
	m.nextID++
	p.ID = m.nextID
	m.payments = append(m.payments, p)
	return p, nil
}

var _ Backend = (*Memory)(nil)
var _ Backend = (*Client)(nil)
