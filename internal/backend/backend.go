// Package backend talks to the property backend REST API that owns
// apartments, users and payment records.
package backend

import (
	"context"
	"errors"

	"ahlan-reserve/internal/domain"
)

var (
	ErrUnauthorized = errors.New("backend rejected the access token")
	ErrNotFound     = errors.New("backend resource not found")
)

// Session carries the staff member's bearer token. It is passed explicitly
// with every call; a zero Session sends no Authorization header.
type Session struct {
	Token string
}

func (s Session) Authorized() bool {
	return s.Token != ""
}

// Backend is the subset of the property API the reservation workflow uses.
type Backend interface {
	GetApartment(ctx context.Context, s Session, id int64) (domain.Apartment, error)
	ListClients(ctx context.Context, s Session) ([]domain.Client, error)
	CreateClient(ctx context.Context, s Session, c domain.NewClient) (domain.Client, error)
	CreatePayment(ctx context.Context, s Session, p domain.PaymentPlan) (domain.PaymentPlan, error)
}
