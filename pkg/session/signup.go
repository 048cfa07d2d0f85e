package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// PendingSignupTTL bounds how long a sign-up payload (which includes the
// password) stays in the store.
const PendingSignupTTL = 15 * time.Minute

// PendingSignup is the sign-up form held between sending the OTP and
// verifying it. Its presence means "code already sent".
type PendingSignup struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

// SetPendingSignup stores the sign-up payload.
func (s *Session) SetPendingSignup(ctx context.Context, p PendingSignup) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("session encode %s: %w", KeyPendingSignup, err)
	}
	if err := s.m.store.Set(ctx, s.key(KeyPendingSignup), string(data), PendingSignupTTL); err != nil {
		return fmt.Errorf("session set %s: %w", KeyPendingSignup, err)
	}
	return nil
}

// PendingSignup returns the stored sign-up payload, if any.
func (s *Session) PendingSignup(ctx context.Context) (*PendingSignup, error) {
	var p PendingSignup
	ok, err := s.GetJSON(ctx, KeyPendingSignup, &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

// ClearPendingSignup forgets the sign-up payload.
func (s *Session) ClearPendingSignup(ctx context.Context) error {
	return s.Delete(ctx, KeyPendingSignup)
}

// LastOrder is what the checkout success page shows.
type LastOrder struct {
	OrderID     string  `json:"order_id"`
	OrderNumber string  `json:"order_number"`
	Total       float64 `json:"total"`
}

// SetLastOrder remembers the order just placed.
func (s *Session) SetLastOrder(ctx context.Context, o LastOrder) error {
	return s.SetJSON(ctx, KeyLastOrder, o)
}

// TakeLastOrder returns the remembered order and forgets it.
func (s *Session) TakeLastOrder(ctx context.Context) (*LastOrder, error) {
	var o LastOrder
	ok, err := s.Take(ctx, KeyLastOrder, &o)
	if err != nil || !ok {
		return nil, err
	}
	return &o, nil
}
