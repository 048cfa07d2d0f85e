package session

import "context"

// Flash kinds, matching the toast styles.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashWarning = "warning"
	FlashInfo    = "info"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// AddFlash queues a message.
func (s *Session) AddFlash(ctx context.Context, kind, message string) error {
	var queued []Flash
	if _, err := s.GetJSON(ctx, KeyFlash, &queued); err != nil {
		return err
	}
	queued = append(queued, Flash{Kind: kind, Message: message})
	return s.SetJSON(ctx, KeyFlash, queued)
}

// Flashes returns and clears the queued messages.
func (s *Session) Flashes(ctx context.Context) ([]Flash, error) {
	var queued []Flash
	if _, err := s.Take(ctx, KeyFlash, &queued); err != nil {
		return nil, err
	}
	return queued, nil
}
