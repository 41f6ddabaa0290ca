// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
	"log/slog"
	"sync"
)

// LogMailer writes reset links to the log instead of sending mail.
// It is the only mailer: delivery is left to whoever reads the operator log.
type LogMailer struct {
	logger *slog.Logger

	mu   sync.Mutex
	last map[string]string
}

// NewLogMailer creates a mailer that logs through logger.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger, last: make(map[string]string)}
}

func (mailer *LogMailer) SendPasswordReset(context context.Context, email, link string) error {
	mailer.mu.Lock()
	mailer.last[email] = link
	mailer.mu.Unlock()

	mailer.logger.InfoContext(context, "password_reset_link_issued",
		slog.String("email", email),
		slog.String("link", link),
	)
	return nil
}

// LastLink returns the most recent link sent to email.
func (mailer *LogMailer) LastLink(email string) (string, bool) {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	link, ok := mailer.last[email]
	return link, ok
}
