// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package contact runs the storefront contact form.

Messages are validated and logged; no message leaves the server. A valid
submission clears the fields and shows a confirmation until the visitor asks
for a fresh form.
*/
package contact

import (
	"context"
	"log/slog"
	"strings"

	"github.com/taibuivan/mknursery/internal/platform/ctxutil"
	"github.com/taibuivan/mknursery/internal/platform/validate"
)

const (
	MsgSentTitle = "Message Sent!"
	MsgSentBody  = "Thank you for reaching out. We'll get back to you as soon as possible."
)

const (
	FieldName    = "name"
	FieldEmail   = "email"
	FieldPhone   = "phone"
	FieldMessage = "message"
)

// Fields lists the form inputs in display order.
var Fields = []string{FieldName, FieldEmail, FieldPhone, FieldMessage}

// Message is what a visitor typed.
type Message struct {
	Name    string
	Email   string
	Phone   string
	Message string
}

// FromValues reads a message from form values.
func FromValues(values map[string]string) Message {
	return Message{
		Name:    strings.TrimSpace(values[FieldName]),
		Email:   strings.TrimSpace(values[FieldEmail]),
		Phone:   strings.TrimSpace(values[FieldPhone]),
		Message: strings.TrimSpace(values[FieldMessage]),
	}
}

// Values renders the message back into form text.
func (message Message) Values() map[string]string {
	return map[string]string{
		FieldName:    message.Name,
		FieldEmail:   message.Email,
		FieldPhone:   message.Phone,
		FieldMessage: message.Message,
	}
}

// State is one rendering of the contact form.
type State struct {
	Values      map[string]string
	FieldErrors map[string]string
	Submitted   bool
}

// Empty is a fresh form.
func Empty() State {
	return State{Values: Message{}.Values()}
}

// Validate checks the required fields and the email format.
func (message Message) Validate() error {
	v := &validate.Validator{}
	v.Required(FieldName, message.Name).
		Required(FieldEmail, message.Email).
		Required(FieldMessage, message.Message)
	if message.Email != "" {
		v.Email(FieldEmail, message.Email)
	}
	return v.Err()
}

// Submit validates message. An invalid message keeps the typed values; a valid
// one is logged and the returned state is cleared and marked submitted.
func Submit(ctx context.Context, message Message) State {
	if err := message.Validate(); err != nil {
		return State{Values: message.Values(), FieldErrors: validate.FieldErrors(err)}
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "contact_message_received",
		slog.String("email", message.Email),
		slog.Int("length", len(message.Message)),
	)

	state := Empty()
	state.Submitted = true
	return state
}
