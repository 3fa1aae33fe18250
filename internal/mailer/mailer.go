package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidConfig  = errors.New("mailer config is invalid")
	ErrInvalidMessage = errors.New("mail message is invalid")
)

var validate = validator.New()

// Anything able to deliver a message: Postmark in production, directory in development
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Message struct {
	To       string `validate:"required,email"`
	Subject  string `validate:"required"`
	HTMLBody string `validate:"required"`

	// Optional, used to group messages in provider stats
	Tag string
}

func (m Message) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return nil
}

// Sender that calls fn
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}
