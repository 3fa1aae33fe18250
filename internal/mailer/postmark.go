package mailer

import (
	"context"
	"fmt"

	"github.com/mrz1836/postmark"

	"github.com/nkiryanov/comictracker/internal/apperrors"
)

type PostmarkConfig struct {
	ServerToken  string
	AccountToken string

	// From address of every message
	Sender string `validate:"required,email"`

	// Reply-To address, replies from users should reach people not robots
	Support string `validate:"required,email"`

	// Postmark API url, used by tests only
	BaseURL string
}

type PostmarkSender struct {
	client  *postmark.Client
	sender  string
	support string
}

func NewPostmarkSender(cfg PostmarkConfig) (*PostmarkSender, error) {
	if cfg.ServerToken == "" || cfg.AccountToken == "" {
		return nil, fmt.Errorf("%w: postmark server and account tokens are required", ErrInvalidConfig)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	client := postmark.NewClient(cfg.ServerToken, cfg.AccountToken)
	if cfg.BaseURL != "" {
		client.BaseURL = cfg.BaseURL
	}

	return &PostmarkSender{client: client, sender: cfg.Sender, support: cfg.Support}, nil
}

func (s *PostmarkSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:       s.sender,
		ReplyTo:    s.support,
		To:         msg.To,
		Subject:    msg.Subject,
		Tag:        msg.Tag,
		HTMLBody:   msg.HTMLBody,
		TrackOpens: false,
		TrackLinks: "None",
	})
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrSendEmail, err)
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("%w: postmark error %d - %s", apperrors.ErrSendEmail, resp.ErrorCode, resp.Message)
	}

	return nil
}
