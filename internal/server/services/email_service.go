package services

import (
	"context"
	"fmt"
	"os"

	"github.com/resendlabs/resend-go"
)

type EmailService struct {
	client    *resend.Client
	fromEmail string
}

func NewEmailService() (*EmailService, error) {
	apiKey := os.Getenv("RESEND_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY environment variable not set")
	}

	fromEmail := os.Getenv("FROM_EMAIL")
	if fromEmail == "" {
		fromEmail = "noreply@pocketdash.app"
	}

	client := resend.NewClient(apiKey)

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
	}, nil
}

func (s *EmailService) SendMagicLink(ctx context.Context, email, link string) error {
	// Skip email sending in test mode
	if os.Getenv("SKIP_EMAIL_SEND") == "true" {
		return nil
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{email},
		Subject: "Your PocketDash Sign-In Link",
		Html: fmt.Sprintf(`
			<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
				<h2 style="color: #333;">Sign in to PocketDash</h2>
				<p>Tap the button below on your phone to sign in:</p>
				<div style="text-align: center; margin: 30px 0;">
					<a href="%s" style="background-color: #2563eb; color: #fff; padding: 14px 28px; border-radius: 6px; text-decoration: none; font-size: 18px;">Open PocketDash</a>
				</div>
				<p style="color: #666;">Or copy this link into your phone's browser:</p>
				<p style="background-color: #f4f4f4; padding: 12px; word-break: break-all; font-size: 13px;">%s</p>
				<p style="color: #666;">This link can be used once and expires in 15 minutes.</p>
				<p style="color: #666;">If you didn't request this link, please ignore this email.</p>
				<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">
				<p style="color: #999; font-size: 12px;">PocketDash - Your dashboards, in your pocket</p>
			</div>
		`, link, link),
	}

	_, err := s.client.Emails.Send(params)
	return err
}
