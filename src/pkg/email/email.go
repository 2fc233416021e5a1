/*
Package email delivers run summaries through one of three providers:
Amazon SES (v2 API), Mailgun or SendGrid. Credentials come from the
environment, the message itself from the caller.
*/
package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

type Provider string

const (
	ProviderSES      Provider = "ses"
	ProviderMailgun  Provider = "mailgun"
	ProviderSendgrid Provider = "sendgrid"
)

// Env vars read by the providers.
const (
	EnvMailgunDomain  = "MAILGUN_DOMAIN"
	EnvMailgunAPIKey  = "MAILGUN_API_KEY"
	EnvSendgridAPIKey = "SENDGRID_API_KEY"
)

// EnvVars lists the environment variables provider needs.
func EnvVars(provider Provider) []string {
	switch provider {
	case ProviderSES:
		return []string{"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_REGION"}
	case ProviderMailgun:
		return []string{EnvMailgunDomain, EnvMailgunAPIKey}
	case ProviderSendgrid:
		return []string{EnvSendgridAPIKey}
	}
	return nil
}

// ValidProvider reports whether provider is one SendMessage can use.
func ValidProvider(provider Provider) bool {
	return EnvVars(provider) != nil
}

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Message struct {
	Sender      string
	Recipients  []string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

type Config struct {
	Enabled       bool     `json:"enabled"`
	Provider      Provider `json:"provider"`
	Sender        string   `json:"sender"`
	Recipients    []string `json:"recipients"`
	SubjectPrefix string   `json:"subject_prefix"`
}

func DefaultValueConfig() Config {
	return Config{
		Provider:      ProviderMailgun,
		SubjectPrefix: "[synth-ocr]",
	}
}

const sendTimeout = 30 * time.Second

/*
SendMessage sends one message through provider.

When sendEmails points to false the message is only logged, which is how
dry runs preview what would have been sent.
*/
func SendMessage(provider Provider, sendEmails *bool, sender string, recipients []string, subject, text, html string, attachments []Attachment) (e *xerr.Error) {
	msg := Message{
		Sender:      sender,
		Recipients:  recipients,
		Subject:     subject,
		Text:        text,
		HTML:        html,
		Attachments: attachments,
	}
	e = validate(msg)
	if e != nil {
		return e
	}

	if sendEmails == nil || !*sendEmails {
		tl.Log(
			tl.Notice, palette.Yellow, "Not sending '%s' to '%s' (sending disabled)",
			subject, strings.Join(recipients, ", "),
		)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	tl.Log(tl.Info, palette.Cyan, "Sending '%s' to '%s' via %s", subject, strings.Join(recipients, ", "), provider)

	var id string
	switch provider {
	case ProviderSES:
		id, e = sendSES(ctx, msg)
	case ProviderMailgun:
		id, e = sendMailgun(ctx, msg)
	case ProviderSendgrid:
		id, e = sendSendgrid(ctx, msg)
	default:
		e = xerr.NewError(fmt.Errorf("unknown provider"), "send email", string(provider))
	}
	if e != nil {
		return e
	}

	tl.Log(tl.Notice1, palette.GreenBold, "Email sent via %s, message id '%s'", provider, id)
	return nil
}

func validate(msg Message) *xerr.Error {
	if strings.TrimSpace(msg.Sender) == "" {
		return xerr.NewError(fmt.Errorf("empty sender"), "validate email", msg.Subject)
	}
	if len(msg.Recipients) == 0 {
		return xerr.NewError(fmt.Errorf("no recipients"), "validate email", msg.Subject)
	}
	for _, r := range msg.Recipients {
		if !strings.Contains(r, "@") {
			return xerr.NewError(fmt.Errorf("invalid recipient"), "validate email", r)
		}
	}
	if msg.Text == "" && msg.HTML == "" {
		return xerr.NewError(fmt.Errorf("empty body"), "validate email", msg.Subject)
	}
	return nil
}
