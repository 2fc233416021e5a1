package email

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/tuumbleweed/xerr"
)

func sendMailgun(ctx context.Context, msg Message) (string, *xerr.Error) {
	domain := os.Getenv(EnvMailgunDomain)
	apiKey := os.Getenv(EnvMailgunAPIKey)
	if domain == "" || apiKey == "" {
		return "", xerr.NewError(fmt.Errorf("%s or %s not set", EnvMailgunDomain, EnvMailgunAPIKey), "configure mailgun", "env")
	}

	mg := mailgun.NewMailgun(domain, apiKey)
	m := mg.NewMessage(msg.Sender, msg.Subject, msg.Text, msg.Recipients...)
	if msg.HTML != "" {
		m.SetHtml(msg.HTML)
	}
	for _, a := range msg.Attachments {
		m.AddBufferAttachment(a.Filename, a.Data)
	}

	_, id, err := mg.Send(ctx, m)
	if err != nil {
		return "", xerr.NewError(err, "send email via mailgun", strings.Join(msg.Recipients, ","))
	}
	return id, nil
}
