package email

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/tuumbleweed/xerr"
)

func sendSendgrid(ctx context.Context, msg Message) (string, *xerr.Error) {
	apiKey := os.Getenv(EnvSendgridAPIKey)
	if apiKey == "" {
		return "", xerr.NewError(fmt.Errorf("%s not set", EnvSendgridAPIKey), "configure sendgrid", "env")
	}

	message := buildSendgridMessage(msg)
	client := sendgrid.NewSendClient(apiKey)
	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return "", xerr.NewError(err, "send email via sendgrid", msg.Subject)
	}
	return checkSendgridResponse(response)
}

func buildSendgridMessage(msg Message) *mail.SGMailV3 {
	from := mail.NewEmail("", msg.Sender)
	message := mail.NewV3Mail()
	message.SetFrom(from)
	message.Subject = msg.Subject

	personalization := mail.NewPersonalization()
	for _, r := range msg.Recipients {
		personalization.AddTos(mail.NewEmail("", r))
	}
	message.AddPersonalizations(personalization)

	if msg.Text != "" {
		message.AddContent(mail.NewContent("text/plain", msg.Text))
	}
	if msg.HTML != "" {
		message.AddContent(mail.NewContent("text/html", msg.HTML))
	}
	for _, a := range msg.Attachments {
		attachment := mail.NewAttachment()
		attachment.SetContent(base64.StdEncoding.EncodeToString(a.Data))
		attachment.SetType(a.ContentType)
		attachment.SetFilename(a.Filename)
		attachment.SetDisposition("attachment")
		message.AddAttachment(attachment)
	}
	return message
}

// checkSendgridResponse turns non-2xx answers into errors and returns the message id header.
func checkSendgridResponse(response *rest.Response) (string, *xerr.Error) {
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return "", xerr.NewError(fmt.Errorf("status %d: %s", response.StatusCode, response.Body), "send email via sendgrid", "response")
	}
	if ids := response.Headers["X-Message-Id"]; len(ids) > 0 {
		return ids[0], nil
	}
	return "", nil
}
