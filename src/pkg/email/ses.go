package email

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

// sendSES uses the simple content API, which has no attachment support.
func sendSES(ctx context.Context, msg Message) (string, *xerr.Error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return "", xerr.NewError(err, "load AWS config", "ses")
	}
	client := sesv2.NewFromConfig(cfg)

	if len(msg.Attachments) > 0 {
		tl.Log(tl.Warning, palette.Yellow, "SES simple email drops %d attachment(s)", len(msg.Attachments))
	}

	body := &types.Body{}
	if msg.Text != "" {
		body.Text = &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")}
	}
	if msg.HTML != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")}
	}

	out, err := client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.Sender),
		Destination:      &types.Destination{ToAddresses: msg.Recipients},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
	})
	if err != nil {
		return "", xerr.NewError(err, "send email via SES", strings.Join(msg.Recipients, ","))
	}
	return aws.ToString(out.MessageId), nil
}
