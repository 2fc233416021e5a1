package report

import (
	"encoding/json"
	"strings"

	"github.com/tuumbleweed/xerr"

	"synth-ocr/src/pkg/email"
)

// Subject is the notification subject for r.
func Subject(cfg email.Config, r Report) string {
	return strings.TrimSpace(cfg.SubjectPrefix + " " + r.Title)
}

/*
Send emails r through the configured provider with the report JSON
attached. With notifications disabled the message is only logged.
*/
func Send(cfg email.Config, r Report) *xerr.Error {
	htmlText, e := RenderHTML(r)
	if e != nil {
		return e
	}

	jsonBytes, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return xerr.NewError(err, "marshal report attachment", r.Title)
	}
	attachments := []email.Attachment{{
		Filename:    "report.json",
		ContentType: "application/json",
		Data:        jsonBytes,
	}}

	send := cfg.Enabled
	return email.SendMessage(cfg.Provider, &send, cfg.Sender, cfg.Recipients, Subject(cfg, r), RenderText(r), htmlText, attachments)
}
