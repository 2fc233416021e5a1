package email

import (
	"testing"

	"github.com/sendgrid/rest"
)

func TestSendMessageDryRun(t *testing.T) {
	send := false
	e := SendMessage(ProviderMailgun, &send, "bot@example.com", []string{"ops@example.com"}, "subject", "text", "", nil)
	if e != nil {
		t.Fatalf("dry run should not fail: %v", e)
	}
	if e := SendMessage(ProviderMailgun, nil, "bot@example.com", []string{"ops@example.com"}, "s", "t", "", nil); e != nil {
		t.Fatalf("nil switch should behave like a dry run: %v", e)
	}
}

func TestSendMessageValidates(t *testing.T) {
	send := false
	cases := []struct {
		name       string
		sender     string
		recipients []string
		text, html string
	}{
		{"no sender", "", []string{"a@example.com"}, "t", ""},
		{"no recipients", "bot@example.com", nil, "t", ""},
		{"bad recipient", "bot@example.com", []string{"nobody"}, "t", ""},
		{"empty body", "bot@example.com", []string{"a@example.com"}, "", ""},
	}
	for _, c := range cases {
		if e := SendMessage(ProviderSES, &send, c.sender, c.recipients, "s", c.text, c.html, nil); e == nil {
			t.Errorf("%s: expected a validation error", c.name)
		}
	}
}

func TestBuildSendgridMessage(t *testing.T) {
	m := buildSendgridMessage(Message{
		Sender:      "bot@example.com",
		Recipients:  []string{"a@example.com", "b@example.com"},
		Subject:     "Run summary",
		Text:        "plain",
		HTML:        "<b>html</b>",
		Attachments: []Attachment{{Filename: "summary.json", ContentType: "application/json", Data: []byte("{}")}},
	})
	if m.From.Address != "bot@example.com" || m.Subject != "Run summary" {
		t.Fatalf("unexpected header %+v", m.From)
	}
	if len(m.Personalizations) != 1 || len(m.Personalizations[0].To) != 2 {
		t.Fatalf("recipients not set")
	}
	if len(m.Content) != 2 || m.Content[0].Type != "text/plain" {
		t.Fatalf("unexpected content %+v", m.Content)
	}
	if len(m.Attachments) != 1 || m.Attachments[0].Content != "e30=" {
		t.Fatalf("unexpected attachment %+v", m.Attachments)
	}
}

func TestCheckSendgridResponse(t *testing.T) {
	id, e := checkSendgridResponse(&rest.Response{StatusCode: 202, Headers: map[string][]string{"X-Message-Id": {"abc"}}})
	if e != nil || id != "abc" {
		t.Fatalf("got %q, %v", id, e)
	}
	if _, e := checkSendgridResponse(&rest.Response{StatusCode: 401, Body: "denied"}); e == nil {
		t.Fatal("401 should be an error")
	}
}

func TestEnvVars(t *testing.T) {
	if len(EnvVars(ProviderSES)) != 3 || len(EnvVars(ProviderMailgun)) != 2 || EnvVars("pigeon") != nil {
		t.Fatal("unexpected env var lists")
	}
}
