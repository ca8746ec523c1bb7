package feed

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	gmail "google.golang.org/api/gmail/v1"
)

func TestSlackTime(t *testing.T) {
	got := slackTime("1724490000.000100")
	if !got.Equal(time.Unix(1724490000, 0)) {
		t.Errorf("slackTime = %v", got)
	}
	if !slackTime("garbage").IsZero() {
		t.Error("unparseable ts should yield zero time")
	}
}

func TestNormalizeGmail(t *testing.T) {
	body := base64.RawURLEncoding.EncodeToString([]byte("Justin, please review the draft"))
	m := &gmail.Message{
		Id:           "m1",
		InternalDate: 1724490000000,
		Payload: &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmail.MessagePartHeader{
				{Name: "Subject", Value: "Draft review"},
				{Name: "From", Value: "Drew Carlson <drew@pactum.com>"},
			},
			Parts: []*gmail.MessagePart{
				{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: "aWdub3JlZA"}},
				{MimeType: "text/plain; charset=utf-8", Body: &gmail.MessagePartBody{Data: body}},
			},
		},
	}

	msg := normalizeGmail(m)
	if msg.ID != "m1" || msg.Subject != "Draft review" {
		t.Errorf("message = %+v", msg)
	}
	if msg.Sender != "Drew Carlson <drew@pactum.com>" {
		t.Errorf("sender = %q", msg.Sender)
	}
	if !strings.Contains(msg.Body, "Justin, please review the draft") {
		t.Errorf("body = %q", msg.Body)
	}
	if strings.Contains(msg.Body, "ignored") {
		t.Error("html part leaked into body")
	}
	if !msg.Timestamp.Equal(time.UnixMilli(1724490000000)) {
		t.Errorf("timestamp = %v", msg.Timestamp)
	}
}
