package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskscan/internal/scan"
)

const (
	slackSearchURL   = "https://slack.com/api/search.messages"
	slackPageSize    = 100
	slackHTTPTimeout = 15 * time.Second
)

// SlackFeed finds workspace messages that mention the tracked user, via the
// search API with a user token.
type SlackFeed struct {
	client *fasthttp.Client
	token  string
	userID string
	logger *zap.Logger
}

func NewSlackFeed(token, userID string, logger *zap.Logger) *SlackFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlackFeed{
		client: &fasthttp.Client{Name: "taskscan"},
		token:  token,
		userID: userID,
		logger: logger,
	}
}

type slackSearchResponse struct {
	OK       bool   `json:"ok"`
	Error    string `json:"error"`
	Messages struct {
		Matches []slackMatch `json:"matches"`
	} `json:"messages"`
}

type slackMatch struct {
	TS       string `json:"ts"`
	Username string `json:"username"`
	Text     string `json:"text"`
	Channel  struct {
		Name string `json:"name"`
	} `json:"channel"`
}

// Mentions searches for messages mentioning the user and keeps those at or
// after since.
func (f *SlackFeed) Mentions(ctx context.Context, since time.Time) ([]scan.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query := url.QueryEscape(fmt.Sprintf("<@%s>", f.userID))
	uri := fmt.Sprintf("%s?query=%s&count=%d&sort=timestamp&sort_dir=desc",
		slackSearchURL, query, slackPageSize)

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+f.token)

	if err := f.client.DoTimeout(req, resp, slackHTTPTimeout); err != nil {
		return nil, fmt.Errorf("slack search: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("slack search: status %d", resp.StatusCode())
	}
	var parsed slackSearchResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("slack search: decode: %w", err)
	}
	if !parsed.OK {
		return nil, fmt.Errorf("slack search: %s", parsed.Error)
	}

	var out []scan.Message
	for _, m := range parsed.Messages.Matches {
		ts := slackTime(m.TS)
		if ts.Before(since) {
			continue
		}
		out = append(out, scan.Message{
			ID:        m.TS,
			Sender:    m.Username,
			Body:      m.Text,
			Channel:   m.Channel.Name,
			Timestamp: ts,
		})
	}
	f.logger.Debug("mentions searched",
		zap.Int("matches", len(parsed.Messages.Matches)),
		zap.Int("in_window", len(out)))
	return out, nil
}

// slackTime parses a "1724490000.000100" message timestamp.
func slackTime(ts string) time.Time {
	seconds := ts
	if i := strings.IndexByte(ts, '.'); i >= 0 {
		seconds = ts[:i]
	}
	n, err := strconv.ParseInt(seconds, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(n, 0)
}
