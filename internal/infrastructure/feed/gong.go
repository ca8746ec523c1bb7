package feed

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskscan/internal/scan"
)

const gongHTTPTimeout = 30 * time.Second

// GongFeed lists recorded calls and their transcripts over the Gong REST
// API with basic-auth access keys.
type GongFeed struct {
	client  *fasthttp.Client
	baseURL string
	auth    string
	logger  *zap.Logger
}

func NewGongFeed(baseURL, accessKey, accessSecret string, logger *zap.Logger) *GongFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GongFeed{
		client:  &fasthttp.Client{Name: "taskscan"},
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    base64.StdEncoding.EncodeToString([]byte(accessKey + ":" + accessSecret)),
		logger:  logger,
	}
}

type gongCallsResponse struct {
	Calls []struct {
		ID      string    `json:"id"`
		Title   string    `json:"title"`
		Started time.Time `json:"started"`
	} `json:"calls"`
}

type gongTranscriptResponse struct {
	CallTranscripts []struct {
		CallID     string `json:"callId"`
		Transcript []struct {
			SpeakerID string `json:"speakerId"`
			Sentences []struct {
				Text string `json:"text"`
			} `json:"sentences"`
		} `json:"transcript"`
	} `json:"callTranscripts"`
}

// Calls lists calls started since the given time, with transcripts attached
// where available.
func (f *GongFeed) Calls(ctx context.Context, since time.Time) ([]scan.Call, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	uri := fmt.Sprintf("%s/v2/calls?fromDateTime=%s&toDateTime=%s",
		f.baseURL,
		url.QueryEscape(since.UTC().Format(time.RFC3339)),
		url.QueryEscape(time.Now().UTC().Format(time.RFC3339)))

	var listed gongCallsResponse
	if err := f.get(uri, &listed); err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	if len(listed.Calls) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(listed.Calls))
	for _, c := range listed.Calls {
		ids = append(ids, c.ID)
	}
	transcripts, err := f.transcripts(ids)
	if err != nil {
		return nil, err
	}

	out := make([]scan.Call, 0, len(listed.Calls))
	for _, c := range listed.Calls {
		out = append(out, scan.Call{
			ID:         c.ID,
			Title:      c.Title,
			Started:    c.Started,
			Transcript: transcripts[c.ID],
		})
	}
	f.logger.Debug("calls listed",
		zap.Int("calls", len(out)),
		zap.Int("transcripts", len(transcripts)))
	return out, nil
}

// transcripts fetches and flattens transcripts to "Speaker N: text" lines,
// keyed by call id.
func (f *GongFeed) transcripts(callIDs []string) (map[string]string, error) {
	body, err := json.Marshal(map[string]any{
		"filter": map[string]any{"callIds": callIDs},
	})
	if err != nil {
		return nil, fmt.Errorf("encode transcript filter: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(f.baseURL + "/v2/calls/transcript")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set(fasthttp.HeaderAuthorization, "Basic "+f.auth)
	req.SetBody(body)

	if err := f.client.DoTimeout(req, resp, gongHTTPTimeout); err != nil {
		return nil, fmt.Errorf("fetch transcripts: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("fetch transcripts: status %d", resp.StatusCode())
	}
	var parsed gongTranscriptResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("fetch transcripts: decode: %w", err)
	}

	out := make(map[string]string, len(parsed.CallTranscripts))
	for _, t := range parsed.CallTranscripts {
		var b strings.Builder
		for _, mono := range t.Transcript {
			var sentences []string
			for _, s := range mono.Sentences {
				sentences = append(sentences, s.Text)
			}
			if len(sentences) == 0 {
				continue
			}
			fmt.Fprintf(&b, "Speaker %s: %s\n", mono.SpeakerID, strings.Join(sentences, " "))
		}
		out[t.CallID] = strings.TrimSpace(b.String())
	}
	return out, nil
}

func (f *GongFeed) get(uri string, into any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAuthorization, "Basic "+f.auth)

	if err := f.client.DoTimeout(req, resp, gongHTTPTimeout); err != nil {
		return err
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode())
	}
	return json.Unmarshal(resp.Body(), into)
}
