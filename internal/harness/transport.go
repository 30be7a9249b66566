package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/roach88/appcore/internal/ir"
)

// cannedTransport answers requests from a scenario's response list and
// records everything it was asked.
type cannedTransport struct {
	mu        sync.Mutex
	responses []CannedResponse
	used      []int
	requests  []RecordedRequest
}

func newCannedTransport(responses []CannedResponse) *cannedTransport {
	return &cannedTransport{
		responses: responses,
		used:      make([]int, len(responses)),
	}
}

// Do implements engine.Transport.
func (t *cannedTransport) Do(ctx context.Context, req *ir.Request) (*ir.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	method := req.Method
	if method == "" {
		method = "GET"
	}
	t.requests = append(t.requests, RecordedRequest{
		Method:  method,
		URL:     req.URL,
		Headers: maps.Clone(req.Headers),
		Body:    req.Body,
	})

	for i, r := range t.responses {
		if !r.matches(method, req.URL) {
			continue
		}
		if r.Times > 0 && t.used[i] >= r.Times {
			continue
		}
		t.used[i]++
		return r.response(req)
	}
	return nil, fmt.Errorf("no canned response for %s %s", method, req.URL)
}

func (t *cannedTransport) recorded() []RecordedRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]RecordedRequest, len(t.requests))
	copy(out, t.requests)
	return out
}

func (r CannedResponse) matches(method, url string) bool {
	if r.Method != "" && !strings.EqualFold(r.Method, method) {
		return false
	}
	if r.URL != "" {
		return r.URL == url
	}
	return strings.HasPrefix(url, r.URLPrefix)
}

func (r CannedResponse) response(req *ir.Request) (*ir.Response, error) {
	status := r.Status
	if status == 0 {
		status = 200
	}

	var content string
	switch b := r.Body.(type) {
	case nil:
	case string:
		content = b
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode canned body for %s: %w", req.URL, err)
		}
		content = string(data)
	}

	headers := maps.Clone(r.Headers)
	if headers == nil {
		headers = map[string]string{}
	}
	return &ir.Response{
		Status:  status,
		Headers: headers,
		Content: content,
		Request: req.Clone(),
	}, nil
}
