package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/roach88/appcore/internal/ir"
	"github.com/roach88/appcore/internal/render"
)

// PrepareRequest copies req, fills defaults and renders shorthand templates.
func PrepareRequest(_ context.Context, req *ir.Request, _ ir.Z, bundle *ir.Bundle) (*ir.Request, error) {
	out := req.Clone()
	if out.Shorthand {
		var err error
		if out, err = render.Request(out, bundle); err != nil {
			return nil, err
		}
	}

	out.Method = strings.ToUpper(out.Method)
	if out.Method == "" {
		out.Method = http.MethodGet
	}
	if out.Headers == nil {
		out.Headers = map[string]string{}
	}
	return out, nil
}

// FinalizeRequest merges params into the URL query and encodes structured
// bodies as JSON.
func FinalizeRequest(_ context.Context, req *ir.Request, _ ir.Z, _ *ir.Bundle) (*ir.Request, error) {
	out := req.Clone()

	if len(out.Params) > 0 {
		u, err := url.Parse(out.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid request url %q: %w", out.URL, err)
		}
		q := u.Query()
		for k, v := range out.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
		out.URL = u.String()
		out.Params = nil
	}

	switch body := out.Body.(type) {
	case nil, string:
	case []byte:
		out.Body = string(body)
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("request body for %s is not JSON serializable: %w", out.URL, err)
		}
		out.Body = string(data)
		if !hasHeader(out.Headers, "Content-Type") {
			if out.Headers == nil {
				out.Headers = map[string]string{}
			}
			out.Headers["Content-Type"] = "application/json; charset=utf-8"
		}
	}
	return out, nil
}

// RefreshOn401 turns a 401 into an *AuthFailureError.
func RefreshOn401(_ context.Context, resp *ir.Response, _ ir.Z, _ *ir.Bundle) (*ir.Response, error) {
	if resp.Status == http.StatusUnauthorized {
		return nil, &AuthFailureError{Response: resp}
	}
	return resp, nil
}

// ThrowForStatus rejects non-2xx responses unless the request opted out.
func ThrowForStatus(_ context.Context, resp *ir.Response, _ ir.Z, _ *ir.Bundle) (*ir.Response, error) {
	if resp.OK() || (resp.Request != nil && resp.Request.SkipThrowForStatus) {
		return resp, nil
	}
	return nil, NewResponseError(resp)
}

func hasHeader(h map[string]string, name string) bool {
	for k := range h {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}
