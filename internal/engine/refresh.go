package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/appcore/internal/middleware"
)

var (
	errRejectedAfterRefresh = errors.New("a request was rejected with 401")
	errNoTokenPerform       = errors.New("oauth2Config has neither refreshAccessToken nor getAccessToken")
)

type attempt func(ctx context.Context) (any, error)

// withRefresh runs fn and, when the app auto-refreshes and fn hit a 401,
// refreshes credentials once and runs fn once more.
//
//	Normal -> Refreshing -> Retrying -> Normal | Failed
func (inv *invocation) withRefresh(ctx context.Context, fn attempt) (any, error) {
	result, err := fn(ctx)
	if !inv.needsRefresh(err) {
		return result, err
	}

	inv.logger.Info("credentials rejected, refreshing", "error", err)
	inv.refreshed = true

	authData, rerr := inv.refresh(ctx)
	if rerr != nil {
		return nil, &RefreshAuthError{Method: inv.method, Stage: refreshStage, Cause: rerr}
	}
	inv.bundle.Store(inv.currentBundle().WithAuthData(authData))
	inv.authFailed.Store(false)

	result, err = fn(ctx)
	if inv.needsRefresh(err) {
		if err == nil {
			err = errRejectedAfterRefresh
		}
		return nil, &RefreshAuthError{Method: inv.method, Stage: retryStage, Cause: err}
	}
	return result, err
}

func (inv *invocation) needsRefresh(err error) bool {
	if !inv.engine.app.Authentication.AutoRefreshes() {
		return false
	}
	return middleware.IsAuthFailure(err) || inv.authFailed.Load()
}

// refresh calls refreshAccessToken, or getAccessToken when the app declares
// no refresh perform, and returns the object to merge into authData.
func (inv *invocation) refresh(ctx context.Context) (map[string]any, error) {
	oc := inv.engine.app.Authentication.OAuth2Config
	perform := oc.RefreshAccessToken
	name := "refreshAccessToken"
	if perform == nil {
		perform, name = oc.GetAccessToken, "getAccessToken"
	}
	if perform == nil {
		return nil, errNoTokenPerform
	}

	inv.authFailed.Store(false)
	v, err := Invoke(ctx, perform, &zImpl{inv: inv}, inv.currentBundle()).Await(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if inv.authFailed.Load() {
		return nil, fmt.Errorf("%s: token endpoint rejected the request with 401", name)
	}

	authData, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s returned %T, expected an object", name, v)
	}
	return authData, nil
}
