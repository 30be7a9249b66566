package compiler

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/appcore/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrNilApp = "E100" // app definition is nil

	// Resource and action errors (E101-E109)
	ErrKeyMismatch        = "E101" // key field differs from its map key
	ErrMissingNoun        = "E102" // resource without noun
	ErrMissingPerform     = "E103" // operation has a body but nothing to perform
	ErrUnknownResource    = "E104" // operation.resource names a missing resource
	ErrInvalidTriggerType = "E105" // trigger type other than polling or hook
	ErrInvalidField       = "E106" // field without key, or duplicate key
	ErrInvalidRequest     = "E107" // shorthand request without url

	// Authentication errors (E110-E119)
	ErrInvalidAuthType   = "E110" // unknown authentication type
	ErrMissingOAuth2     = "E111" // oauth2 without oauth2Config
	ErrMissingAuthorize  = "E112" // oauth2 without authorizeUrl
	ErrMissingTokenFetch = "E113" // oauth2 without getAccessToken
)

// ValidationError represents a definition validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks an app definition for authoring mistakes.
// Returns all errors found (does not fail-fast), in a stable order.
//
// Validation is stricter than CompileApp: blank method stubs compile, but an
// operation that has a body and no perform is reported here.
func Validate(app *ir.AppDefinition) []ValidationError {
	if app == nil {
		return []ValidationError{{Field: "app", Message: "app definition is nil", Code: ErrNilApp}}
	}

	var errs []ValidationError
	for _, key := range slices.Sorted(maps.Keys(app.Resources)) {
		errs = append(errs, validateResource(key, app.Resources[key])...)
	}
	for _, ns := range []struct {
		name    string
		actions map[string]ir.Action
	}{
		{"triggers", app.Triggers},
		{"searches", app.Searches},
		{"creates", app.Creates},
	} {
		for _, key := range slices.Sorted(maps.Keys(ns.actions)) {
			errs = append(errs, validateAction(ns.name, key, ns.actions[key], app.Resources)...)
		}
	}
	errs = append(errs, validateAuth(app.Authentication)...)
	return errs
}

func validateResource(key string, res ir.Resource) []ValidationError {
	var errs []ValidationError
	path := "resources." + key

	// E101: key must match map key
	if res.Key != "" && res.Key != key {
		errs = append(errs, ValidationError{
			Field:   path + ".key",
			Message: fmt.Sprintf("key %q does not match %q", res.Key, key),
			Code:    ErrKeyMismatch,
		})
	}

	// E102: noun is required
	if strings.TrimSpace(res.Noun) == "" {
		errs = append(errs, ValidationError{
			Field:   path + ".noun",
			Message: "noun is required",
			Code:    ErrMissingNoun,
		})
	}

	for _, m := range res.NamedMethods() {
		op := m.Method.Operation
		opPath := path + "." + m.Name + ".operation"
		// Hooks may carry only performList.
		if m.Name != "hook" && !op.IsEmpty() && op.Perform == nil {
			errs = append(errs, ValidationError{
				Field:   opPath + ".perform",
				Message: "operation has no perform",
				Code:    ErrMissingPerform,
			})
		}
		errs = append(errs, validateOperation(opPath, op)...)
	}
	errs = append(errs, validateFields(path+".outputFields", res.OutputFields)...)
	return errs
}

func validateAction(namespace, key string, action ir.Action, resources map[string]ir.Resource) []ValidationError {
	var errs []ValidationError
	path := namespace + "." + key
	op := action.Operation

	if action.Key != "" && action.Key != key {
		errs = append(errs, ValidationError{
			Field:   path + ".key",
			Message: fmt.Sprintf("key %q does not match %q", action.Key, key),
			Code:    ErrKeyMismatch,
		})
	}

	if op.Resource != "" {
		// E104: linked resource must exist
		if _, ok := resources[op.Resource]; !ok {
			errs = append(errs, ValidationError{
				Field:   path + ".operation.resource",
				Message: fmt.Sprintf("unknown resource %q", op.Resource),
				Code:    ErrUnknownResource,
			})
		}
	} else if op.Perform == nil {
		errs = append(errs, ValidationError{
			Field:   path + ".operation.perform",
			Message: "operation has no perform and no linked resource",
			Code:    ErrMissingPerform,
		})
	}

	// E105: trigger type
	if namespace == "triggers" && op.Type != "" && op.Type != TriggerTypePolling && op.Type != TriggerTypeHook {
		errs = append(errs, ValidationError{
			Field:   path + ".operation.type",
			Message: fmt.Sprintf("type must be %q or %q, got %q", TriggerTypePolling, TriggerTypeHook, op.Type),
			Code:    ErrInvalidTriggerType,
		})
	}

	return append(errs, validateOperation(path+".operation", op)...)
}

func validateOperation(path string, op ir.Operation) []ValidationError {
	var errs []ValidationError
	for _, p := range []struct {
		name    string
		perform ir.Perform
	}{
		{"perform", op.Perform},
		{"performList", op.PerformList},
		{"performGet", op.PerformGet},
	} {
		errs = append(errs, validatePerform(path+"."+p.name, p.perform)...)
	}
	errs = append(errs, validateFields(path+".inputFields", op.InputFields)...)
	errs = append(errs, validateFields(path+".outputFields", op.OutputFields)...)
	return errs
}

// validatePerform checks shorthand requests (E107).
func validatePerform(path string, p ir.Perform) []ValidationError {
	req, ok := p.(*ir.Request)
	if !ok || strings.TrimSpace(req.URL) != "" {
		return nil
	}
	return []ValidationError{{
		Field:   path + ".url",
		Message: "request url is required",
		Code:    ErrInvalidRequest,
	}}
}

// validateFields checks static entries for keys and duplicates (E106).
func validateFields(path string, fields ir.Fields) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for i, src := range fields {
		if src.Static == nil {
			continue
		}
		key := src.Static.Key
		switch {
		case strings.TrimSpace(key) == "":
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s[%d].key", path, i),
				Message: "field key is required",
				Code:    ErrInvalidField,
			})
		case seen[key]:
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s[%d].key", path, i),
				Message: fmt.Sprintf("duplicate field key %q", key),
				Code:    ErrInvalidField,
			})
		}
		seen[key] = true
	}
	return errs
}

func validateAuth(auth *ir.AuthSpec) []ValidationError {
	if auth == nil {
		return nil
	}

	var errs []ValidationError
	switch auth.Type {
	case ir.AuthTypeOAuth2, ir.AuthTypeBasic, ir.AuthTypeCustom, ir.AuthTypeSession:
	default:
		errs = append(errs, ValidationError{
			Field:   "authentication.type",
			Message: fmt.Sprintf("unknown authentication type %q", auth.Type),
			Code:    ErrInvalidAuthType,
		})
	}
	errs = append(errs, validatePerform("authentication.test", auth.Test)...)
	errs = append(errs, validateFields("authentication.fields", auth.Fields)...)

	if auth.Type != ir.AuthTypeOAuth2 {
		return errs
	}
	oc := auth.OAuth2Config
	if oc == nil {
		return append(errs, ValidationError{
			Field:   "authentication.oauth2Config",
			Message: "oauth2 authentication requires oauth2Config",
			Code:    ErrMissingOAuth2,
		})
	}
	if oc.AuthorizeURL == nil || strings.TrimSpace(oc.AuthorizeURL.URL) == "" {
		errs = append(errs, ValidationError{
			Field:   "authentication.oauth2Config.authorizeUrl",
			Message: "authorizeUrl is required",
			Code:    ErrMissingAuthorize,
		})
	}
	if oc.GetAccessToken == nil {
		errs = append(errs, ValidationError{
			Field:   "authentication.oauth2Config.getAccessToken",
			Message: "getAccessToken is required",
			Code:    ErrMissingTokenFetch,
		})
	}
	errs = append(errs, validatePerform("authentication.oauth2Config.getAccessToken", oc.GetAccessToken)...)
	errs = append(errs, validatePerform("authentication.oauth2Config.refreshAccessToken", oc.RefreshAccessToken)...)
	return errs
}
