// Package engine executes one invocation of an app definition.
//
// An invocation names a dotted method path and carries a bundle. The engine
// resolves the path against the compiled schema, adapts whatever calling
// convention the target uses, and post-processes the result:
//
//	Input -> resolver -> before middleware -> perform -> after middleware
//	      -> auth refresh (at most once) -> hydration markers -> Output
//
// CONCURRENCY:
//
// One invocation runs sequentially. Promise and callback performs may settle
// from other goroutines, but the engine always awaits before the next stage.
// The app definition, compiled schema and middleware pipeline are built once
// in New and only read afterwards, so Execute is safe for concurrent use.
// Bundles are copied per invocation.
//
// AUTH REFRESH:
//
// For oauth2 apps with autoRefresh, a 401 anywhere in the invocation marks it
// as needing fresh credentials. The engine calls refreshAccessToken (or
// getAccessToken when no refresh perform exists), merges the result into
// authData and re-runs the whole invocation exactly once. A second failure is
// reported as *RefreshAuthError.
//
// Hydration tokens are encoded, never resolved.
package engine
