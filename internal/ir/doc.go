// Package ir provides the app definition and invocation types for appcore.
//
// This package contains type definitions and small value helpers only. All
// other internal packages import ir; ir imports nothing internal. This keeps
// the definition model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - An AppDefinition is never mutated once built; variants go through Clone
//   - Perform is a sealed interface: SyncFunc, PromiseFunc, CallbackFunc,
//     *Request (shorthand) and StaticValue are the only implementations
//   - A nil *Method on a Resource means "absent"; &Method{} is a blank stub
//   - JSON tags use the camelCase names of the app definition format
package ir
