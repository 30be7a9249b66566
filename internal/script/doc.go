// Package script runs JavaScript performs and middleware with goja.
//
// A script is a single function expression. Performs take (z, bundle),
// before-middleware takes (request, z, bundle), after-middleware takes
// (response, z, bundle). Each call runs in its own runtime; compiled programs
// are shared.
//
// The z object passed to scripts mirrors ir.Z:
//
//	z.request(urlOrRequest)  // synchronous, returns {status, headers, content, json}
//	z.dehydrate(method, bundle)
//	z.hash(algorithm, text)
//	z.console.log(...args)
package script
