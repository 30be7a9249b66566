// Package harness runs conformance scenarios against an app definition.
//
// A scenario loads an app directory, answers outgoing HTTP requests from a
// list of canned responses, executes a sequence of invocations through the
// real engine and checks each outcome. Every run gets a fresh in-memory
// journal, fixed invocation IDs and a step clock, so results are
// reproducible and can be compared against golden files.
//
// # Scenario Format
//
//	name: contact_list
//	description: "Lists contacts and refreshes an expired token"
//	app: ../apps/contacts
//	responses:
//	  - method: GET
//	    url: https://api.example.com/contacts
//	    status: 401
//	    times: 1
//	  - method: POST
//	    url: https://api.example.com/token
//	    body: {access_token: fresh}
//	  - url_prefix: https://api.example.com/contacts
//	    body: [{id: 1, name: Alice}]
//	steps:
//	  - method: triggers.contactList.operation.perform
//	    bundle:
//	      authData: {access_token: stale}
//	    expect:
//	      paths:
//	        "$[0].name": Alice
//	assertions:
//	  - type: request_count
//	    url_prefix: https://api.example.com/contacts
//	    count: 2
//	  - type: journal_count
//	    outcome: success
//	    count: 1
//
// # Assertion Types
//
//   - request_count: number of outgoing requests matching http_method/url/url_prefix
//   - request_order: the given URLs were requested in this order (gaps allowed)
//   - journal_count: number of journal entries matching method/outcome/refreshed
package harness
