// Package harness runs HTTP conformance scenarios against the REST server.
//
// A scenario starts a fresh in-memory store with fixed identifiers, sends a
// list of requests through the real router, and checks the responses and
// the final table contents.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	fields: [text, count_optional_int]   # optional, default field list
//	api: /api                            # optional
//	token: secret                        # optional
//	strict_put: false                    # optional
//	ids: [BBBBBB, CCCCCC]                # identifiers handed out by POST
//	steps:
//	  - request: POST /api
//	    headers: { Authorization: "Bearer secret" }
//	    body: { text: hello }
//	    expect:
//	      status: 201
//	      body: BBBBBB
//	assertions:
//	  - type: record
//	    id: BBBBBB
//	    expect: { text: hello }
//	  - type: absent
//	    id: CCCCCC
//	  - type: count
//	    count: 1
//
// Steps may send form values with form: instead of body:.
//
// # Golden Files
//
// RunWithGolden writes the request/response trace (without request ids) to
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
