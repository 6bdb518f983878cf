// Package api exposes a Matcher over HTTP.
//
// Endpoints:
//
//	POST /match/   {"query": "...", "top_n": 5} -> [Match, ...]
//	GET  /health   200 once the roster is embedded, 503 before
//
// Every response carries an X-Request-ID header that also tags the request's
// log lines.
package api
