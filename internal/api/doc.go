// Package api exposes the query executor over HTTP.
//
// POST /api/query accepts {"query", "variables", "operationName"} and answers
// with {"data", "errors"}. GET /api/query takes the same values as URL
// parameters and only runs queries. Field failures produce a 200 response with
// partial data; request-level failures map to 4xx/5xx statuses through
// MapErrorToStatusCode.
package api
