// Package api implements the HTTP surface of cergdb.
//
// # Architecture
//
// Server holds the handler dependencies (store, token issuer, password
// hasher, logger) and registers routes on a net/http ServeMux. Login and
// the route listing are public; every other route runs behind the bearer
// token middleware from the auth package, so handlers can read verified
// Claims straight from the request context.
//
// # Error Handling
//
// Handlers fail by constructing an AppError, which pairs an HTTP status
// with the client-facing message. Responses all have the shape
// {"error": message}. Store sentinel errors are translated by
// mapStoreError; internal causes are logged but never leak into a
// response body.
//
// # Registration gate
//
// POST /register checks the caller's admin claim before touching the
// request body or the store. Non-admin callers get the same rejection
// whether or not the target account exists.
//
// # Retrieve transforms
//
// GET/POST /retrieve supports offset/limit pagination plus two pure
// presentation transforms: field projection with dotted sub-paths into
// the JSON columns, and flattening of nested objects into dotted keys.
// Both run on the handler's copy of the rows after the read. A free-text
// filter parameter is accepted and ignored; client text never reaches
// SQL.
package api
