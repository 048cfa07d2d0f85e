// Package api is the storefront's client for the MiniMall backend.
//
// A single Client serves every page. It attaches the bearer token read from
// a CredentialStore, maps HTTP status codes onto a small error taxonomy and
// decodes the backend's JSON into typed values:
//
//	401  ErrUnauthenticated  credentials cleared, login redirect triggered
//	403  ErrForbidden        backend message kept
//	404  ErrNotFound         a kind of ErrRequestFailed
//	422  ErrValidation       field errors parsed from the detail array
//	5xx  ErrRequestFailed    detail, message or status text
//	     ErrNetworkUnreachable when no response arrived
//
// Every returned error is an *Error; use errors.Is with the sentinels to
// branch and Message to get text fit for the page.
package api
