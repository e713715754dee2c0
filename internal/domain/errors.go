// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist on the backend.
var ErrNotFound = errors.New("not found")

// ErrUnauthenticated indicates a missing, expired, or rejected credential.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrForbidden indicates a valid session whose role does not permit the operation.
var ErrForbidden = errors.New("forbidden")

// ErrBackend indicates the backend answered with a non-2xx status.
var ErrBackend = errors.New("backend error")

// ErrGateway indicates a proxy or gateway answered in place of the backend
// with a non-JSON body masquerading as a success response.
var ErrGateway = errors.New("gateway returned non-JSON response")

// ErrNoTemplate indicates no branding template is available, fresh or cached.
// Pages that render the document preview must not render without one.
var ErrNoTemplate = errors.New("no branding template available")
