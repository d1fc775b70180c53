package auth

import (
	"errors"
	"fmt"
	"strings"
)

// Reason identifies why a token was rejected.
type Reason string

const (
	ReasonMissingToken     Reason = "missing_token"
	ReasonMalformedToken   Reason = "malformed_token"
	ReasonInvalidSignature Reason = "invalid_signature"
	ReasonUnknownIssuer    Reason = "unknown_issuer"
	ReasonExpiredToken     Reason = "expired_token"
	ReasonRevokedToken     Reason = "revoked_token"
	ReasonUnknownIdentity  Reason = "unknown_identity"
	ReasonIdentityMismatch Reason = "identity_mismatch"
	ReasonInternalError    Reason = "internal_error"
)

var reasonMessages = map[Reason]string{
	ReasonMissingToken:     "bearer token not found",
	ReasonMalformedToken:   "token is malformed",
	ReasonInvalidSignature: "token signature is invalid",
	ReasonUnknownIssuer:    "token was not issued by this service",
	ReasonExpiredToken:     "token has expired",
	ReasonRevokedToken:     "token has been revoked",
	ReasonUnknownIdentity:  "token subject does not exist",
	ReasonIdentityMismatch: "token no longer matches its subject",
	ReasonInternalError:    "internal server error",
}

// Message returns the client-safe description of the reason.
func (r Reason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return string(r)
}

// Code returns the reason as an upper-case error code.
func (r Reason) Code() string {
	return strings.ToUpper(string(r))
}

// Rejection is the error returned for every failed validation.
type Rejection struct {
	Reason Reason
	Err    error
}

// Error implements the error interface.
func (r *Rejection) Error() string {
	if r.Err == nil {
		return r.Reason.Message()
	}
	return fmt.Sprintf("%s: %v", r.Reason.Message(), r.Err)
}

// Unwrap returns the underlying cause.
func (r *Rejection) Unwrap() error {
	return r.Err
}

func reject(reason Reason, err error) error {
	return &Rejection{Reason: reason, Err: err}
}

// ReasonOf extracts the rejection reason from err. Errors that are not
// rejections are internal errors.
func ReasonOf(err error) Reason {
	if err == nil {
		return ""
	}
	var rejection *Rejection
	if errors.As(err, &rejection) {
		return rejection.Reason
	}
	return ReasonInternalError
}
