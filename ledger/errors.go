package ledger

import (
	"errors"
	"fmt"
)

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind rather than matching error strings. Error()
// strings mirror the revert reasons of the original contracts and are meant
// for humans.
type Kind string

const (
	KindInsufficientStake        Kind = "InsufficientStake"
	KindAlreadyRegistered        Kind = "AlreadyRegistered"
	KindNoStakeFound             Kind = "NoStakeFound"
	KindNotOwner                 Kind = "NotOwner"
	KindNotAuthorized            Kind = "NotAuthorized"
	KindInsufficientFunds        Kind = "InsufficientFunds"
	KindDuplicateFingerprint     Kind = "DuplicateFingerprint"
	KindTokenNotFound            Kind = "TokenNotFound"
	KindNotTokenOwner            Kind = "NotTokenOwner"
	KindInsufficientListingFunds Kind = "InsufficientListingFunds"
	KindUnauthorized             Kind = "Unauthorized"
	KindNoListingFound           Kind = "NoListingFound"
	KindNotLicensable            Kind = "NotLicensable"
	KindDuplicateOrigin          Kind = "DuplicateOrigin"
	KindOwnerLicenseNotRequired  Kind = "OwnerLicenseNotRequired"

	// Environment kinds.
	KindInsufficientBalance Kind = "InsufficientBalance"
	KindInvalidArgument     Kind = "InvalidArgument"
	KindOverflow            Kind = "Overflow"
	KindInternal            Kind = "Internal"
)

// Error is the structured error returned by every failed transition.
//
// Identity and TokenID carry the acting identity and target token when they
// are relevant to the failure; both are zero otherwise.
type Error struct {
	Kind     Kind
	Identity Identity
	TokenID  TokenID
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Errorf builds an *Error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is (or wraps) an *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf returns the Kind of a structured error, or "" if err is not one.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}

// RequireAdmin fails with NotOwner unless caller is the administrator.
func RequireAdmin(admin, caller Identity) error {
	if caller != admin {
		return &Error{Kind: KindNotOwner, Identity: caller, Message: "Ownable: caller is not the owner"}
	}
	return nil
}
