// Package chesserr defines the stable error codes returned by board operations.
//
// Every violation maps to exactly one Code. Codes are part of the external
// contract and must never be renumbered; append new codes at the end.
package chesserr

import "errors"

// Code is the stable numeric identifier of a violation.
type Code uint32

const (
	CodeNone Code = iota
	CodeNotOwner
	CodeIncorrectPhase
	CodeInvalidConfiguration
	CodeInvalidRegisterArgs
	CodeInvalidVoteArgs
	CodePlyMismatch
	CodeIllegalMove
	CodePubkeyMismatch
	CodePubkeyPlayer
	CodeAlreadyRegistered
	CodeUnregisteredSpace
	CodePlayerMismatch
	CodeSpaceOutsideNeighborhood
	CodeSpaceNotOwned
	CodePastRegistrationDeadline
	CodeCapacityExceeded
	CodeTallyInvariantViolation
	CodeUninitializedBoard
	CodeAlreadyInitialized
	CodeCorruptBoard
)

// Kind groups codes into the violation families callers usually branch on.
type Kind uint8

const (
	KindNone Kind = iota
	KindPhase
	KindTiming
	KindAuthorization
	KindConfiguration
	KindGameRule
	KindRegistration
	KindInvariant
	KindEncoding
)

func (k Kind) String() string {
	switch k {
	case KindPhase:
		return "phase"
	case KindTiming:
		return "timing"
	case KindAuthorization:
		return "authorization"
	case KindConfiguration:
		return "configuration"
	case KindGameRule:
		return "game-rule"
	case KindRegistration:
		return "registration"
	case KindInvariant:
		return "invariant"
	case KindEncoding:
		return "encoding"
	default:
		return "none"
	}
}

// Error is a tagged violation. Two Errors match under errors.Is when their
// codes are equal, so wrapped sentinels compare the way callers expect.
type Error struct {
	Code Code
	Kind Kind
	name string
}

func (e *Error) Error() string { return e.name }

// Is reports code equality.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(code Code, kind Kind, name string) *Error {
	return &Error{Code: code, Kind: kind, name: name}
}

var (
	ErrNotOwner                 = newError(CodeNotOwner, KindAuthorization, "NotOwner")
	ErrIncorrectPhase           = newError(CodeIncorrectPhase, KindPhase, "IncorrectPhase")
	ErrInvalidConfiguration     = newError(CodeInvalidConfiguration, KindConfiguration, "InvalidConfiguration")
	ErrInvalidRegisterArgs      = newError(CodeInvalidRegisterArgs, KindRegistration, "InvalidRegisterArgs")
	ErrInvalidVoteArgs          = newError(CodeInvalidVoteArgs, KindGameRule, "InvalidVoteArgs")
	ErrPlyMismatch              = newError(CodePlyMismatch, KindGameRule, "PlyMismatch")
	ErrIllegalMove              = newError(CodeIllegalMove, KindGameRule, "IllegalMove")
	ErrPubkeyMismatch           = newError(CodePubkeyMismatch, KindAuthorization, "PubkeyMismatch")
	ErrPubkeyPlayer             = newError(CodePubkeyPlayer, KindRegistration, "PubkeyPlayer")
	ErrAlreadyRegistered        = newError(CodeAlreadyRegistered, KindRegistration, "AlreadyRegistered")
	ErrUnregisteredSpace        = newError(CodeUnregisteredSpace, KindRegistration, "UnregisteredSpace")
	ErrPlayerMismatch           = newError(CodePlayerMismatch, KindRegistration, "PlayerMismatch")
	ErrSpaceOutsideNeighborhood = newError(CodeSpaceOutsideNeighborhood, KindAuthorization, "SpaceOutsideNeighborhood")
	ErrSpaceNotOwned            = newError(CodeSpaceNotOwned, KindAuthorization, "SpaceNotOwned")
	ErrPastRegistrationDeadline = newError(CodePastRegistrationDeadline, KindTiming, "PastRegistrationDeadline")
	ErrCapacityExceeded         = newError(CodeCapacityExceeded, KindInvariant, "CapacityExceeded")
	ErrTallyInvariantViolation  = newError(CodeTallyInvariantViolation, KindInvariant, "TallyInvariantViolation")
	ErrUninitializedBoard       = newError(CodeUninitializedBoard, KindEncoding, "UninitializedBoard")
	ErrAlreadyInitialized       = newError(CodeAlreadyInitialized, KindEncoding, "AlreadyInitialized")
	ErrCorruptBoard             = newError(CodeCorruptBoard, KindEncoding, "CorruptBoard")
)

// CodeOf extracts the code from err, or CodeNone when err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeNone
}

// KindOf extracts the violation family from err.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNone
}

// NameOf returns the stable name of err's code, or "" when err carries none.
func NameOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.name
	}
	return ""
}
