package rpc

import (
	"errors"
	"net/http"

	"sweeper/core"
	"sweeper/core/state"
	"sweeper/core/types"
	"sweeper/native/forwarder"
	"sweeper/native/token"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeIndexDisabled  = -32002

	codeTxRejected         = -32030
	codeUnauthorizedCall   = -32031
	codeNullDestination    = -32032
	codeAlreadyInitialized = -32033
	codeSaltCollision      = -32034
	codeNotFound           = -32035
)

// paramError marks a malformed or missing parameter.
type paramError struct {
	msg string
	err error
}

func (e *paramError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *paramError) Unwrap() error { return e.err }

func invalidParams(msg string, err error) error { return &paramError{msg: msg, err: err} }

var (
	errWriteScope    = errors.New("rpc: bearer token lacks the sweep:write scope")
	errIndexDisabled = errors.New("rpc: forwarder index not configured")
)

// toRPCError classifies err into an HTTP status and JSON-RPC error object.
func toRPCError(err error) (int, *RPCError) {
	var perr *paramError
	switch {
	case errors.As(err, &perr):
		return http.StatusBadRequest, &RPCError{Code: codeInvalidParams, Message: perr.Error()}
	case errors.Is(err, errWriteScope):
		return http.StatusUnauthorized, &RPCError{Code: codeUnauthorized, Message: err.Error()}
	case errors.Is(err, errIndexDisabled):
		return http.StatusServiceUnavailable, &RPCError{Code: codeIndexDisabled, Message: err.Error()}
	case errors.Is(err, forwarder.ErrUnauthorizedCaller):
		var typed *forwarder.UnauthorizedCallerError
		var data interface{}
		if errors.As(err, &typed) {
			data = map[string]string{"caller": typed.Caller.Hex()}
		}
		return http.StatusForbidden, &RPCError{Code: codeUnauthorizedCall, Message: "UnauthorizedCaller", Data: data}
	case errors.Is(err, forwarder.ErrNullDestinationAddress):
		return http.StatusBadRequest, &RPCError{Code: codeNullDestination, Message: "NullDestinationAddress"}
	case errors.Is(err, forwarder.ErrAlreadyInitialized):
		return http.StatusConflict, &RPCError{Code: codeAlreadyInitialized, Message: "AlreadyInitialized"}
	case errors.Is(err, forwarder.ErrSaltCollision):
		var typed *forwarder.SaltCollisionError
		var data interface{}
		if errors.As(err, &typed) {
			data = map[string]string{"salt": typed.Salt.Dec(), "address": typed.Address.Hex()}
		}
		return http.StatusConflict, &RPCError{Code: codeSaltCollision, Message: "SaltCollision", Data: data}
	case errors.Is(err, forwarder.ErrForwarderNotFound),
		errors.Is(err, forwarder.ErrFactoryNotFound),
		errors.Is(err, token.ErrTokenNotFound):
		return http.StatusNotFound, &RPCError{Code: codeNotFound, Message: err.Error()}
	case errors.Is(err, core.ErrNonceMismatch),
		errors.Is(err, core.ErrUnknownTxType),
		errors.Is(err, core.ErrMissingTarget),
		errors.Is(err, core.ErrValueNotAllowed),
		errors.Is(err, core.ErrInvalidValue),
		errors.Is(err, types.ErrMissingSignature),
		errors.Is(err, types.ErrInvalidSignature),
		errors.Is(err, types.ErrInvalidPayload),
		errors.Is(err, state.ErrInsufficientBalance),
		errors.Is(err, state.ErrCodeCollision),
		errors.Is(err, token.ErrInsufficientBalance),
		errors.Is(err, token.ErrInvalidRecipient),
		errors.Is(err, token.ErrInvalidAmount):
		return http.StatusBadRequest, &RPCError{Code: codeTxRejected, Message: err.Error()}
	}
	return http.StatusInternalServerError, &RPCError{Code: codeServerError, Message: "internal error"}
}
