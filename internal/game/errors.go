package game

import (
	"errors"

	"go.uber.org/multierr"

	"github.com/3bbing/friends-pyramid/internal/auth"
	"github.com/3bbing/friends-pyramid/internal/engine"
	"github.com/3bbing/friends-pyramid/internal/pyramid"
	"github.com/3bbing/friends-pyramid/internal/store"
	api "github.com/3bbing/friends-pyramid/pkg/types"
)

// ErrorBody is the client-facing description of err. Unknown errors are
// not echoed back.
func ErrorBody(err error) api.ErrorResponse {
	var ice *pyramid.InsufficientCardsError
	if errors.As(err, &ice) {
		return api.ErrorResponse{Error: err.Error(), MaxDepth: ice.MaxDepth}
	}
	if IsClientError(err) {
		return api.ErrorResponse{Error: err.Error()}
	}
	return api.ErrorResponse{Error: "internal error"}
}

// IsClientError reports whether err is caused by the request rather than the server.
func IsClientError(err error) bool {
	for _, e := range multierr.Errors(err) {
		if !isClientError(e) {
			return false
		}
	}
	return err != nil
}

var clientErrors = []error{
	pyramid.ErrInsufficientCards,
	pyramid.ErrInvalidPath,
	pyramid.ErrMissingQuestion,
	pyramid.ErrMissingOptionA,
	pyramid.ErrMissingOptionB,
	engine.ErrNotActiveRound,
	engine.ErrUnauthorized,
	engine.ErrUnknownPlayer,
	ErrUnknownAction,
	ErrTeamMismatch,
	ErrMissingTeamName,
	ErrBadInvite,
	auth.ErrWrongPassword,
	auth.ErrPasswordTooShort,
	auth.ErrUnauthenticated,
	store.ErrNotFound,
	store.ErrTeamNameTaken,
}

func isClientError(err error) bool {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
