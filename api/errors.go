package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/andrewkuryan/brownie/account"
	"github.com/andrewkuryan/brownie/srp"
	"github.com/andrewkuryan/brownie/store"
)

var (
	// ErrSignatureMismatch is returned when a request signature does not
	// verify against the presented public key.
	ErrSignatureMismatch = errors.New("signature does not match")
	// ErrContactTaken is returned when a contact is already confirmed by
	// another user.
	ErrContactTaken = errors.New("contact is already registered")

	errBadRequest = errors.New("bad request")
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func (a *API) mapError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrSignatureMismatch),
		errors.Is(err, account.ErrProofMismatch):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrContactNotFound),
		errors.Is(err, store.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrLoginTaken),
		errors.Is(err, store.ErrConflict),
		errors.Is(err, ErrContactTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, account.ErrSessionInUse),
		errors.Is(err, account.ErrSessionExpired),
		errors.Is(err, account.ErrInvalidTransition),
		errors.Is(err, account.ErrWrongVerificationCode),
		errors.Is(err, srp.ErrInvalidHex),
		errors.Is(err, srp.ErrDegenerateEphemeral),
		errors.Is(err, errBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		a.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
