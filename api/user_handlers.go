package api

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/andrewkuryan/brownie/account"
	"github.com/andrewkuryan/brownie/srp"
)

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", errBadRequest)
	}
	return nil
}

// pathID parses an {id} URL parameter. Anything that is not a number maps
// to -1, which matches no record.
func pathID(r *http.Request) int {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return -1
	}
	return id
}

// GetUser handles GET /user.
func (a *API) GetUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFromContext(r.Context()))
}

// AddEmailContact handles POST /user/contact/email. Only a guest outside a
// login handshake may add its first contact; the verification code is
// mailed to the address.
func (a *API) AddEmailContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userFromContext(ctx)
	if _, ok := user.(account.GuestUser); !ok {
		a.mapError(w, r, fmt.Errorf("can't add contact to this user: %w", account.ErrInvalidTransition))
		return
	}
	if _, ok := sessionFromContext(ctx).(account.GuestSession); !ok {
		a.mapError(w, r, fmt.Errorf("can't add contact during login: %w", account.ErrSessionInUse))
		return
	}

	var req AddEmailRequest
	if err := decodeBody(r, &req); err != nil {
		a.mapError(w, r, err)
		return
	}
	data := account.NewEmailData(req.EmailAddress)
	if data.EmailAddress == "" || !strings.Contains(data.EmailAddress, "@") {
		a.mapError(w, r, fmt.Errorf("invalid email address: %w", errBadRequest))
		return
	}
	if _, err := a.store.GetByUniqueKey(ctx, data.UniqueKey()); err == nil {
		a.mapError(w, r, ErrContactTaken)
		return
	}

	_, contact, err := a.store.AddNewContact(ctx, user, data)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	if err := a.notifier.SendVerification(ctx, data, contact.VerificationCode); err != nil {
		a.logger.WarnContext(ctx, "verification delivery failed", "contact_id", contact.ID, "error", err)
	}
	a.audit.logUser(AuditContactAdded, r, user.UserID(), slog.Int("contact_id", contact.ID))
	writeJSON(w, http.StatusOK, contact)
}

// ResendCode handles POST /user/contact/resend-code for a blank user whose
// contact is still unconfirmed.
func (a *API) ResendCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userFromContext(ctx)
	blank, ok := user.(account.BlankUser)
	if !ok {
		a.mapError(w, r, fmt.Errorf("user has no unconfirmed contact: %w", account.ErrInvalidTransition))
		return
	}
	pending, ok := blank.Contact.(account.UnconfirmedContact)
	if !ok {
		a.mapError(w, r, fmt.Errorf("user has no unconfirmed contact: %w", account.ErrInvalidTransition))
		return
	}

	renewed, err := a.store.RegenerateCode(ctx, pending)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	if err := a.notifier.SendVerification(ctx, renewed.Data, renewed.VerificationCode); err != nil {
		a.logger.WarnContext(ctx, "verification delivery failed", "contact_id", renewed.ID, "error", err)
	}
	a.audit.logUser(AuditCodeResent, r, user.UserID(), slog.Int("contact_id", renewed.ID))
	writeJSON(w, http.StatusOK, renewed)
}

// VerifyContact handles POST /user/contact/{id}/verify.
func (a *API) VerifyContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userFromContext(ctx)

	var req VerifyContactRequest
	if err := decodeBody(r, &req); err != nil {
		a.mapError(w, r, err)
		return
	}
	pending, ok := account.UnconfirmedContactOf(user, pathID(r))
	if !ok {
		a.mapError(w, r, fmt.Errorf("unverified contact not found: %w", errBadRequest))
		return
	}

	confirmed, err := a.store.ConfirmContact(ctx, pending, req.VerificationCode)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	a.audit.logUser(AuditContactVerified, r, user.UserID(), slog.Int("contact_id", confirmed.ID))
	writeJSON(w, http.StatusOK, confirmed)
}

// FulfillUser handles PUT /user/fulfill: a blank user on a guest session
// registers a login with client-computed SRP credentials and the session
// becomes active.
func (a *API) FulfillUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	blank, okUser := userFromContext(ctx).(account.BlankUser)
	guest, okSession := sessionFromContext(ctx).(account.GuestSession)
	if !okUser || !okSession {
		a.mapError(w, r, fmt.Errorf("user cannot be fulfilled: %w", account.ErrInvalidTransition))
		return
	}

	var req FulfillRequest
	if err := decodeBody(r, &req); err != nil {
		a.mapError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Login) == "" || req.Salt == "" {
		a.mapError(w, r, fmt.Errorf("login and salt are required: %w", errBadRequest))
		return
	}
	verifier, err := srp.ParseHex(req.VerifierHex)
	if err != nil {
		a.mapError(w, r, fmt.Errorf("verifierHex: %w", err))
		return
	}

	data := account.UserData{
		Login:       req.Login,
		Credentials: account.Credentials{Salt: req.Salt, Verifier: verifier},
	}
	active, _, err := a.store.Fulfill(ctx, blank, data, guest)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	a.audit.logUser(AuditUserFulfilled, r, active.ID)
	writeJSON(w, http.StatusOK, active)
}

// LoginInit handles POST /user/login/init, the first SRP round. The guest
// session moves to Temp holding the derived session key.
func (a *API) LoginInit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, okUser := userFromContext(ctx).(account.GuestUser)
	guest, okSession := sessionFromContext(ctx).(account.GuestSession)
	if !okUser || !okSession {
		a.mapError(w, r, account.ErrSessionInUse)
		return
	}

	var req LoginInitRequest
	if err := decodeBody(r, &req); err != nil {
		a.mapError(w, r, err)
		return
	}
	A, err := srp.ParseHex(req.AHex)
	if err != nil {
		a.mapError(w, r, fmt.Errorf("AHex: %w", err))
		return
	}
	target, err := a.store.GetByLogin(ctx, req.Login)
	if err != nil {
		a.mapError(w, r, err)
		return
	}

	kHex, B, err := a.engine.ComputeKHexB(A, target.Data.Credentials.Verifier)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	temp, err := account.BeginLogin(guest, kHex, a.store.Now())
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	if _, err := a.store.UpdateSession(ctx, guest, temp); err != nil {
		a.mapError(w, r, err)
		return
	}

	a.audit.log(AuditLoginInit, r, slog.String("key", fingerprint(guest.PublicKey)))
	writeJSON(w, http.StatusOK, LoginInitResponse{
		Salt: target.Data.Credentials.Salt,
		BHex: srp.Hex(B),
	})
}

// LoginVerify handles POST /user/login/verify. A matching proof activates
// the session for the target user and returns the server proof; a
// mismatch leaves the session in Temp.
func (a *API) LoginVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, okUser := userFromContext(ctx).(account.GuestUser)
	temp, okSession := sessionFromContext(ctx).(account.TempSession)
	if !okUser || !okSession {
		a.mapError(w, r, account.ErrSessionInUse)
		return
	}

	if temp.Expired(a.store.Now(), a.tempTTL) {
		if err := a.store.ExpireSession(ctx, temp); err != nil {
			a.logger.WarnContext(ctx, "expiring login session failed", "error", err)
		}
		a.audit.log(AuditLoginExpired, r, slog.String("key", fingerprint(temp.PublicKey)))
		a.mapError(w, r, account.ErrSessionExpired)
		return
	}

	var req LoginVerifyRequest
	if err := decodeBody(r, &req); err != nil {
		a.mapError(w, r, err)
		return
	}
	target, err := a.store.GetByLogin(ctx, req.Login)
	if err != nil {
		a.mapError(w, r, err)
		return
	}

	expected := a.engine.ComputeMHex(req.Login, target.Data.Credentials.Salt, req.AHex, req.BHex, temp.KHex)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(req.MHex)) != 1 {
		a.audit.logFailure(AuditLoginFailure, r, "proof mismatch",
			slog.String("key", fingerprint(temp.PublicKey)), slog.Int("user_id", target.ID))
		a.mapError(w, r, account.ErrProofMismatch)
		return
	}

	active, err := account.CompleteLogin(temp)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	if err := a.store.ChangeSessionOwner(ctx, temp, active, target); err != nil {
		a.mapError(w, r, err)
		return
	}

	a.audit.logUser(AuditLoginSuccess, r, target.ID, slog.String("key", fingerprint(temp.PublicKey)))
	writeJSON(w, http.StatusOK, LoginVerifyResponse{
		RHex: a.engine.ComputeRHex(req.AHex, expected, temp.KHex),
		User: target,
	})
}

// Logout handles POST /user/logout. The session is removed; the next
// request from the same key starts over as a guest.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := sessionFromContext(ctx)
	user := userFromContext(ctx)
	if err := a.store.DeleteSession(ctx, session); err != nil {
		a.mapError(w, r, err)
		return
	}
	a.audit.logUser(AuditLogout, r, user.UserID())
	writeJSON(w, http.StatusOK, LogoutResponse{})
}

// UserInfo handles GET /user/{id}/info.
func (a *API) UserInfo(w http.ResponseWriter, r *http.Request) {
	info, err := a.store.PublicInfo(r.Context(), pathID(r))
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
