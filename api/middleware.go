package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/andrewkuryan/brownie/account"
	"github.com/andrewkuryan/brownie/signature"
	"github.com/andrewkuryan/brownie/store"
)

const (
	headerPublicKey   = "X-PublicKey"
	headerSignature   = "X-Signature"
	headerBrowserName = "X-BrowserName"
	headerOSName      = "X-OsName"
)

type contextKey int

const (
	userKey contextKey = iota
	sessionKey
)

// VerifyRequests checks the request signature against the X-PublicKey
// header before anything is read from storage. A key seen for the first
// time gets a new guest user and guest session. The user and session are
// stored on the request context and the body is left readable.
func (a *API) VerifyRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}

		device := account.Device{
			PublicKey:   r.Header.Get(headerPublicKey),
			BrowserName: r.Header.Get(headerBrowserName),
			OSName:      r.Header.Get(headerOSName),
		}
		msg := signature.InboundMessage(signature.Request{
			URL:         signature.DecodeURI(r.RequestURI),
			BrowserName: device.BrowserName,
			OSName:      device.OSName,
			Method:      r.Method,
			Body:        string(body),
		})
		if device.PublicKey == "" || !signature.Verify(device.PublicKey, msg, r.Header.Get(headerSignature)) {
			a.audit.logFailure(AuditSignatureRejected, r, ErrSignatureMismatch.Error())
			a.mapError(w, r, ErrSignatureMismatch)
			return
		}

		ctx := r.Context()
		user, session, err := a.store.GetBySessionKey(ctx, device.PublicKey)
		if errors.Is(err, store.ErrSessionNotFound) {
			user, session, err = a.store.CreateGuest(ctx, device)
			if err == nil {
				a.audit.logUser(AuditGuestProvisioned, r, user.UserID(),
					slog.String("key", fingerprint(device.PublicKey)))
			}
		}
		if err != nil {
			a.mapError(w, r, err)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		ctx = context.WithValue(ctx, userKey, user)
		ctx = context.WithValue(ctx, sessionKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// signingWriter holds back the response so it can be signed as a whole.
type signingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *signingWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
}

func (w *signingWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(p)
}

// SignResponses signs every response with the server key. The signature
// covers the absolute request URL, the method and the response body, and
// is sent in X-Signature.
func (a *API) SignResponses(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &signingWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		if sw.status == 0 {
			sw.status = http.StatusOK
		}

		msg := signature.OutboundMessage(signature.Response{
			URL:    absoluteURL(r),
			Method: r.Method,
			Body:   sw.body.String(),
		})
		sig, err := a.signer.Sign(msg)
		if err != nil {
			a.logger.ErrorContext(r.Context(), "signing response failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		h := w.Header()
		h.Set(headerSignature, sig)
		h.Set("Access-Control-Expose-Headers", headerSignature)
		h.Set("Content-Length", strconv.Itoa(sw.body.Len()))
		w.WriteHeader(sw.status)
		w.Write(sw.body.Bytes())
	})
}

// absoluteURL rebuilds the URL the client called: scheme, host and port
// followed by the decoded request URI. The port is always present.
func absoluteURL(r *http.Request) string {
	scheme, port := "http", "80"
	if requestIsSecure(r) {
		scheme, port = "https", "443"
	}
	host, p, err := net.SplitHostPort(r.Host)
	if err != nil {
		host = strings.Trim(r.Host, "[]")
	} else {
		port = p
	}
	return scheme + "://" + net.JoinHostPort(host, port) + signature.DecodeURI(r.RequestURI)
}

func userFromContext(ctx context.Context) account.User {
	u, _ := ctx.Value(userKey).(account.User)
	return u
}

func sessionFromContext(ctx context.Context) account.Session {
	s, _ := ctx.Value(sessionKey).(account.Session)
	return s
}
