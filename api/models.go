package api

import "github.com/andrewkuryan/brownie/account"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AddEmailRequest is the JSON body for POST /user/contact/email.
type AddEmailRequest struct {
	EmailAddress string `json:"emailAddress"`
}

// VerifyContactRequest is the JSON body for POST /user/contact/{id}/verify.
type VerifyContactRequest struct {
	VerificationCode string `json:"verificationCode"`
}

// FulfillRequest is the JSON body for PUT /user/fulfill. Salt and
// VerifierHex are computed by the client; the password never leaves it.
type FulfillRequest struct {
	Login       string `json:"login"`
	Salt        string `json:"salt"`
	VerifierHex string `json:"verifierHex"`
}

// LoginInitRequest is the JSON body for POST /user/login/init.
type LoginInitRequest struct {
	Login string `json:"login"`
	AHex  string `json:"AHex"`
}

// LoginInitResponse is returned from POST /user/login/init.
type LoginInitResponse struct {
	Salt string `json:"salt"`
	BHex string `json:"BHex"`
}

// LoginVerifyRequest is the JSON body for POST /user/login/verify.
type LoginVerifyRequest struct {
	Login string `json:"login"`
	AHex  string `json:"AHex"`
	BHex  string `json:"BHex"`
	MHex  string `json:"MHex"`
}

// LoginVerifyResponse is returned from POST /user/login/verify. The client
// checks RHex to authenticate the server.
type LoginVerifyResponse struct {
	RHex string             `json:"RHex"`
	User account.ActiveUser `json:"user"`
}

// LogoutResponse is returned from POST /user/logout.
type LogoutResponse struct{}
