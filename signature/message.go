// Package signature builds the canonical request and response descriptors
// exchanged with clients and signs or verifies them with ECDSA.
//
// Messages are assembled literally rather than through encoding/json so that
// key order and body bytes are exactly what the client produced.
package signature

import (
	"net/url"
	"strings"
)

// Request describes an inbound call as the client signed it. URL is the
// decoded request URI (path and query) without scheme or host.
type Request struct {
	URL         string
	BrowserName string
	OSName      string
	Method      string
	Body        string
}

// Response describes an outbound reply. URL is absolute: scheme, host and
// port followed by the decoded request URI. Checksum is used instead of Body
// for file responses.
type Response struct {
	URL      string
	Method   string
	Body     string
	Checksum string
}

// InboundMessage returns the string a client signs for r.
func InboundMessage(r Request) string {
	var sb strings.Builder
	sb.Grow(64 + len(r.URL) + len(r.Body))
	sb.WriteString(`{"url":"`)
	sb.WriteString(r.URL)
	sb.WriteString(`","browserName":"`)
	sb.WriteString(r.BrowserName)
	sb.WriteString(`","osName":"`)
	sb.WriteString(r.OSName)
	sb.WriteString(`","method":"`)
	sb.WriteString(r.Method)
	sb.WriteByte('"')
	if r.Body != "" {
		sb.WriteString(`,"body":`)
		sb.WriteString(r.Body)
	}
	sb.WriteByte('}')
	return stripNewlines(sb.String())
}

// OutboundMessage returns the string the server signs for r.
func OutboundMessage(r Response) string {
	var sb strings.Builder
	sb.Grow(48 + len(r.URL) + len(r.Body))
	sb.WriteString(`{"url":"`)
	sb.WriteString(r.URL)
	sb.WriteString(`","method":"`)
	sb.WriteString(r.Method)
	sb.WriteByte('"')
	switch {
	case r.Body != "":
		sb.WriteString(`,"body":`)
		sb.WriteString(r.Body)
	case r.Checksum != "":
		sb.WriteString(`,"checksum":"`)
		sb.WriteString(r.Checksum)
		sb.WriteByte('"')
	}
	sb.WriteByte('}')
	return stripNewlines(sb.String())
}

// DecodeURI form-decodes a raw request URI the way browser clients do
// before signing: percent escapes are resolved and '+' becomes a space.
// A malformed escape leaves the URI unchanged.
func DecodeURI(rawURI string) string {
	decoded, err := url.QueryUnescape(rawURI)
	if err != nil {
		return rawURI
	}
	return decoded
}

func stripNewlines(s string) string {
	return strings.ReplaceAll(s, "\n", "")
}
