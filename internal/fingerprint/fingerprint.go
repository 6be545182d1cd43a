// Package fingerprint derives a coarse device identifier from request headers.
//
// The identifier names a browser configuration, not a physical machine: unrelated users on the
// same browser, OS and locale produce the same value.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/sandeepkv93/edupro-device-guard/internal/domain"
)

// Length is the size of a generated device id in hex characters.
const Length = sha256.Size * 2

// separator never appears inside an HTTP header value.
const separator = "\n"

// Generate hashes user-agent, accept-language and accept-encoding, in that order.
func Generate(userAgent, acceptLanguage, acceptEncoding string) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{userAgent, acceptLanguage, acceptEncoding}, separator)))
	return hex.EncodeToString(sum[:])
}

func FromInfo(info domain.DeviceInfo) string {
	return Generate(info.UserAgent, info.AcceptLanguage, info.AcceptEncoding)
}

func SignalsFromHeaders(h http.Header) domain.DeviceInfo {
	return domain.DeviceInfo{
		UserAgent:      h.Get("User-Agent"),
		AcceptLanguage: h.Get("Accept-Language"),
		AcceptEncoding: h.Get("Accept-Encoding"),
	}
}

func FromHeaders(h http.Header) string {
	return FromInfo(SignalsFromHeaders(h))
}
