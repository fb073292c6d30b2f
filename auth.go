package main

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// checkAuth accepts the token as a bearer header or, for clients that
// cannot set headers, as the access_token query parameter. An empty token
// disables the check.
func checkAuth(r *http.Request, token string) bool {
	if token == "" {
		return true
	}
	if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && tokenEqual(bearer, token) {
		return true
	}
	return tokenEqual(r.URL.Query().Get("access_token"), token)
}

func tokenEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// authHeader builds the handshake header OneBot implementations expect
// when an access token is configured.
func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
