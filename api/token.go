package api

import (
	"errors"
	"net/http"
	"strings"
)

// TokenCookie holds the Firebase ID token set by the login page.
const TokenCookie = "token"

var (
	errMissingToken = errors.New("missing token cookie")
	errBadToken     = errors.New("bad token cookie")
)

func tokenFromRequest(r *http.Request) (string, error) {
	ck, err := r.Cookie(TokenCookie)
	if err != nil {
		return "", errMissingToken
	}
	raw := strings.TrimSpace(ck.Value)
	raw = strings.TrimPrefix(raw, "Bearer ")
	if raw == "" {
		return "", errMissingToken
	}
	if strings.Count(raw, ".") != 2 {
		return "", errBadToken
	}
	return raw, nil
}
