package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ModeAPIKey enables key checks; every other mode passes requests through.
const ModeAPIKey = "apikey"

// APIKey validates an admin key carried in an HTTP header.
//
// Behaviour:
//   - If mode != "apikey" or key == "", every request is allowed (pass-through).
//   - Otherwise the value of header must equal key.
type APIKey struct {
	mode   string
	header string
	key    string
}

// NewAPIKey builds a checker. header is matched case-insensitively.
func NewAPIKey(mode, header, key string) *APIKey {
	return &APIKey{mode: mode, header: header, key: key}
}

// Enabled reports whether requests are actually checked.
func (a *APIKey) Enabled() bool {
	return a.mode == ModeAPIKey && a.key != ""
}

// Header returns the header name the key is read from.
func (a *APIKey) Header() string { return a.header }

// Check reports whether r carries the admin key. Always true when disabled.
func (a *APIKey) Check(r *http.Request) bool {
	if !a.Enabled() {
		return true
	}
	got := r.Header.Get(a.header)
	return got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(a.key)) == 1
}

// Require is gin middleware that aborts with 401 unless Check passes.
func (a *APIKey) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Check(c.Request) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			return
		}
		c.Next()
	}
}
