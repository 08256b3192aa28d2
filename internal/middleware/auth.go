// Package middleware содержит HTTP middleware сервиса промокодов.
package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	adminCookieName = "admin_token"
	adminCookieTTL  = 24 * time.Hour
)

// AdminAuth проверяет сессию администратора по подписанному cookie.
// Токен содержит срок действия и HMAC-подпись, состояние на сервере не хранится.
type AdminAuth struct {
	secretKey []byte
	now       func() time.Time
}

// NewAdminAuth создаёт новый экземпляр AdminAuth с указанным секретным ключом.
func NewAdminAuth(secret string) *AdminAuth {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AdminAuth{
		secretKey: key,
		now:       time.Now,
	}
}

// Middleware пропускает запрос дальше только при действующей сессии администратора.
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(adminCookieName)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		if !a.parseToken(cookie.Value) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// SetAuthCookie устанавливает cookie сессии администратора.
func (a *AdminAuth) SetAuthCookie(w http.ResponseWriter) {
	expires := a.now().Add(adminCookieTTL)

	cookie := &http.Cookie{
		Name:     adminCookieName,
		Value:    a.signExpiry(expires.Unix()),
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

// ClearAuthCookie завершает сессию администратора.
func (a *AdminAuth) ClearAuthCookie(w http.ResponseWriter) {
	cookie := &http.Cookie{
		Name:     adminCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

func (a *AdminAuth) signExpiry(expUnix int64) string {
	expStr := strconv.FormatInt(expUnix, 10)
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(expStr))
	return expStr + "." + hex.EncodeToString(mac.Sum(nil))
}

func (a *AdminAuth) parseToken(value string) bool {
	parts := strings.Split(value, ".")
	if len(parts) != 2 {
		return false
	}

	expStr := parts[0]
	signature := parts[1]

	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(expStr))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return false
	}

	expUnix, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return false
	}

	return a.now().Unix() < expUnix
}
