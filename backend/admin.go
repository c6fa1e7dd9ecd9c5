package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminCookie = "admin"
	sessionAge  = 12 * time.Hour
)

// sessions issues and checks the encrypted admin cookie.
type sessions struct {
	hashedPassword []byte
	codec          *securecookie.SecureCookie
}

// newSessions builds the admin session layer. Missing keys are generated,
// in which case cookies do not outlive the process.
func newSessions(hashedPassword string, hashKey, blockKey []byte) *sessions {
	if hashedPassword == "" {
		log.Println("ADMIN_HASHED_PASSWORD is not set, admin login is disabled")
	}
	if len(hashKey) == 0 {
		log.Println("COOKIE_HASH_KEY is not set, using a random key")
		hashKey = securecookie.GenerateRandomKey(64)
	}
	if len(blockKey) == 0 {
		blockKey = securecookie.GenerateRandomKey(32)
	}
	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(int(sessionAge.Seconds()))
	return &sessions{hashedPassword: []byte(hashedPassword), codec: codec}
}

// login sets the admin cookie on rw when password matches.
func (s *sessions) login(rw http.ResponseWriter, password string) bool {
	if len(s.hashedPassword) == 0 {
		return false
	}
	if bcrypt.CompareHashAndPassword(s.hashedPassword, []byte(password)) != nil {
		return false
	}

	value, err := s.codec.Encode(adminCookie, true)
	if err != nil {
		log.Printf("error encoding admin cookie: %v", err)
		return false
	}
	http.SetCookie(rw, &http.Cookie{
		Name:     adminCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   int(sessionAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return true
}

func (s *sessions) isAdmin(req *http.Request) bool {
	cookie, err := req.Cookie(adminCookie)
	if err != nil {
		return false
	}
	var admin bool
	if err := s.codec.Decode(adminCookie, cookie.Value, &admin); err != nil {
		return false
	}
	return admin
}
