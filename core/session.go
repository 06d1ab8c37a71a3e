package baar

import "github.com/meigma/baar/core/keystream"

// Session carries the password for encrypting and decrypting entries.
//
// Sessions are owned by the caller and passed to each operation that needs
// them. A nil *Session means no password.
type Session struct {
	password []byte
}

// NewSession returns a session holding password. An empty password yields
// a session that behaves like nil.
func NewSession(password string) *Session {
	return &Session{password: []byte(password)}
}

// HasPassword reports whether the session carries a non-empty password.
func (s *Session) HasPassword() bool {
	return s != nil && len(s.password) > 0
}

func (s *Session) secret() string {
	if s == nil {
		return ""
	}
	return string(s.password)
}

// Close wipes the password. The session must not be used afterwards.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	keystream.Wipe(s.password)
	s.password = nil
	return nil
}
