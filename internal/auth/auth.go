// Package auth gates per-user data access behind a password. New hashes
// are always bcrypt; verification additionally recognizes the two hash
// formats written by the browser-era releases (SHA-256 hex, and a base64
// encoding with a fixed salt — explicitly weak, kept only so migrated
// records keep working) and upgrades them to bcrypt on the next
// successful login.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/TehSN/ocd-project/internal/common"
	"github.com/TehSN/ocd-project/internal/config"
	"github.com/TehSN/ocd-project/internal/state"
	"github.com/TehSN/ocd-project/internal/store"
)

// legacySalt is the fixed salt the browser fallback path concatenated
// before base64-encoding. Not secure; verification-only.
const legacySalt = "ocd-salt-2024"

// Service owns user records and the currentUser pointer in the stored
// application state.
type Service struct {
	store  *store.Store
	roster []string
	minLen int
}

func New(st *store.Store, cfg *config.Config) *Service {
	return &Service{store: st, roster: cfg.Users, minLen: cfg.MinPasswordLength}
}

// HashPassword returns a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword recomputes and compares, accepting bcrypt plus the two
// legacy formats.
func VerifyPassword(password, hash string) bool {
	switch {
	case strings.HasPrefix(hash, "$2"):
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	case isHexDigest(hash):
		sum := sha256.Sum256([]byte(password))
		return subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(strings.ToLower(hash))) == 1
	default:
		legacy := base64.StdEncoding.EncodeToString([]byte(password + legacySalt))
		return subtle.ConstantTimeCompare([]byte(legacy), []byte(hash)) == 1
	}
}

// isLegacyHash reports whether the stored hash predates bcrypt.
func isLegacyHash(hash string) bool {
	return hash != "" && !strings.HasPrefix(hash, "$2")
}

func isHexDigest(s string) bool {
	if len(s) != hex.EncodedLen(sha256.Size) {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// UserInfo is the roster-facing summary used by the login screen.
type UserInfo struct {
	Username    string `json:"username"`
	CreatedAt   string `json:"createdAt,omitempty"`
	LastLogin   string `json:"lastLogin,omitempty"`
	Exists      bool   `json:"exists"`
	HasPassword bool   `json:"hasPassword"`
	IsMigrated  bool   `json:"isMigrated"`
}

// UserExists reports whether a record exists for username.
func (s *Service) UserExists(username string) bool {
	_, ok := s.store.LoadState().Users[username]
	return ok
}

// InRoster reports whether username is one of the fixed predefined users.
func (s *Service) InRoster(username string) bool {
	for _, u := range s.roster {
		if u == username {
			return true
		}
	}
	return false
}

// GetAllUsers lists every stored user record.
func (s *Service) GetAllUsers() []UserInfo {
	st := s.store.LoadState()
	out := make([]UserInfo, 0, len(st.Users))
	for name, rec := range st.Users {
		out = append(out, UserInfo{
			Username:    name,
			CreatedAt:   rec.CreatedAt,
			LastLogin:   rec.LastLogin,
			Exists:      true,
			HasPassword: rec.PasswordHash != "",
			IsMigrated:  rec.IsMigrated,
		})
	}
	return out
}

// ListRoster reports, for each predefined username, whether a record
// exists and whether a password has been set, so the UI can route to
// password entry vs password creation.
func (s *Service) ListRoster() []UserInfo {
	st := s.store.LoadState()
	out := make([]UserInfo, 0, len(s.roster))
	for _, name := range s.roster {
		info := UserInfo{Username: name}
		if rec, ok := st.Users[name]; ok {
			info.Exists = true
			info.CreatedAt = rec.CreatedAt
			info.LastLogin = rec.LastLogin
			info.HasPassword = rec.PasswordHash != ""
			info.IsMigrated = rec.IsMigrated
		}
		out = append(out, info)
	}
	return out
}

// CreateUser creates the record for username with full defaults, or sets
// the password on an existing record that has none (or is being reset).
func (s *Service) CreateUser(username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", common.ErrValidation)
	}
	if !s.InRoster(username) {
		return fmt.Errorf("%w: unknown user %q", common.ErrValidation, username)
	}
	if len(password) < s.minLen {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrValidation, s.minLen)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	now := state.Now()
	st := s.store.LoadState()
	if rec, ok := st.Users[username]; ok {
		rec.PasswordHash = hash
		rec.LastLogin = now
		st.Users[username] = rec
	} else {
		rec := state.DefaultUserRecord()
		rec.PasswordHash = hash
		st.Users[username] = rec
	}
	// Stamp lastUpdated via the user-state path so the record carries it.
	rec := st.Users[username]
	if !s.store.SaveUserState(username, rec) {
		return fmt.Errorf("%w: failed to save user data", common.ErrStorage)
	}
	return nil
}

// AuthenticateUser verifies the password for username, updating lastLogin
// on success. Legacy hashes are transparently upgraded to bcrypt.
func (s *Service) AuthenticateUser(username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", common.ErrValidation)
	}

	st := s.store.LoadState()
	rec, ok := st.Users[username]
	if !ok {
		return fmt.Errorf("%w: user %q", common.ErrNotFound, username)
	}
	if rec.PasswordHash == "" {
		return common.ErrNoPasswordSet
	}
	if !VerifyPassword(password, rec.PasswordHash) {
		return common.ErrInvalidCredentials
	}

	if isLegacyHash(rec.PasswordHash) {
		if hash, err := HashPassword(password); err == nil {
			rec.PasswordHash = hash
			log.Printf("auth: upgraded legacy password hash for %s", username)
		}
	}
	rec.LastLogin = state.Now()
	st.Users[username] = rec
	if !s.store.SaveState(st) {
		// The login itself succeeded; a failed lastLogin stamp is logged
		// by the store and accepted.
		log.Printf("auth: could not persist lastLogin for %s", username)
	}
	return nil
}

// ChangeUserPassword replaces the password after verifying the old one.
func (s *Service) ChangeUserPassword(username, oldPassword, newPassword string) error {
	if username == "" || oldPassword == "" || newPassword == "" {
		return fmt.Errorf("%w: all fields are required", common.ErrValidation)
	}
	if err := s.AuthenticateUser(username, oldPassword); err != nil {
		return fmt.Errorf("%w: current password is incorrect", common.ErrUnauthorized)
	}
	if len(newPassword) < s.minLen {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrValidation, s.minLen)
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	st := s.store.LoadState()
	rec, ok := st.Users[username]
	if !ok {
		return fmt.Errorf("%w: user %q", common.ErrNotFound, username)
	}
	rec.PasswordHash = hash
	if !s.store.SaveUserState(username, rec) {
		return fmt.Errorf("%w: failed to save new password", common.ErrStorage)
	}
	return nil
}

// DeleteUser removes a user record after password confirmation, clearing
// currentUser if it pointed at the deleted user. Destructive; only
// reachable behind an explicit confirmation in the UI.
func (s *Service) DeleteUser(username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", common.ErrValidation)
	}
	if err := s.AuthenticateUser(username, password); err != nil {
		return fmt.Errorf("%w: password verification failed", common.ErrUnauthorized)
	}

	st := s.store.LoadState()
	delete(st.Users, username)
	if st.CurrentUser == username {
		st.CurrentUser = ""
	}
	if !s.store.SaveState(st) {
		return fmt.Errorf("%w: failed to delete user data", common.ErrStorage)
	}
	return nil
}

// SetCurrentUser records the last-authenticated user for auto-login.
func (s *Service) SetCurrentUser(username string) bool {
	st := s.store.LoadState()
	st.CurrentUser = username
	return s.store.SaveState(st)
}

// GetCurrentUser returns the last-authenticated user, or "".
func (s *Service) GetCurrentUser() string {
	return s.store.LoadState().CurrentUser
}

// LogoutUser clears the currentUser pointer. No data is deleted.
func (s *Service) LogoutUser() bool {
	st := s.store.LoadState()
	st.CurrentUser = ""
	return s.store.SaveState(st)
}
