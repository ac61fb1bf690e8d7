// Package auth provides login accounts for the menu front end: user
// registration, credential checks, and the single-admin rule.
//
// Accounts ride on the same generic snapshot store as every other entity
// (users.csv). Passwords are stored as salted sha256 digests, enough to
// keep plain text off disk, and deliberately no more: authentication
// hardening is out of scope for this system.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/institutehq/institute-api/internal/storage"
	"github.com/institutehq/institute-api/internal/storage/filestore"
	"github.com/institutehq/institute-api/internal/storage/idgen"
	"github.com/institutehq/institute-api/internal/types"
)

const usersFile = "users.csv"

// Service manages login accounts.
type Service struct {
	store *filestore.Store[types.User]
	log   *slog.Logger
}

// Open loads users.csv under dataDir.
func Open(dataDir string, log *slog.Logger) (*Service, error) {
	store, err := filestore.Open(filepath.Join(dataDir, usersFile), userCodec{}, idgen.New(), log)
	if err != nil {
		return nil, err
	}
	return &Service{store: store, log: log}, nil
}

// Register creates a new account. The username must be unused, and only
// one ADMIN account may exist.
func (s *Service) Register(username, password string, role types.Role) (types.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return types.User{}, fmt.Errorf("%w: username and password are required", storage.ErrValidation)
	}
	if _, err := types.ParseRole(string(role)); err != nil {
		return types.User{}, fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := types.User{
		ID:           s.store.NextID(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	}
	err = s.store.Batch(func(tx *filestore.Tx[types.User]) error {
		if _, taken := tx.Find(func(u types.User) bool { return u.Username == username }); taken {
			return fmt.Errorf("username %q: %w", username, storage.ErrDuplicate)
		}
		if role == types.RoleAdmin {
			if _, exists := tx.Find(func(u types.User) bool { return u.Role == types.RoleAdmin }); exists {
				return fmt.Errorf("an admin account already exists: %w", storage.ErrStateConflict)
			}
		}
		return tx.Add(user)
	})
	if err != nil {
		return types.User{}, err
	}

	s.log.Info("user registered", slog.Int("id", user.ID), slog.String("role", string(role)))
	return user, nil
}

// Login verifies credentials and returns the account. The same error
// comes back for an unknown username and a wrong password, so the prompt
// cannot be used to probe which usernames exist.
func (s *Service) Login(username, password string) (types.User, error) {
	for _, user := range s.store.GetAll() {
		if user.Username == username && verifyPassword(user.PasswordHash, password) {
			s.log.Info("user logged in", slog.Int("id", user.ID))
			return user, nil
		}
	}
	return types.User{}, fmt.Errorf("invalid credentials: %w", storage.ErrValidation)
}

// UserByUsername returns the account with the given username.
func (s *Service) UserByUsername(username string) (types.User, error) {
	for _, user := range s.store.GetAll() {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, fmt.Errorf("user %q: %w", username, storage.ErrNotFound)
}

// HasAdmin reports whether an ADMIN account exists, so the front end can
// offer first-run admin setup.
func (s *Service) HasAdmin() bool {
	for _, user := range s.store.GetAll() {
		if user.Role == types.RoleAdmin {
			return true
		}
	}
	return false
}

// hashPassword returns "salt$digest" with a fresh random salt.
func hashPassword(password string) (string, error) {
	salt := make([]byte, 8)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	sum := sha256.Sum256(append(salt, []byte(password)...))
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(sum[:]), nil
}

func verifyPassword(stored, password string) bool {
	saltHex, digestHex, ok := strings.Cut(stored, "$")
	if !ok {
		return false
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	sum := sha256.Sum256(append(salt, []byte(password)...))
	return subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(digestHex)) == 1
}

// userCodec lays User rows out as userId,username,passwordHash,role.
type userCodec struct{}

func (userCodec) Header() []string { return []string{"userId", "username", "passwordHash", "role"} }

func (userCodec) ID(u types.User) int { return u.ID }

func (userCodec) Encode(u types.User) []string {
	return []string{strconv.Itoa(u.ID), u.Username, u.PasswordHash, string(u.Role)}
}

func (userCodec) Decode(row []string) (types.User, error) {
	if len(row) != 4 {
		return types.User{}, fmt.Errorf("user row has %d fields", len(row))
	}
	id, err := strconv.Atoi(row[0])
	if err != nil {
		return types.User{}, fmt.Errorf("user id: %w", err)
	}
	role, err := types.ParseRole(row[3])
	if err != nil {
		return types.User{}, err
	}
	return types.User{ID: id, Username: row[1], PasswordHash: row[2], Role: role}, nil
}
