package user

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/storage"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/user/entity"
)

// RoleAdministrator is assigned to every self-registered user.
const RoleAdministrator = "administrator"

// DefaultInvitationCode is the code accepted when INVITATION_CODE is unset.
const DefaultInvitationCode = "love139674"

// PasswordDigest turns a plaintext password into the value stored and
// compared by the backend. It must be deterministic because lookup is an
// equality match on (username, digest).
//
// Neither implementation is salted or slow. Changing that changes what is
// stored, so it is left as a known weakness of the credential format.
type PasswordDigest interface {
	Name() string
	Sum(pw string) string
}

// SHA256Digest is lower-case hex SHA-256, the format of existing user rows.
type SHA256Digest struct{}

func (SHA256Digest) Name() string { return "sha256" }
func (SHA256Digest) Sum(pw string) string {
	h := sha256.Sum256([]byte(pw))
	return hex.EncodeToString(h[:])
}

// Blake2bDigest is lower-case hex BLAKE2b-256.
type Blake2bDigest struct{}

func (Blake2bDigest) Name() string { return "blake2b" }
func (Blake2bDigest) Sum(pw string) string {
	h := blake2b.Sum256([]byte(pw))
	return hex.EncodeToString(h[:])
}

// DigestByName resolves the PASSWORD_DIGEST setting.
func DigestByName(name string) (PasswordDigest, error) {
	switch strings.ToLower(name) {
	case "", "sha256":
		return SHA256Digest{}, nil
	case "blake2b":
		return Blake2bDigest{}, nil
	default:
		return nil, fmt.Errorf("unknown password digest %q", name)
	}
}

type Config struct {
	InvitationCode string
	Digest         string
}

// ConfigFromEnv reads INVITATION_CODE and PASSWORD_DIGEST.
func ConfigFromEnv() Config {
	code := os.Getenv("INVITATION_CODE")
	if code == "" {
		code = DefaultInvitationCode
	}
	return Config{InvitationCode: code, Digest: os.Getenv("PASSWORD_DIGEST")}
}

var (
	// ErrValidation is matched by every input-validation failure.
	ErrValidation = errors.New("validation error")

	ErrInvalidInvitationCode = fmt.Errorf("%w: invalid invitation code", ErrValidation)
	ErrPasswordMismatch      = fmt.Errorf("%w: passwords do not match", ErrValidation)
	ErrEmptyUsername         = fmt.Errorf("%w: username is required", ErrValidation)

	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Service is the credential store: registration behind the invitation
// code and login verification, on top of any storage.Backend.
type Service struct {
	store          storage.Backend
	digest         PasswordDigest
	invitationCode string
	logger         *zap.SugaredLogger
}

func NewService(store storage.Backend, cfg Config, logger *zap.SugaredLogger) (*Service, error) {
	digest, err := DigestByName(cfg.Digest)
	if err != nil {
		return nil, err
	}
	if cfg.InvitationCode == "" {
		return nil, errors.New("invitation code must not be empty")
	}
	return &Service{store: store, digest: digest, invitationCode: cfg.InvitationCode, logger: logger}, nil
}

// Register creates an administrator account. Validation happens before any
// storage call; a duplicate username surfaces as ErrUsernameTaken.
func (s *Service) Register(ctx context.Context, username, password, confirmPassword, invitationCode string) error {
	if !ConstantTimeCompare(invitationCode, s.invitationCode) {
		return ErrInvalidInvitationCode
	}
	if password != confirmPassword {
		return ErrPasswordMismatch
	}
	if strings.TrimSpace(username) == "" {
		return ErrEmptyUsername
	}

	err := s.store.CreateUser(ctx, username, s.digest.Sum(password), RoleAdministrator)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateUsername) {
			return ErrUsernameTaken
		}
		s.logger.Warnw("register failed", "username", username, "err", err)
		return fmt.Errorf("register: %w", err)
	}
	s.logger.Infow("user registered", "username", username)
	return nil
}

// Login returns the matching user. Unknown user and wrong password both
// yield ErrInvalidCredentials so usernames cannot be enumerated.
func (s *Service) Login(ctx context.Context, username, password string) (*entity.User, error) {
	if username == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := s.store.FindUser(ctx, username, s.digest.Sum(password))
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if u == nil {
		s.logger.Debugw("login rejected", "username", username)
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// ConstantTimeCompare helper for shared secrets.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
