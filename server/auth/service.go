package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/pbkdf2"

	"github.com/rhythmia/forum-server/server/internal/transport"
	"github.com/rhythmia/forum-server/server/store"
)

const (
	pbkdf2Iterations = 310000
	pbkdf2KeyLength  = 48
	saltLength       = 16
	// base64 length of a 16-byte salt; the stored password field is this
	// prefix followed by the base64 derived key.
	saltEncodedLength = 24

	defaultTokenTTL = 24 * time.Hour
	defaultAvatar   = "https://a.ppy.sh/guest.png"

	usersRoleName = "users"
)

// Claims are the token payload: enough to re-identify the user without a
// store lookup.
type Claims struct {
	ID       string `json:"id"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type Service struct {
	Store    store.API
	Secret   []byte
	TokenTTL time.Duration
}

func (s *Service) ttl() time.Duration {
	if s.TokenTTL > 0 {
		return s.TokenTTL
	}
	return defaultTokenTTL
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Signin verifies the credentials and issues a signed token. Unknown username
// and wrong password return the identical response so account existence does
// not leak.
func (s *Service) Signin(username, password string) transport.Result {
	user, err := s.Store.FindUserByUsername(username)
	if err != nil {
		logrus.WithError(err).Error("signin: user lookup failed")
		return transport.Internal()
	}
	if user == nil {
		return transport.BadRequest("Invalid username or password")
	}

	if !verifyPassword(user.PasswordHash, password) {
		return transport.BadRequest("Invalid username or password")
	}

	user.LastLogin = time.Now().UTC()
	if err := s.Store.SaveUser(user); err != nil {
		logrus.WithError(err).Error("signin: save failed")
		return transport.Internal()
	}

	token, err := s.issueToken(user)
	if err != nil {
		logrus.WithError(err).Error("signin: token issue failed")
		return transport.Internal()
	}

	return transport.OK(tokenResponse{AccessToken: token})
}

// Signup provisions a new account: duplicate checks, key derivation, the
// "users" role, a fresh public id, and a token identical in shape to Signin's.
func (s *Service) Signup(username, email, password string) transport.Result {
	existing, err := s.Store.FindUserByUsernameOrEmail(username, email)
	if err != nil {
		logrus.WithError(err).Error("signup: duplicate check failed")
		return transport.Internal()
	}
	if existing != nil {
		switch {
		case existing.Username == username:
			return transport.Result{Status: http.StatusBadRequest, Data: transport.ErrorBody{Error: "Username already existed in database"}}
		case existing.Email == email:
			return transport.Result{Status: http.StatusBadRequest, Data: transport.ErrorBody{Error: "Email already existed in database"}}
		default:
			return transport.Result{Status: http.StatusBadRequest, Data: transport.ErrorBody{Error: "User existed in database"}}
		}
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		logrus.WithError(err).Error("signup: key derivation failed")
		return transport.Internal()
	}

	role, err := s.Store.FindRoleByName(usersRoleName)
	if err != nil {
		logrus.WithError(err).Error("signup: role lookup failed")
		return transport.Internal()
	}
	if role == nil {
		role = &store.Role{Name: usersRoleName}
		if err := s.Store.InsertRole(role); err != nil {
			logrus.WithError(err).Error("signup: role insert failed")
			return transport.Internal()
		}
	}

	seq, err := s.Store.NextSequence("users")
	if err != nil {
		logrus.WithError(err).Error("signup: sequence allocation failed")
		return transport.Internal()
	}

	now := time.Now().UTC()
	user := &store.User{
		UserID:       seq,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Avatar:       defaultAvatar,
		RoleIDs:      []string{role.ID},
		RegisteredAt: now,
		LastLogin:    now,
	}
	if err := s.Store.InsertUser(user); err != nil {
		logrus.WithError(err).Error("signup: user insert failed")
		return transport.Internal()
	}

	token, err := s.issueToken(user)
	if err != nil {
		logrus.WithError(err).Error("signup: token issue failed")
		return transport.Internal()
	}

	return transport.OK(tokenResponse{AccessToken: token})
}

func (s *Service) issueToken(u *store.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		ID:       u.ID,
		UserID:   u.UserID,
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl())),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.Secret)
}

func (s *Service) parseToken(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	encodedSalt := base64.StdEncoding.EncodeToString(salt)
	key := pbkdf2.Key([]byte(password), []byte(encodedSalt), pbkdf2Iterations, pbkdf2KeyLength, sha256.New)
	return encodedSalt + base64.StdEncoding.EncodeToString(key), nil
}

func verifyPassword(stored, password string) bool {
	if len(stored) <= saltEncodedLength {
		return false
	}
	salt := stored[:saltEncodedLength]
	expected, err := base64.StdEncoding.DecodeString(stored[saltEncodedLength:])
	if err != nil {
		return false
	}
	computed := pbkdf2.Key([]byte(password), []byte(salt), pbkdf2Iterations, pbkdf2KeyLength, sha256.New)
	return subtle.ConstantTimeCompare(expected, computed) == 1
}
