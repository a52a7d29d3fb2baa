// Copyright 2025 harmonia Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"strconv"
	"strings"
	"time"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/juju/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/harmonia-fm/harmonia/config"
)

// TokenManager issues and validates HS256 access tokens.
type TokenManager struct {
	secret []byte
	expiry time.Duration
}

func NewTokenManager(cfg config.AuthConfig) *TokenManager {
	return &TokenManager{
		secret: []byte(cfg.JWTSecret),
		expiry: cfg.TokenExpiry,
	}
}

// IssueToken signs a token whose subject is the user id.
func (m *TokenManager) IssueToken(userID int32) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(int64(userID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", errors.Trace(err)
	}
	return signed, nil
}

// ParseToken validates a signed token and returns the user id.
func (m *TokenManager) ParseToken(signed string) (int32, error) {
	claims := new(jwt.RegisteredClaims)
	token, err := jwt.ParseWithClaims(signed, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.NotValidf("signing method %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return 0, errors.Trace(err)
	}
	if !token.Valid {
		return 0, errors.Unauthorizedf("token invalid")
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 32)
	if err != nil {
		return 0, errors.NotValidf("token subject %q", claims.Subject)
	}
	return int32(userID), nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Trace(err)
	}
	return string(hash), nil
}

func verifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// currentUser resolves the bearer token of a request. On failure an
// unauthorized response has already been written.
func (s *RestServer) currentUser(request *restful.Request, response *restful.Response) (int32, bool) {
	header := request.HeaderParameter("Authorization")
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		Unauthorized(response, errors.Unauthorizedf("missing bearer token"))
		return 0, false
	}
	token := strings.TrimSpace(header[len("bearer "):])
	userID, err := s.Tokens.ParseToken(token)
	if err != nil {
		Unauthorized(response, errors.Unauthorizedf("token invalid or expired"))
		return 0, false
	}
	return userID, true
}
