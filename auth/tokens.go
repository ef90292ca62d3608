/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const (
	AccessToken  = "access"
	RefreshToken = "refresh"

	TokenType = "Bearer"
)

var ErrInvalidToken = errors.New("auth: invalid token")

// Tokens is the response of register, login and refresh.
type Tokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"`
}

// Claims are carried by both token kinds; Kind tells them apart.
type Claims struct {
	Kind string `json:"typ"`
	jwt.RegisteredClaims
}

type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// TokenProvider signs and verifies HS256 tokens. Access and refresh tokens
// use separate secrets.
type TokenProvider struct {
	cfg TokenConfig
	now func() time.Time
}

func NewTokenProvider(cfg TokenConfig) (*TokenProvider, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("auth: token secrets must not be empty")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &TokenProvider{cfg: cfg, now: time.Now}, nil
}

// Issue creates an access/refresh pair for subject.
func (p *TokenProvider) Issue(subject string) (Tokens, error) {
	now := p.now()
	access, accessExp, err := p.sign(subject, AccessToken, now)
	if err != nil {
		return Tokens{}, err
	}
	refresh, _, err := p.sign(subject, RefreshToken, now)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    accessExp,
		TokenType:    TokenType,
	}, nil
}

// Verify parses token and checks signature, expiry and kind.
func (p *TokenProvider) Verify(token, kind string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return p.secret(kind), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Kind != kind || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (p *TokenProvider) sign(subject, kind string, now time.Time) (string, time.Time, error) {
	ttl := p.cfg.AccessTTL
	if kind == RefreshToken {
		ttl = p.cfg.RefreshTTL
	}
	exp := now.Add(ttl)
	claims := Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        xid.New().String(),
			Subject:   subject,
			Issuer:    p.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret(kind))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, exp, nil
}

func (p *TokenProvider) secret(kind string) []byte {
	if kind == RefreshToken {
		return []byte(p.cfg.RefreshSecret)
	}
	return []byte(p.cfg.AccessSecret)
}
