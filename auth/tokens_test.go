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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T) *TokenProvider {
	t.Helper()
	p, err := NewTokenProvider(TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)
	return p
}

func TestIssueAndVerify(t *testing.T) {
	p := newTestProvider(t)
	tokens, err := p.Issue("user-1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tokens.TokenType)
	assert.WithinDuration(t, time.Now().Add(time.Minute), tokens.ExpiresAt, 5*time.Second)

	claims, err := p.Verify(tokens.AccessToken, AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.NotEmpty(t, claims.ID)

	claims, err = p.Verify(tokens.RefreshToken, RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, RefreshToken, claims.Kind)
}

func TestVerifyRejectsWrongKind(t *testing.T) {
	p := newTestProvider(t)
	tokens, err := p.Issue("user-1")
	require.NoError(t, err)

	_, err = p.Verify(tokens.RefreshToken, AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = p.Verify(tokens.AccessToken, RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = p.Verify("not-a-token", AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	p := newTestProvider(t)
	p.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }
	tokens, err := p.Issue("user-1")
	require.NoError(t, err)

	p.now = time.Now
	_, err = p.Verify(tokens.AccessToken, AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = p.Verify(tokens.RefreshToken, RefreshToken)
	assert.NoError(t, err)
}

func TestNewTokenProviderRequiresSecrets(t *testing.T) {
	_, err := NewTokenProvider(TokenConfig{AccessSecret: "x"})
	assert.Error(t, err)
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(4)
	hashed, err := h.Hash("p@ss")
	require.NoError(t, err)
	assert.NotEqual(t, "p@ss", hashed)
	assert.True(t, h.Compare(hashed, "p@ss"))
	assert.False(t, h.Compare(hashed, "other"))
}
