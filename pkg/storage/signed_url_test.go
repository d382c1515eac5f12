package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("user-1", "flashcards/deck.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	owner, path, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "user-1", owner)
	require.Equal(t, "flashcards/deck.csv", path)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	now := time.Now()
	signer.now = func() time.Time { return now }
	token, _, err := signer.Generate("user-1", "flashcards/deck.csv")
	require.NoError(t, err)

	signer.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, _, _, err = signer.Parse(token, false)
	require.ErrorIs(t, err, ErrTokenExpired)

	owner, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "user-1", owner)
	require.Equal(t, "flashcards/deck.csv", path)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("user-1", "flashcards/deck.csv")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "user-2"
	_, _, _, err = signer.Parse(strings.Join(parts, "."), false)
	require.ErrorIs(t, err, ErrInvalidToken)

	other := NewSignedURLSigner("other-secret", time.Hour)
	_, _, _, err = other.Parse(token, false)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, _, _, err = signer.Parse("garbage", false)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestSignedURLSignerRequiresSecret(t *testing.T) {
	_, _, err := NewSignedURLSigner("", time.Hour).Generate("user-1", "a.csv")
	require.Error(t, err)
}
