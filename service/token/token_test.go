package token

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	subjects map[Role]map[string]bool
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{subjects: map[Role]map[string]bool{
		RoleAdmin:   {},
		RoleDoctor:  {},
		RolePatient: {},
	}}
}

func (d *fakeDirectory) add(role Role, subject string) {
	d.subjects[role][subject] = true
}

func (d *fakeDirectory) remove(role Role, subject string) {
	delete(d.subjects[role], subject)
}

func (d *fakeDirectory) SubjectExists(_ context.Context, role Role, subject string) (bool, error) {
	return d.subjects[role][subject], nil
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	dir := newFakeDirectory()
	dir.add(RolePatient, "jane@example.com")
	auth := NewAuthority([]byte("test-secret"), dir)

	tok, err := auth.Issue("jane@example.com", RolePatient)
	require.NoError(t, err)

	claims, err := auth.Verify(context.Background(), tok, RolePatient)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", claims.Subject)
	assert.Equal(t, RolePatient, claims.Role)
}

func TestVerifyRejectsDeletedSubject(t *testing.T) {
	dir := newFakeDirectory()
	dir.add(RoleDoctor, "doc@example.com")
	auth := NewAuthority([]byte("test-secret"), dir)

	tok, err := auth.Issue("doc@example.com", RoleDoctor)
	require.NoError(t, err)

	dir.remove(RoleDoctor, "doc@example.com")

	_, err = auth.Verify(context.Background(), tok, RoleDoctor)
	assert.ErrorIs(t, err, ErrUnknownSubject)
}

func TestVerifyRoleMismatch(t *testing.T) {
	dir := newFakeDirectory()
	dir.add(RolePatient, "jane@example.com")
	auth := NewAuthority([]byte("test-secret"), dir)

	tok, err := auth.Issue("jane@example.com", RolePatient)
	require.NoError(t, err)

	_, err = auth.Verify(context.Background(), tok, RoleDoctor)
	assert.ErrorIs(t, err, ErrRoleMismatch)
}

func TestVerifyMalformedToken(t *testing.T) {
	auth := NewAuthority([]byte("test-secret"), newFakeDirectory())

	_, err := auth.Verify(context.Background(), "not-a-jwt", RoleAdmin)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyWrongKey(t *testing.T) {
	dir := newFakeDirectory()
	dir.add(RoleAdmin, "root")
	other := NewAuthority([]byte("other-secret"), dir)
	auth := NewAuthority([]byte("test-secret"), dir)

	tok, err := other.Issue("root", RoleAdmin)
	require.NoError(t, err)

	_, err = auth.Verify(context.Background(), tok, RoleAdmin)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyExpiredToken(t *testing.T) {
	dir := newFakeDirectory()
	dir.add(RolePatient, "jane@example.com")
	secret := []byte("test-secret")
	auth := NewAuthority(secret, dir)

	claims := &Claims{
		Role: RolePatient,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "jane@example.com",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-8 * 24 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-24 * time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	_, err = auth.Verify(context.Background(), tok, RolePatient)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyAnyAcceptsEveryRole(t *testing.T) {
	dir := newFakeDirectory()
	dir.add(RoleAdmin, "root")
	auth := NewAuthority([]byte("test-secret"), dir)

	tok, err := auth.Issue("root", RoleAdmin)
	require.NoError(t, err)

	claims, err := auth.VerifyAny(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestParseRole(t *testing.T) {
	for _, s := range []string{"admin", "doctor", "patient"} {
		role, err := ParseRole(s)
		require.NoError(t, err)
		assert.Equal(t, Role(s), role)
	}

	_, err := ParseRole("superuser")
	assert.Error(t, err)
}
