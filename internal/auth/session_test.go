package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jason-s-yu/blackjack/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpiry(t *testing.T) {
	for _, v := range []string{"", "0", "never"} {
		d, err := ParseExpiry(v)
		require.NoError(t, err)
		assert.Zero(t, d)
	}
	d, err := ParseExpiry("72h")
	require.NoError(t, err)
	assert.Equal(t, 72*time.Hour, d)

	_, err = ParseExpiry("three days")
	assert.Error(t, err)
}

func TestCreateAndAuthenticate(t *testing.T) {
	require.NoError(t, Init("1h"))
	user := uuid.NewString()

	token, err := CreateJWT(user)
	require.NoError(t, err)

	sub, err := AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, user, sub)
}

func TestAuthenticateRejectsOtherKey(t *testing.T) {
	require.NoError(t, Init(""))
	token, err := CreateJWT(uuid.NewString())
	require.NoError(t, err)

	require.NoError(t, Init(""))
	_, err = AuthenticateJWT(token)
	assert.Error(t, err)
}

func TestAuthenticateRejectsExpired(t *testing.T) {
	require.NoError(t, Init(""))
	claims := jwt.MapClaims{"sub": uuid.NewString(), "exp": time.Now().Add(-time.Minute).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(privateKey)
	require.NoError(t, err)

	_, err = AuthenticateJWT(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestAuthenticateRejectsHMAC(t *testing.T) {
	require.NoError(t, Init(""))
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = AuthenticateJWT(token)
	assert.Error(t, err)
}

func TestKeyFilesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	privPath, pubPath, err := GenerateKeyFiles(dir)
	require.NoError(t, err)

	require.NoError(t, Setup(config.Auth{PrivateKeyPath: privPath, PublicKeyPath: pubPath}))
	token, err := CreateJWT("5d7c1c1e-2b52-4a43-9a35-b3e1d1e5d0a1")
	require.NoError(t, err)

	// a verify-only setup accepts tokens minted with the private half
	require.NoError(t, InitFromPath("", pubPath, ""))
	sub, err := AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "5d7c1c1e-2b52-4a43-9a35-b3e1d1e5d0a1", sub)

	_, err = CreateJWT("someone")
	assert.Error(t, err)
}

func TestInitFromPathRejectsWrongSize(t *testing.T) {
	dir := t.TempDir()
	_, pubPath, err := GenerateKeyFiles(dir)
	require.NoError(t, err)

	err = InitFromPath(pubPath, pubPath, "")
	assert.ErrorContains(t, err, "private key")
}

func TestOwnerFromRequest(t *testing.T) {
	require.NoError(t, Init(""))
	owner := uuid.New()
	token, err := CreateJWT(owner.String())
	require.NoError(t, err)
	notUUID, err := CreateJWT("not-a-uuid")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		ok     bool
	}{
		{"valid", "Bearer " + token, true},
		{"lowercase scheme", "bearer " + token, true},
		{"missing", "", false},
		{"wrong scheme", "Basic " + token, false},
		{"empty token", "Bearer ", false},
		{"garbage", "Bearer abc.def.ghi", false},
		{"subject not uuid", "Bearer " + notUUID, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/blackjack", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			got, err := OwnerFromRequest(r)
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, owner, got)
				return
			}
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}
