package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAuth(t *testing.T) {
	tests := []struct {
		name     string
		password string
		keyFile  string
		want     Auth
	}{
		{name: "neither", want: NoAuth{}},
		{name: "password", password: "pw", want: PasswordAuth{Password: "pw"}},
		{name: "key file", keyFile: "id_ed25519", want: KeyFileAuth{Path: "id_ed25519"}},
		{name: "both prefers key file", password: "pw", keyFile: "id_rsa", want: KeyFileAuth{Path: "id_rsa"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewAuth(tt.password, tt.keyFile))
		})
	}
}

func TestAccount_SecretAccessors(t *testing.T) {
	a := Account{Auth: PasswordAuth{Password: "pw"}}
	assert.Equal(t, "pw", a.Password())
	assert.Empty(t, a.PrivateKeyFile())

	a.Auth = KeyFileAuth{Path: "~/.ssh/id"}
	assert.Empty(t, a.Password())
	assert.Equal(t, "~/.ssh/id", a.PrivateKeyFile())

	a.Auth = nil
	assert.Empty(t, a.Password())
	assert.Empty(t, a.PrivateKeyFile())
}

func TestTransformSecret_KeepsVariant(t *testing.T) {
	upper := func(s string) (string, error) { return strings.ToUpper(s), nil }

	got, err := TransformSecret(PasswordAuth{Password: "pw"}, upper)
	require.NoError(t, err)
	assert.Equal(t, PasswordAuth{Password: "PW"}, got)

	got, err = TransformSecret(KeyFileAuth{Path: "id"}, upper)
	require.NoError(t, err)
	assert.Equal(t, KeyFileAuth{Path: "ID"}, got)
}

func TestTransformSecret_NoAuthSkipsFn(t *testing.T) {
	called := false
	fn := func(s string) (string, error) {
		called = true
		return s, nil
	}

	got, err := TransformSecret(NoAuth{}, fn)
	require.NoError(t, err)
	assert.Equal(t, NoAuth{}, got)

	got, err = TransformSecret(nil, fn)
	require.NoError(t, err)
	assert.Equal(t, NoAuth{}, got)

	assert.False(t, called)
}

func TestTransformSecret_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := TransformSecret(PasswordAuth{Password: "pw"}, func(string) (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
}
