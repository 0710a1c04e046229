package jwt

import (
	"testing"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret-key-min-32-chars-long!!"

func TestGenerateParse_RoundTrip(t *testing.T) {
	tok, err := Generate(secret, "user-1", "magasinier", "bodega-api", 5)
	require.NoError(t, err)

	claims, err := Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)

	role, ok := RoleFromClaims(claims)
	assert.True(t, ok)
	assert.Equal(t, RoleMagasinier, role)
}

func TestParse_FirmaIncorrecta(t *testing.T) {
	tok, err := Generate(secret, "user-1", "admin", "bodega-api", 5)
	require.NoError(t, err)
	_, err = Parse("otro-secreto-distinto-de-32-caracteres", tok)
	assert.Error(t, err)
}

func TestParse_Expirado(t *testing.T) {
	tok, err := Generate(secret, "user-1", "admin", "bodega-api", -1)
	require.NoError(t, err)
	_, err = Parse(secret, tok)
	assert.Error(t, err)
}

func TestParse_SubjectComoUserID(t *testing.T) {
	c := Claims{RegisteredClaims: gojwt.RegisteredClaims{Subject: "kc-42"}}
	tok, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, c).SignedString([]byte(secret))
	require.NoError(t, err)

	claims, err := Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "kc-42", claims.UserID)
}

func TestRoleFromClaims(t *testing.T) {
	cases := []struct {
		name   string
		claims *Claims
		want   Role
		ok     bool
	}{
		{"nil", nil, "", false},
		{"sin roles", &Claims{}, "", false},
		{"claim directo", &Claims{Role: "ADMIN"}, RoleAdmin, true},
		{"realm_access primer ROLE_", &Claims{RealmAccess: &RealmAccess{
			Roles: []string{"offline_access", "ROLE_CHEF_ATELIER", "ROLE_ADMIN"},
		}}, RoleChefAtelier, true},
		{"realm_access sin prefijo", &Claims{RealmAccess: &RealmAccess{
			Roles: []string{"admin", "uma_authorization"},
		}}, "", false},
		{"rol desconocido se ignora", &Claims{RealmAccess: &RealmAccess{
			Roles: []string{"ROLE_VISITANTE", "ROLE_RESPONSABLE_ACHATS"},
		}}, RoleResponsableAchats, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := RoleFromClaims(tc.claims)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
