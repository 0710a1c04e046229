package jwt

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role rol funcional del usuario dentro del almacén.
type Role string

const (
	RoleAdmin             Role = "admin"
	RoleMagasinier        Role = "magasinier"
	RoleResponsableAchats Role = "responsable_achats"
	RoleChefAtelier       Role = "chef_atelier"
)

// RealmAccess bloque de roles emitido por el proveedor de identidad.
type RealmAccess struct {
	Roles []string `json:"roles"`
}

// Claims incluye los claims estándar JWT más los campos propios de la aplicación.
// Role es el claim directo; RealmAccess llega en tokens del proveedor de identidad externo.
type Claims struct {
	jwt.RegisteredClaims
	UserID      string       `json:"user_id"`
	Role        string       `json:"role,omitempty"`
	RealmAccess *RealmAccess `json:"realm_access,omitempty"`
}

// RoleFromClaims mapea claims a un Role. ok=false significa "sin rol": ningún claim reconocible.
// El claim directo tiene prioridad; si no, se toma el primer rol de realm_access con prefijo ROLE_.
func RoleFromClaims(c *Claims) (Role, bool) {
	if c == nil {
		return "", false
	}
	if r, ok := parseRole(c.Role); ok {
		return r, true
	}
	if c.RealmAccess == nil {
		return "", false
	}
	for _, raw := range c.RealmAccess.Roles {
		name, found := strings.CutPrefix(raw, "ROLE_")
		if !found {
			continue
		}
		if r, ok := parseRole(name); ok {
			return r, true
		}
	}
	return "", false
}

func parseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleMagasinier, RoleResponsableAchats, RoleChefAtelier:
		return r, true
	}
	return "", false
}

// Generate genera un token JWT firmado que incluye userID y role.
func Generate(secret, userID, role, issuer string, expMinutes int) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt: secret vacío")
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expMinutes) * time.Minute)),
		},
		UserID: userID,
		Role:   role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Parse valida el token y devuelve sus claims.
// Retorna error si el token es inválido, expirado o tiene firma incorrecta.
func Parse(secret, tokenString string) (*Claims, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt: secret vacío")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de firma inesperado: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("claims inválidos")
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	return claims, nil
}
