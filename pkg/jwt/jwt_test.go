package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgjwt "github.com/jhoicas/facturacion-sri/pkg/jwt"
)

const (
	secret    = "test-secret-key-for-unit-tests"
	userID    = "00000000-0000-0000-0000-000000000001"
	companyID = "00000000-0000-0000-0000-000000000002"
	issuer    = "facturacion-sri-test"
)

func TestGenerateAndParse_ConRole(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, userID, companyID, pkgjwt.RoleBodeguero, issuer, 60)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	u, c, role, err := pkgjwt.Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, userID, u)
	assert.Equal(t, companyID, c)
	assert.Equal(t, pkgjwt.RoleBodeguero, role)
}

func TestParse_TokenExpirado(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, userID, companyID, pkgjwt.RoleAdmin, issuer, -1)
	require.NoError(t, err)

	_, _, _, err = pkgjwt.Parse(secret, tok)
	assert.Error(t, err)
}

func TestParse_SecretIncorrecto(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, userID, companyID, pkgjwt.RoleAdmin, issuer, 60)
	require.NoError(t, err)

	_, _, _, err = pkgjwt.Parse("otro-secret-completamente-distinto", tok)
	assert.Error(t, err)
}

func TestParse_SinEmpresa(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, userID, "", pkgjwt.RoleAdmin, issuer, 60)
	require.NoError(t, err)

	_, _, _, err = pkgjwt.Parse(secret, tok)
	assert.Error(t, err)
}

func TestGenerate_SecretVacio(t *testing.T) {
	_, err := pkgjwt.Generate("", userID, companyID, pkgjwt.RoleAdmin, issuer, 60)
	assert.Error(t, err)
}
