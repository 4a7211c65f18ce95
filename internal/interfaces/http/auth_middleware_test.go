package http_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	pkgjwt "github.com/jhoicas/facturacion-sri/pkg/jwt"
)

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testUserID    = "00000000-0000-0000-0000-000000000001"
	testCompanyID = "00000000-0000-0000-0000-000000000002"
	testIssuer    = "facturacion-sri-test"
	testExpMin    = 60
)

func tokenForRole(t *testing.T, role string) string {
	t.Helper()
	return bearer(t, testCompanyID, role)
}

func bearer(t *testing.T, companyID, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, companyID, role, testIssuer, testExpMin)
	require.NoError(t, err)
	return "Bearer " + tok
}

// Cada grupo de rutas deja pasar solo a sus roles. Un rol permitido llega al handler, que
// responde según el recurso (404, 400...), nunca 401 ni 403.
func TestAuth_RolesPorRuta(t *testing.T) {
	f := newAPI(t)
	empty := map[string]any{}

	cases := []struct {
		name    string
		method  string
		path    string
		role    string
		body    any
		allowed bool
	}{
		{"vendedor consulta nota de crédito", http.MethodGet, "/api/credit-notes/nc-1", pkgjwt.RoleVendedor, nil, true},
		{"vendedor emite nota de crédito", http.MethodPost, "/api/credit-notes/nc-1/issue", pkgjwt.RoleVendedor, nil, true},
		{"vendedor consulta cartera", http.MethodGet, "/api/receivables/invoice/f-1", pkgjwt.RoleVendedor, nil, true},
		{"vendedor registra cliente", http.MethodPost, "/api/customers", pkgjwt.RoleVendedor, empty, true},
		{"vendedor lee producto", http.MethodGet, "/api/products/p-1", pkgjwt.RoleVendedor, nil, true},
		{"bodeguero ingresa lote", http.MethodPost, "/api/products/p-1/lots", pkgjwt.RoleBodeguero, empty, true},
		{"bodeguero ajusta stock", http.MethodPost, "/api/products/p-1/stock", pkgjwt.RoleBodeguero, empty, true},
		{"admin registra cobro", http.MethodPost, "/api/receivables/r-1/payments", pkgjwt.RoleAdmin, empty, true},
		{"admin ingresa lote", http.MethodPost, "/api/products/p-1/lots", pkgjwt.RoleAdmin, empty, true},

		{"bodeguero no ve notas de crédito", http.MethodGet, "/api/credit-notes/nc-1", pkgjwt.RoleBodeguero, nil, false},
		{"bodeguero no consulta autorización", http.MethodGet, "/api/invoices/f-1/status", pkgjwt.RoleBodeguero, nil, false},
		{"bodeguero no registra cobros", http.MethodPost, "/api/receivables/r-1/payments", pkgjwt.RoleBodeguero, empty, false},
		{"vendedor no ingresa lotes", http.MethodPost, "/api/products/p-1/lots", pkgjwt.RoleVendedor, empty, false},
		{"vendedor no ajusta stock", http.MethodPost, "/api/products/p-1/stock", pkgjwt.RoleVendedor, empty, false},
		{"vendedor no registra emisores", http.MethodPost, "/api/companies", pkgjwt.RoleVendedor, empty, false},
		{"bodeguero no lee emisores", http.MethodGet, "/api/companies/" + testCompanyID, pkgjwt.RoleBodeguero, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := f.call(t, tc.method, tc.path, tc.role, tc.body)
			if tc.allowed {
				assert.NotEqual(t, http.StatusUnauthorized, resp.StatusCode, string(body))
				assert.NotEqual(t, http.StatusForbidden, resp.StatusCode, string(body))
				return
			}
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
			var e dto.ErrorResponse
			require.NoError(t, json.Unmarshal(body, &e))
			assert.Equal(t, "FORBIDDEN", e.Code)
		})
	}
}

func TestAuth_CredencialesRechazadas(t *testing.T) {
	f := newAPI(t)
	otherSecret, err := pkgjwt.Generate("otro-secreto", testUserID, testCompanyID, pkgjwt.RoleAdmin, testIssuer, testExpMin)
	require.NoError(t, err)
	noCompany, err := pkgjwt.Generate(testJWTSecret, testUserID, "", pkgjwt.RoleVendedor, testIssuer, testExpMin)
	require.NoError(t, err)

	cases := []struct {
		name string
		auth string
		code string
	}{
		{"sin header", "", "MISSING_TOKEN"},
		{"esquema basic", "Basic dXNlcjpwYXNz", "INVALID_TOKEN"},
		{"token malformado", "Bearer token.invalido.aqui", "INVALID_TOKEN"},
		{"firmado con otro secreto", "Bearer " + otherSecret, "INVALID_TOKEN"},
		{"token sin empresa", "Bearer " + noCompany, "INVALID_TOKEN"},
		{"token sin rol", bearer(t, testCompanyID, ""), "MISSING_ROLE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := f.send(t, http.MethodGet, "/api/credit-notes/nc-1", tc.auth, nil)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			var e dto.ErrorResponse
			require.NoError(t, json.Unmarshal(body, &e))
			assert.Equal(t, tc.code, e.Code)
		})
	}
}

// La empresa del token acota los recursos: un producto de otro emisor no se expone.
func TestAuth_EmpresaDelTokenAcotaRecursos(t *testing.T) {
	f := newAPI(t)
	resp, body := f.call(t, http.MethodPost, "/api/products", pkgjwt.RoleBodeguero, map[string]any{
		"code": "P-010", "name": "Arroz 2kg", "price": "2.50", "tax_rate": "0",
		"tracks_inventory": true, "initial_stock": "3",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var product dto.ProductResponse
	require.NoError(t, json.Unmarshal(body, &product))
	assert.Equal(t, testCompanyID, product.CompanyID)

	resp, _ = f.send(t, http.MethodGet, "/api/products/"+product.ID, bearer(t, "otra-empresa", pkgjwt.RoleBodeguero), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = f.call(t, http.MethodGet, "/api/products/"+product.ID, pkgjwt.RoleVendedor, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
