package api

import (
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("gateway-secret"))
	require.NoError(t, err)
	return raw
}

func TestCustomerID(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"Anonymous", nil, ""},
		{"Header", map[string]string{"X-Customer-Id": " alice "}, "alice"},
		{"BearerSub", map[string]string{"Authorization": "Bearer " + signedToken(t, jwt.MapClaims{"sub": "bob"})}, "bob"},
		{"LowercaseScheme", map[string]string{"Authorization": "bearer " + signedToken(t, jwt.MapClaims{"sub": "bob"})}, "bob"},
		{"TokenWinsOverHeader", map[string]string{
			"Authorization": "Bearer " + signedToken(t, jwt.MapClaims{"sub": "bob"}),
			"X-Customer-Id": "alice",
		}, "bob"},
		{"TokenWithoutSub", map[string]string{"Authorization": "Bearer " + signedToken(t, jwt.MapClaims{"scope": "x"})}, ""},
		{"MalformedToken", map[string]string{"Authorization": "Bearer not-a-jwt", "X-Customer-Id": "alice"}, ""},
		{"OtherScheme", map[string]string{"Authorization": "Basic YWxpY2U6c2VjcmV0", "X-Customer-Id": "alice"}, "alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/v1/reservations/query", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, customerID(r))
		})
	}
}
