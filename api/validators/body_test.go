package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
)

type loginBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func decode(t *testing.T, body string) (loginBody, error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	var dest loginBody
	return dest, DecodeJSONBody(req, &dest)
}

func TestDecodeJSONBodyAcceptsValidObject(t *testing.T) {
	got, err := decode(t, `{"email":"baker@example.com","password":"sourdough"}`)
	require.NoError(t, err)
	require.Equal(t, "baker@example.com", got.Email)
}

func TestDecodeJSONBodyReportsFieldsByJSONName(t *testing.T) {
	_, err := decode(t, `{"email":"not-an-email","password":"abc"}`)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	require.Equal(t, "must be a valid email", details["email"])
	require.Equal(t, "must be at least 6", details["password"])
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	for name, body := range map[string]string{
		"unknown field": `{"email":"a@b.co","password":"secret1","admin":true}`,
		"trailing data": `{"email":"a@b.co","password":"secret1"} {}`,
		"not json":      `email=a@b.co`,
		"too large":     `{"email":"` + strings.Repeat("a", maxBodyBytes) + `"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := decode(t, body)
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}
