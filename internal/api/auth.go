package api

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

const authRealm = `Basic realm="lampnode API"`

var (
	errBadCredentials = errors.New("invalid credentials format")
	errBadScheme      = errors.New("invalid authentication type")
)

// basicAuthMiddleware enforces HTTP basic auth on operations that declare a
// security requirement. Browsers cannot set headers on EventSource, so the
// base64 credentials are also accepted in the auth query parameter.
func basicAuthMiddleware(api huma.API, username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if op := ctx.Operation(); op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		deny := func(msg string, errs ...error) {
			ctx.SetHeader("WWW-Authenticate", authRealm)
			huma.WriteErr(api, ctx, http.StatusUnauthorized, msg, errs...)
		}

		user, pass, err := credentials(ctx)
		switch {
		case errors.Is(err, errBadCredentials):
			deny("Invalid credentials format", err)
		case errors.Is(err, errBadScheme):
			deny("Invalid authentication type")
		case user == "" && pass == "":
			deny("Authentication required")
		case user != username || pass != password:
			deny("Invalid credentials")
		default:
			next(ctx)
		}
	}
}

// credentials extracts user and password from the Authorization header or,
// failing that, the auth query parameter. Both empty means none were sent.
func credentials(ctx huma.Context) (string, string, error) {
	encoded := ctx.Query("auth")
	if header := ctx.Header("Authorization"); header != "" {
		const prefix = "Basic "
		if !strings.HasPrefix(header, prefix) {
			return "", "", errBadScheme
		}
		encoded = header[len(prefix):]
	}
	if encoded == "" {
		return "", "", nil
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", errBadCredentials
	}
	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return "", "", errBadCredentials
	}
	return user, pass, nil
}
