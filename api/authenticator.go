package api

import (
	"context"
	"net/http"
	"time"

	"github.com/everestpanel/billing-backend/api/apicommon"
	"github.com/everestpanel/billing-backend/db"
	"github.com/everestpanel/billing-backend/errors"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// authenticator validates the JWT token from the request, loads the user it
// belongs to and stores it in the request context for the next handlers.
func (a *API) authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			errors.ErrUnauthorized.Write(w)
			return
		}
		if token == nil || jwt.Validate(token, jwt.WithRequiredClaim("userId")) != nil {
			errors.ErrUnauthorized.Withf("userId claim not found in JWT token").Write(w)
			return
		}
		// retrieve the userId from the claims and load the user
		email, ok := claims["userId"].(string)
		if !ok {
			errors.ErrUnauthorized.Withf("invalid userId claim").Write(w)
			return
		}
		user, err := a.db.UserByEmail(email)
		if err != nil {
			if err == db.ErrNotFound {
				errors.ErrUnauthorized.Write(w)
				return
			}
			errors.ErrGenericInternalServerError.Write(w)
			return
		}
		// token is authenticated, store the user and pass it through
		ctx := context.WithValue(r.Context(), apicommon.UserMetadataKey, *user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminOnly refuses requests from authenticated users without the admin flag.
func (a *API) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := apicommon.UserFromContext(r.Context())
		if !ok {
			errors.ErrUnauthorized.Write(w)
			return
		}
		if !user.Admin {
			errors.ErrForbidden.Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// buildLoginResponse creates a JWT token for the given user identifier.
// The token is signed with the API secret, following the JWT specification.
// The token is valid for the period specified on jwtExpiration constant.
func (a *API) buildLoginResponse(id string) (*apicommon.LoginResponse, error) {
	j := jwt.New()
	if err := j.Set("userId", id); err != nil {
		return nil, err
	}
	if err := j.Set(jwt.ExpirationKey, time.Now().Add(jwtExpiration).UnixNano()); err != nil {
		return nil, err
	}
	lr := apicommon.LoginResponse{}
	lr.Expirity = time.Now().Add(jwtExpiration)
	jmap, err := j.AsMap(context.Background())
	if err != nil {
		return nil, err
	}
	_, lr.Token, _ = a.auth.Encode(jmap)
	return &lr, nil
}
