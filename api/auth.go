package api

import (
	"encoding/json"
	"net/http"

	"github.com/everestpanel/billing-backend/api/apicommon"
	"github.com/everestpanel/billing-backend/db"
	"github.com/everestpanel/billing-backend/errors"
	"github.com/everestpanel/billing-backend/internal"
)

// authLoginHandler godoc
// @Summary Login to get a JWT token
// @Description Authenticate a user and get a JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body apicommon.LoginRequest true "Login credentials"
// @Success 200 {object} apicommon.LoginResponse
// @Failure 400 {object} errors.Error
// @Failure 401 {object} errors.Error
// @Router /auth/login [post]
func (a *API) authLoginHandler(w http.ResponseWriter, r *http.Request) {
	// get the login info from the request body
	loginInfo := &apicommon.LoginRequest{}
	if err := json.NewDecoder(r.Body).Decode(loginInfo); err != nil {
		errors.ErrMalformedBody.Write(w)
		return
	}
	// get the user information from the database by email
	user, err := a.db.UserByEmail(loginInfo.Email)
	if err != nil {
		if err == db.ErrNotFound {
			errors.ErrUnauthorized.Write(w)
			return
		}
		errors.ErrGenericInternalServerError.Write(w)
		return
	}
	// check the password
	if pass := internal.HexHashPassword(passwordSalt, loginInfo.Password); pass != user.Password {
		errors.ErrUnauthorized.Write(w)
		return
	}
	// generate a new token with the user email as the subject
	res, err := a.buildLoginResponse(loginInfo.Email)
	if err != nil {
		errors.ErrGenericInternalServerError.Write(w)
		return
	}
	// send the token back to the user
	apicommon.HTTPWriteJSON(w, res)
}

// refreshTokenHandler godoc
// @Summary Refresh JWT token
// @Description Refresh the JWT token for an authenticated user
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} apicommon.LoginResponse
// @Failure 401 {object} errors.Error
// @Router /auth/refresh [post]
func (a *API) refreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	// get the user from the request context
	user, ok := apicommon.UserFromContext(r.Context())
	if !ok {
		errors.ErrUnauthorized.Write(w)
		return
	}
	// generate a new token with the user email as the subject
	res, err := a.buildLoginResponse(user.Email)
	if err != nil {
		errors.ErrGenericInternalServerError.Write(w)
		return
	}
	// send the token back to the user
	apicommon.HTTPWriteJSON(w, res)
}

// registerHandler godoc
// @Summary Register a new user
// @Description Create a new user account
// @Tags users
// @Accept json
// @Produce json
// @Param request body apicommon.RegisterRequest true "Registration data"
// @Success 200 {string} string "OK"
// @Failure 400 {object} errors.Error
// @Failure 409 {object} errors.Error "Email already registered"
// @Router /users [post]
func (a *API) registerHandler(w http.ResponseWriter, r *http.Request) {
	userInfo := &apicommon.RegisterRequest{}
	if err := json.NewDecoder(r.Body).Decode(userInfo); err != nil {
		errors.ErrMalformedBody.Write(w)
		return
	}
	if err := a.validator.Validate(userInfo); err != nil {
		errors.ErrInvalidData.WithErr(err).Write(w)
		return
	}
	// store the new user with the hashed password
	if _, err := a.db.SetUser(&db.User{
		Email:    userInfo.Email,
		Password: internal.HexHashPassword(passwordSalt, userInfo.Password),
	}); err != nil {
		if err == db.ErrDuplicateKey {
			errors.ErrDuplicateConflict.With("email already registered").Write(w)
			return
		}
		if err == db.ErrInvalidData {
			errors.ErrInvalidData.Write(w)
			return
		}
		errors.ErrGenericInternalServerError.Write(w)
		return
	}
	apicommon.HTTPWriteOK(w)
}

// userInfoHandler godoc
// @Summary Get the authenticated user
// @Description Get the account information of the authenticated user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} apicommon.UserInfo
// @Failure 401 {object} errors.Error
// @Router /users/me [get]
func (a *API) userInfoHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := apicommon.UserFromContext(r.Context())
	if !ok {
		errors.ErrUnauthorized.Write(w)
		return
	}
	apicommon.HTTPWriteJSON(w, &apicommon.UserInfo{
		ID:    user.ID,
		Email: user.Email,
		Admin: user.Admin,
	})
}

// userServersHandler godoc
// @Summary List the user's servers
// @Description List the servers owned by the authenticated user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} apicommon.ServersResponse
// @Failure 401 {object} errors.Error
// @Router /users/me/servers [get]
func (a *API) userServersHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := apicommon.UserFromContext(r.Context())
	if !ok {
		errors.ErrUnauthorized.Write(w)
		return
	}
	servers, err := a.db.ServersByUser(user.ID)
	if err != nil {
		errors.ErrInternalStorageError.WithErr(err).Write(w)
		return
	}
	apicommon.HTTPWriteJSON(w, &apicommon.ServersResponse{Servers: servers})
}
