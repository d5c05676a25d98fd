package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/everestpanel/billing-backend/api/apicommon"
	"github.com/everestpanel/billing-backend/db"
	"github.com/everestpanel/billing-backend/errors"
	"github.com/everestpanel/billing-backend/internal"
	qt "github.com/frankban/quicktest"
)

// testRegister helper function registers a user through the API.
func testRegister(t *testing.T, email, password string) {
	_, code := testRequest(t, http.MethodPost, "", &apicommon.RegisterRequest{
		Email:    email,
		Password: password,
	}, usersEndpoint)
	if code != http.StatusOK {
		t.Fatalf("failed to register %s: status %d", email, code)
	}
}

// testLogin helper function logs a user in and returns the JWT token.
func testLogin(t *testing.T, email, password string) string {
	resp, code := testRequest(t, http.MethodPost, "", &apicommon.LoginRequest{
		Email:    email,
		Password: password,
	}, authLoginEndpoint)
	if code != http.StatusOK {
		t.Fatalf("failed to login %s: status %d", email, code)
	}
	loginResp := &apicommon.LoginResponse{}
	if err := json.Unmarshal(resp, loginResp); err != nil {
		t.Fatalf("failed to parse login response: %v", err)
	}
	return loginResp.Token
}

// testAdminToken helper function registers an admin user and returns its JWT
// token. The admin flag is set directly in the database.
func testAdminToken(t *testing.T) string {
	testRegister(t, adminEmail, adminPass)
	admin, err := testDB.UserByEmail(adminEmail)
	if err != nil {
		t.Fatalf("failed to load admin user: %v", err)
	}
	admin.Admin = true
	if _, err := testDB.SetUser(admin); err != nil {
		t.Fatalf("failed to promote admin user: %v", err)
	}
	return testLogin(t, adminEmail, adminPass)
}

func TestRegisterHandler(t *testing.T) {
	c := qt.New(t)
	defer func() {
		if err := testDB.Reset(); err != nil {
			c.Logf("error resetting test database: %v", err)
		}
	}()

	// invalid body
	resp, code := testRequest(t, http.MethodPost, "", "invalid body", usersEndpoint)
	c.Assert(code, qt.Equals, http.StatusBadRequest)
	c.Assert(string(resp), qt.Equals, string(mustMarshal(errors.ErrMalformedBody)))

	// password too short
	_, code = testRequest(t, http.MethodPost, "", &apicommon.RegisterRequest{
		Email:    testEmail,
		Password: "short",
	}, usersEndpoint)
	c.Assert(code, qt.Equals, http.StatusBadRequest)

	// valid registration
	_, code = testRequest(t, http.MethodPost, "", &apicommon.RegisterRequest{
		Email:    testEmail,
		Password: testPass,
	}, usersEndpoint)
	c.Assert(code, qt.Equals, http.StatusOK)

	// the stored password is hashed
	user, err := testDB.UserByEmail(testEmail)
	c.Assert(err, qt.IsNil)
	c.Assert(user.Password, qt.Equals, internal.HexHashPassword(passwordSalt, testPass))

	// duplicate email
	_, code = testRequest(t, http.MethodPost, "", &apicommon.RegisterRequest{
		Email:    testEmail,
		Password: testPass,
	}, usersEndpoint)
	c.Assert(code, qt.Equals, http.StatusConflict)
}

func TestLoginHandler(t *testing.T) {
	c := qt.New(t)
	defer func() {
		if err := testDB.Reset(); err != nil {
			c.Logf("error resetting test database: %v", err)
		}
	}()
	testRegister(t, testEmail, testPass)

	// unknown user
	resp, code := testRequest(t, http.MethodPost, "", &apicommon.LoginRequest{
		Email:    "nobody@test.com",
		Password: testPass,
	}, authLoginEndpoint)
	c.Assert(code, qt.Equals, http.StatusUnauthorized)
	c.Assert(string(resp), qt.Equals, string(mustMarshal(errors.ErrUnauthorized)))

	// wrong password
	_, code = testRequest(t, http.MethodPost, "", &apicommon.LoginRequest{
		Email:    testEmail,
		Password: "wrong-password",
	}, authLoginEndpoint)
	c.Assert(code, qt.Equals, http.StatusUnauthorized)

	// valid login returns a usable token
	token := testLogin(t, testEmail, testPass)
	c.Assert(token, qt.Not(qt.Equals), "")

	// the token authenticates requests
	resp, code = testRequest(t, http.MethodGet, token, nil, usersMeEndpoint)
	c.Assert(code, qt.Equals, http.StatusOK)
	userInfo := &apicommon.UserInfo{}
	c.Assert(json.Unmarshal(resp, userInfo), qt.IsNil)
	c.Assert(userInfo.Email, qt.Equals, testEmail)
	c.Assert(userInfo.Admin, qt.IsFalse)
}

func TestRefreshTokenHandler(t *testing.T) {
	c := qt.New(t)
	defer func() {
		if err := testDB.Reset(); err != nil {
			c.Logf("error resetting test database: %v", err)
		}
	}()
	testRegister(t, testEmail, testPass)
	token := testLogin(t, testEmail, testPass)

	// no token
	_, code := testRequest(t, http.MethodPost, "", nil, authRefreshTokenEndpoint)
	c.Assert(code, qt.Equals, http.StatusUnauthorized)

	// valid token gets a fresh one
	resp, code := testRequest(t, http.MethodPost, token, nil, authRefreshTokenEndpoint)
	c.Assert(code, qt.Equals, http.StatusOK)
	refreshed := &apicommon.LoginResponse{}
	c.Assert(json.Unmarshal(resp, refreshed), qt.IsNil)
	c.Assert(refreshed.Token, qt.Not(qt.Equals), "")
}

func TestUserServersHandler(t *testing.T) {
	c := qt.New(t)
	defer func() {
		if err := testDB.Reset(); err != nil {
			c.Logf("error resetting test database: %v", err)
		}
	}()
	testRegister(t, testEmail, testPass)
	token := testLogin(t, testEmail, testPass)
	user, err := testDB.UserByEmail(testEmail)
	c.Assert(err, qt.IsNil)

	// no servers yet
	resp, code := testRequest(t, http.MethodGet, token, nil, usersMeServersEndpoint)
	c.Assert(code, qt.Equals, http.StatusOK)
	servers := &apicommon.ServersResponse{}
	c.Assert(json.Unmarshal(resp, servers), qt.IsNil)
	c.Assert(servers.Servers, qt.HasLen, 0)

	// one server owned by the user, one by someone else
	_, err = testDB.SetServer(&db.Server{
		UUID:      "11111111-1111-1111-1111-111111111111",
		Name:      "mc-1",
		UserID:    user.ID,
		ProductID: 1,
		NodeID:    1,
	})
	c.Assert(err, qt.IsNil)
	_, err = testDB.SetServer(&db.Server{
		UUID:      "22222222-2222-2222-2222-222222222222",
		Name:      "mc-2",
		UserID:    user.ID + 100,
		ProductID: 1,
		NodeID:    1,
	})
	c.Assert(err, qt.IsNil)

	resp, code = testRequest(t, http.MethodGet, token, nil, usersMeServersEndpoint)
	c.Assert(code, qt.Equals, http.StatusOK)
	servers = &apicommon.ServersResponse{}
	c.Assert(json.Unmarshal(resp, servers), qt.IsNil)
	c.Assert(servers.Servers, qt.HasLen, 1)
	c.Assert(servers.Servers[0].Name, qt.Equals, "mc-1")
}
