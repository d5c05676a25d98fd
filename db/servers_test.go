package db

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
)

func TestSetServer(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	// updating a non existing server is refused
	_, err := testDB.SetServer(&Server{ID: 100, Name: "srv"})
	c.Assert(err, qt.Equals, ErrInvalidData)
	// create a new server
	id, err := testDB.SetServer(&Server{
		UUID:             uuid.NewString(),
		Name:             "minecraft-01",
		UserID:           1,
		ProductID:        1,
		NodeID:           1,
		DaysUntilRenewal: RenewalDays,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Equals, uint64(1))
	// update the existing server
	server, err := testDB.Server(id)
	c.Assert(err, qt.IsNil)
	server.Suspended = true
	_, err = testDB.SetServer(server)
	c.Assert(err, qt.IsNil)
	server, err = testDB.Server(id)
	c.Assert(err, qt.IsNil)
	c.Assert(server.Suspended, qt.IsTrue)
	c.Assert(server.Name, qt.Equals, "minecraft-01")
}

func TestServersByUser(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	for i := 0; i < 4; i++ {
		_, err := testDB.SetServer(&Server{
			UUID:   uuid.NewString(),
			Name:   "srv",
			UserID: uint64(i%2 + 1),
		})
		c.Assert(err, qt.IsNil)
	}
	servers, err := testDB.ServersByUser(1)
	c.Assert(err, qt.IsNil)
	c.Assert(servers, qt.HasLen, 2)
	servers, err = testDB.ServersByUser(3)
	c.Assert(err, qt.IsNil)
	c.Assert(servers, qt.HasLen, 0)
}

func TestRenewServer(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	// invalid day count
	_, err := testDB.RenewServer(1, 0)
	c.Assert(err, qt.Equals, ErrInvalidData)
	// missing server
	_, err = testDB.RenewServer(1, RenewalDays)
	c.Assert(err, qt.Equals, ErrNotFound)
	// create a suspended server with 5 days left
	id, err := testDB.SetServer(&Server{
		UUID:             uuid.NewString(),
		Name:             "minecraft-01",
		UserID:           1,
		DaysUntilRenewal: 5,
		Suspended:        true,
	})
	c.Assert(err, qt.IsNil)
	// renewal extends the window and clears the suspension
	server, err := testDB.RenewServer(id, RenewalDays)
	c.Assert(err, qt.IsNil)
	c.Assert(server.DaysUntilRenewal, qt.Equals, 5+RenewalDays)
	c.Assert(server.Suspended, qt.IsFalse)
	// a second renewal stacks on top
	server, err = testDB.RenewServer(id, RenewalDays)
	c.Assert(err, qt.IsNil)
	c.Assert(server.DaysUntilRenewal, qt.Equals, 5+2*RenewalDays)
}
