package provisioner

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/everestpanel/billing-backend/db"
	"github.com/everestpanel/billing-backend/internal"
	"github.com/everestpanel/billing-backend/test"
	"github.com/everestpanel/billing-backend/wings"
	qt "github.com/frankban/quicktest"
)

var testDB *db.MongoStorage

func TestMain(m *testing.M) {
	ctx := context.Background()
	dbContainer, err := test.StartMongoContainer(ctx)
	if err != nil {
		panic(fmt.Sprintf("failed to start MongoDB container: %v", err))
	}
	mongoURI, err := dbContainer.ConnectionString(ctx)
	if err != nil {
		panic(fmt.Sprintf("failed to get MongoDB connection string: %v", err))
	}
	testDB, err = db.New(mongoURI, test.RandomDatabaseName())
	if err != nil {
		panic(fmt.Sprintf("failed to create new MongoDB connection: %v", err))
	}
	code := m.Run()
	testDB.Close()
	if err := dbContainer.Terminate(ctx); err != nil {
		panic(fmt.Sprintf("failed to stop MongoDB container: %v", err))
	}
	os.Exit(code)
}

// fakeDaemon simulates Wings daemons for node selection and installs.
type fakeDaemon struct {
	// free resources per node ID; missing nodes are unreachable
	free       map[uint64]wings.Utilization
	failCreate bool
	created    []*wings.ServerCreateRequest
}

func (f *fakeDaemon) Utilization(_ context.Context, node *db.Node) (*wings.Utilization, error) {
	util, ok := f.free[node.ID]
	if !ok {
		return nil, fmt.Errorf("node %d unreachable", node.ID)
	}
	return &util, nil
}

func (f *fakeDaemon) CreateServer(_ context.Context, _ *db.Node, req *wings.ServerCreateRequest) error {
	if f.failCreate {
		return fmt.Errorf("install failed")
	}
	f.created = append(f.created, req)
	return nil
}

func testFixtures(c *qt.C) (*db.Product, *db.Order) {
	productID, err := testDB.SetProduct(&db.Product{
		Name:  "Basic Plan",
		Price: internal.AmountFromFloat(9.99),
		Limits: db.ProductLimits{
			CPU:    100,
			Memory: 2048,
			Disk:   10240,
		},
		EggID:   5,
		Visible: true,
	})
	c.Assert(err, qt.IsNil)
	product, err := testDB.Product(productID)
	c.Assert(err, qt.IsNil)
	orderID, err := testDB.SetOrder(&db.Order{
		Name:            "order-abc123",
		UserID:          1,
		Total:           product.Price,
		Currency:        "CAD",
		Status:          db.OrderStatusPending,
		ProductID:       productID,
		PaymentIntentID: "pi_test_123",
	})
	c.Assert(err, qt.IsNil)
	order, err := testDB.Order(orderID)
	c.Assert(err, qt.IsNil)
	return product, order
}

func gigabytes(n uint64) uint64 { return n << 30 }

func TestProvision(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	_, order := testFixtures(c)

	// node 1 is full, node 2 is unreachable, node 3 fits
	for i := 1; i <= 3; i++ {
		_, err := testDB.SetNode(&db.Node{
			Name:       fmt.Sprintf("node%02d", i),
			FQDN:       fmt.Sprintf("node%02d.example.test", i),
			Deployable: true,
		})
		c.Assert(err, qt.IsNil)
	}
	daemon := &fakeDaemon{free: map[uint64]wings.Utilization{
		1: {MemoryTotal: gigabytes(4), MemoryUsed: gigabytes(4), DiskTotal: gigabytes(100), DiskUsed: 0},
		3: {MemoryTotal: gigabytes(32), MemoryUsed: gigabytes(8), DiskTotal: gigabytes(500), DiskUsed: gigabytes(100)},
	}}

	server, err := New(testDB, daemon).Provision(context.Background(), order, map[string]string{"SERVER_JARFILE": "server.jar"})
	c.Assert(err, qt.IsNil)
	c.Assert(server.NodeID, qt.Equals, uint64(3))
	c.Assert(server.UserID, qt.Equals, order.UserID)
	c.Assert(server.DaysUntilRenewal, qt.Equals, db.RenewalDays)

	// the daemon received the install with the checkout variables
	c.Assert(daemon.created, qt.HasLen, 1)
	c.Assert(daemon.created[0].UUID, qt.Equals, server.UUID)
	c.Assert(daemon.created[0].MemoryMB, qt.Equals, 2048)
	c.Assert(daemon.created[0].Environment["SERVER_JARFILE"], qt.Equals, "server.jar")

	// the record is persisted
	stored, err := testDB.Server(server.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.UUID, qt.Equals, server.UUID)
}

func TestProvisionNoDeployableNode(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	_, order := testFixtures(c)

	// the only node is out of rotation
	_, err := testDB.SetNode(&db.Node{Name: "node01", FQDN: "node01.example.test", Deployable: false})
	c.Assert(err, qt.IsNil)

	_, err = New(testDB, &fakeDaemon{}).Provision(context.Background(), order, nil)
	c.Assert(err, qt.ErrorIs, ErrNoDeployableNode)

	// a deployment exception was recorded for admin review
	exceptions, err := testDB.BillingExceptions(db.ExceptionTypeDeployment)
	c.Assert(err, qt.IsNil)
	c.Assert(exceptions, qt.HasLen, 1)
	c.Assert(exceptions[0].OrderID, qt.Equals, order.ID)
}

func TestProvisionDaemonFailure(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	_, order := testFixtures(c)

	_, err := testDB.SetNode(&db.Node{Name: "node01", FQDN: "node01.example.test", Deployable: true})
	c.Assert(err, qt.IsNil)
	daemon := &fakeDaemon{
		free:       map[uint64]wings.Utilization{1: {MemoryTotal: gigabytes(32), DiskTotal: gigabytes(500)}},
		failCreate: true,
	}

	_, err = New(testDB, daemon).Provision(context.Background(), order, nil)
	c.Assert(err, qt.IsNotNil)
	c.Assert(err.Error(), qt.Contains, "daemon install failed")

	// no ghost server record survives the failed install
	servers, err := testDB.ServersByUser(order.UserID)
	c.Assert(err, qt.IsNil)
	c.Assert(servers, qt.HasLen, 0)
	exceptions, err := testDB.BillingExceptions(db.ExceptionTypeDeployment)
	c.Assert(err, qt.IsNil)
	c.Assert(exceptions, qt.HasLen, 1)
}
