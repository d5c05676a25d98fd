package db

import (
	"fmt"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestSetNode(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	// missing FQDN
	_, err := testDB.SetNode(&Node{Name: "node01"})
	c.Assert(err, qt.Equals, ErrInvalidData)
	// create a new node
	id, err := testDB.SetNode(&Node{
		Name:       "node01",
		FQDN:       testNodeFQDN,
		Scheme:     "https",
		Port:       8080,
		Token:      "daemon-token",
		Deployable: true,
		MemoryMB:   32768,
		DiskMB:     512000,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Equals, uint64(1))
	// take the node out of rotation
	node, err := testDB.Node(id)
	c.Assert(err, qt.IsNil)
	node.Deployable = false
	_, err = testDB.SetNode(node)
	c.Assert(err, qt.IsNil)
	node, err = testDB.Node(id)
	c.Assert(err, qt.IsNil)
	c.Assert(node.Deployable, qt.IsFalse)
}

func TestDeployableNodes(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	// no nodes registered
	nodes, err := testDB.DeployableNodes()
	c.Assert(err, qt.IsNil)
	c.Assert(nodes, qt.HasLen, 0)
	for i := 0; i < 4; i++ {
		_, err := testDB.SetNode(&Node{
			Name:       fmt.Sprintf("node%02d", i),
			FQDN:       fmt.Sprintf("node%02d.example.test", i),
			Deployable: i%2 == 0,
		})
		c.Assert(err, qt.IsNil)
	}
	nodes, err = testDB.DeployableNodes()
	c.Assert(err, qt.IsNil)
	c.Assert(nodes, qt.HasLen, 2)
	for _, node := range nodes {
		c.Assert(node.Deployable, qt.IsTrue)
	}
}
