// Package provisioner deploys paid orders: it picks a node with enough free
// resources, records the server and asks the node's daemon to install it.
package provisioner

import (
	"context"
	"errors"
	"fmt"

	"github.com/everestpanel/billing-backend/db"
	"github.com/everestpanel/billing-backend/internal/log"
	"github.com/everestpanel/billing-backend/wings"
	"github.com/google/uuid"
)

// ErrNoDeployableNode is returned when no registered node can take the
// server.
var ErrNoDeployableNode = errors.New("no deployable node with enough free resources")

// Daemon is the subset of the Wings client the provisioner needs. Tests
// substitute a fake.
type Daemon interface {
	Utilization(ctx context.Context, node *db.Node) (*wings.Utilization, error)
	CreateServer(ctx context.Context, node *db.Node, req *wings.ServerCreateRequest) error
}

// Service is the server provisioning service.
type Service struct {
	db     *db.MongoStorage
	daemon Daemon
}

// New creates the provisioning service.
func New(database *db.MongoStorage, daemon Daemon) *Service {
	return &Service{db: database, daemon: daemon}
}

// Provision deploys the order's product onto a node. It records a deployment
// billing exception before failing when no node can take the server, so the
// paid-but-undeployed order is visible to admins.
func (s *Service) Provision(ctx context.Context, order *db.Order, variables map[string]string) (*db.Server, error) {
	product, err := s.db.Product(order.ProductID)
	if err != nil {
		return nil, fmt.Errorf("could not load product %d: %w", order.ProductID, err)
	}

	node, err := s.selectNode(ctx, product)
	if err != nil {
		s.recordDeploymentException(order, fmt.Sprintf(
			"order %d paid but no node can host %q (%d MB memory, %d MB disk)",
			order.ID, product.Name, product.Limits.Memory, product.Limits.Disk))
		return nil, err
	}

	server := &db.Server{
		UUID:             uuid.NewString(),
		Name:             fmt.Sprintf("%s-%s", product.Name, order.Name),
		UserID:           order.UserID,
		ProductID:        product.ID,
		NodeID:           node.ID,
		DaysUntilRenewal: db.RenewalDays,
	}
	serverID, err := s.db.SetServer(server)
	if err != nil {
		return nil, fmt.Errorf("could not record server: %w", err)
	}

	if err := s.daemon.CreateServer(ctx, node, &wings.ServerCreateRequest{
		UUID:              server.UUID,
		StartOnCompletion: true,
		MemoryMB:          product.Limits.Memory,
		DiskMB:            product.Limits.Disk,
		CPU:               product.Limits.CPU,
		EggID:             product.EggID,
		Environment:       variables,
	}); err != nil {
		// compensate the record so the user is not left with a ghost server
		if delErr := s.db.DelServer(serverID); delErr != nil {
			log.Warnw("failed to remove server record after daemon error",
				"server", serverID, "error", delErr)
		}
		s.recordDeploymentException(order, fmt.Sprintf(
			"daemon on node %d refused server for order %d: %v", node.ID, order.ID, err))
		return nil, fmt.Errorf("daemon install failed: %w", err)
	}

	log.Infow("server provisioned",
		"server", serverID,
		"node", node.ID,
		"order", order.ID,
		"user", order.UserID)
	return server, nil
}

// selectNode returns the first deployable node with enough free memory and
// disk for the product. Nodes whose daemon cannot be reached are skipped.
func (s *Service) selectNode(ctx context.Context, product *db.Product) (*db.Node, error) {
	nodes, err := s.db.DeployableNodes()
	if err != nil {
		return nil, fmt.Errorf("could not list deployable nodes: %w", err)
	}
	for _, node := range nodes {
		util, err := s.daemon.Utilization(ctx, node)
		if err != nil {
			log.Warnw("skipping unreachable node", "node", node.ID, "error", err)
			continue
		}
		if util.MemoryFreeMB() >= product.Limits.Memory && util.DiskFreeMB() >= product.Limits.Disk {
			return node, nil
		}
	}
	return nil, ErrNoDeployableNode
}

func (s *Service) recordDeploymentException(order *db.Order, description string) {
	if _, err := s.db.SetBillingException(&db.BillingException{
		Title:       "Failed to deploy server",
		Description: description,
		Type:        db.ExceptionTypeDeployment,
		OrderID:     order.ID,
	}); err != nil {
		log.Warnw("failed to record billing exception", "order", order.ID, "error", err)
	}
}
