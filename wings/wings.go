// Package wings is a client for the Wings daemon API running on every node.
// The billing flow uses it to read node system information and resource
// utilization when picking a deployment target.
package wings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/everestpanel/billing-backend/db"
	"github.com/everestpanel/billing-backend/internal/log"
)

// Client talks to Wings daemons. One client serves all nodes; the node
// record carries the address and token per request.
type Client struct {
	http *http.Client
}

// New creates a Wings client with a sane request timeout.
func New() *Client {
	return &Client{
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// SystemInfo is the daemon's self-description.
type SystemInfo struct {
	Version       string `json:"version"`
	KernelVersion string `json:"kernel_version"`
	Architecture  string `json:"architecture"`
	OS            string `json:"os"`
	CPUCount      int    `json:"cpu_count"`
}

// Utilization reports the node's current resource usage in bytes.
type Utilization struct {
	MemoryTotal uint64 `json:"memory_total"`
	MemoryUsed  uint64 `json:"memory_used"`
	DiskTotal   uint64 `json:"disk_total"`
	DiskUsed    uint64 `json:"disk_used"`
}

// MemoryFreeMB returns the free memory in megabytes.
func (u *Utilization) MemoryFreeMB() int {
	if u.MemoryUsed >= u.MemoryTotal {
		return 0
	}
	return int((u.MemoryTotal - u.MemoryUsed) / (1 << 20))
}

// DiskFreeMB returns the free disk space in megabytes.
func (u *Utilization) DiskFreeMB() int {
	if u.DiskUsed >= u.DiskTotal {
		return 0
	}
	return int((u.DiskTotal - u.DiskUsed) / (1 << 20))
}

// ServerCreateRequest is the payload installing a new server on a node.
type ServerCreateRequest struct {
	UUID              string            `json:"uuid"`
	StartOnCompletion bool              `json:"start_on_completion"`
	MemoryMB          int               `json:"memory"`
	DiskMB            int               `json:"disk"`
	CPU               int               `json:"cpu"`
	EggID             uint64            `json:"egg_id"`
	Environment       map[string]string `json:"environment"`
}

// CreateServer asks the daemon on the node to install a new server.
func (c *Client) CreateServer(ctx context.Context, node *db.Node, req *ServerCreateRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("could not encode server create request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, nodeURL(node)+"/api/servers", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("could not build daemon request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+node.Token)
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("daemon request to node %d failed: %w", node.ID, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warnw("failed to close daemon response body", "error", err)
		}
	}()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("daemon on node %d returned status %d", node.ID, resp.StatusCode)
	}
	return nil
}

// SystemInfo fetches the daemon system description from a node.
func (c *Client) SystemInfo(ctx context.Context, node *db.Node) (*SystemInfo, error) {
	info := &SystemInfo{}
	if err := c.get(ctx, node, "/api/system", info); err != nil {
		return nil, err
	}
	return info, nil
}

// Utilization fetches the current resource usage of a node.
func (c *Client) Utilization(ctx context.Context, node *db.Node) (*Utilization, error) {
	util := &Utilization{}
	if err := c.get(ctx, node, "/api/system/utilization", util); err != nil {
		return nil, err
	}
	return util, nil
}

func (c *Client) get(ctx context.Context, node *db.Node, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, nodeURL(node)+path, nil)
	if err != nil {
		return fmt.Errorf("could not build daemon request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+node.Token)
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon request to node %d failed: %w", node.ID, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warnw("failed to close daemon response body", "error", err)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon on node %d returned status %d", node.ID, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("could not read daemon response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("could not decode daemon response: %w", err)
	}
	return nil
}

func nodeURL(node *db.Node) string {
	scheme := node.Scheme
	if scheme == "" {
		scheme = "https"
	}
	port := node.Port
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf("%s://%s:%d", scheme, node.FQDN, port)
}
