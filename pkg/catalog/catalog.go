// Package catalog defines the ordered set of priced capabilities the
// revenue gate sells.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/solvent-ai/solvent/pkg/config"
	"github.com/solvent-ai/solvent/pkg/models"
	"github.com/solvent-ai/solvent/pkg/router"
)

// Handler executes one paid capability. The request body is the raw payload
// the payer POSTed; the returned string is served as {"result": ...}.
type Handler func(ctx context.Context, payload []byte) (string, error)

// Service is one named, priced capability.
type Service struct {
	Path        string
	Description string
	PriceUSDC   decimal.Decimal
	Handler     Handler
}

// Catalog is the immutable, ordered service set, defined at startup.
type Catalog struct {
	services []Service
	byPath   map[string]int
}

// New builds a catalog from configured services, binding each path to its
// built-in handler over the router. Unknown paths in the config are an
// error: every sold capability needs an implementation.
func New(services []config.ServiceConfig, r *router.Router) (*Catalog, error) {
	c := &Catalog{byPath: make(map[string]int)}
	for _, sc := range services {
		h, ok := builtinHandler(sc.Path, r)
		if !ok {
			return nil, fmt.Errorf("service %q has no handler", sc.Path)
		}
		c.services = append(c.services, Service{
			Path:        sc.Path,
			Description: sc.Description,
			PriceUSDC:   sc.PriceUSDC,
			Handler:     h,
		})
		c.byPath[sc.Path] = len(c.services) - 1
	}
	return c, nil
}

// Lookup returns the service registered at path.
func (c *Catalog) Lookup(path string) (Service, bool) {
	idx, ok := c.byPath[path]
	if !ok {
		return Service{}, false
	}
	return c.services[idx], true
}

// List returns all services in registration order.
func (c *Catalog) List() []models.ServiceInfo {
	out := make([]models.ServiceInfo, 0, len(c.services))
	for _, s := range c.services {
		out = append(out, models.ServiceInfo{
			Path:        s.Path,
			Description: s.Description,
			PriceUSDC:   s.PriceUSDC,
		})
	}
	return out
}

// Len returns the number of registered services.
func (c *Catalog) Len() int {
	return len(c.services)
}

// chatPayload is the request body for the built-in inference services.
type chatPayload struct {
	Message string `json:"message"`
	Model   string `json:"model,omitempty"`
}

// builtinHandler maps a configured path to its capability implementation.
func builtinHandler(path string, r *router.Router) (Handler, bool) {
	switch path {
	case "/api/chat":
		return func(ctx context.Context, payload []byte) (string, error) {
			req, err := decodeChat(payload)
			if err != nil {
				return "", err
			}
			res, err := r.Converse(ctx, []models.ChatMessage{
				{Role: models.RoleUser, Content: req.Message},
			}, models.ConverseOptions{Model: req.Model})
			if err != nil {
				return "", err
			}
			return res.Content, nil
		}, true
	case "/api/analyze":
		return func(ctx context.Context, payload []byte) (string, error) {
			req, err := decodeChat(payload)
			if err != nil {
				return "", err
			}
			res, err := r.Converse(ctx, []models.ChatMessage{
				{Role: models.RoleSystem, Content: "Analyze the following input. Report structure, intent, and anything anomalous. Be precise and complete."},
				{Role: models.RoleUser, Content: req.Message},
			}, models.ConverseOptions{Model: req.Model})
			if err != nil {
				return "", err
			}
			return res.Content, nil
		}, true
	}
	return nil, false
}

func decodeChat(payload []byte) (chatPayload, error) {
	var req chatPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return req, fmt.Errorf("decode payload: %w", err)
	}
	if req.Message == "" {
		return req, fmt.Errorf("payload message is required")
	}
	return req, nil
}
