package auth

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// CheckFactory creates a check from configuration.
type CheckFactory func(cfg map[string]any) (Check, error)

// CheckSpec names a registered check and its configuration.
type CheckSpec struct {
	Name   string         `json:"name"`
	Config map[string]any `json:"config,omitempty"`
}

// CheckRegistry builds checks by name. A registry is populated at startup
// and then only read.
type CheckRegistry struct {
	mu        sync.RWMutex
	factories map[string]CheckFactory
}

// NewCheckRegistry creates a registry with the built-in checks:
// authenticated, account_active, has_attribute, has_role, require_header,
// require_query and deny_all.
func NewCheckRegistry() *CheckRegistry {
	r := &CheckRegistry{factories: make(map[string]CheckFactory)}

	_ = r.Register(CheckAuthenticated, func(map[string]any) (Check, error) {
		return Authenticated(), nil
	})
	_ = r.Register(CheckAccountActive, func(map[string]any) (Check, error) {
		return AccountActive(), nil
	})
	_ = r.Register("has_attribute", func(cfg map[string]any) (Check, error) {
		key, err := requiredString(cfg, "key")
		if err != nil {
			return Check{}, err
		}
		value, err := requiredString(cfg, "value")
		if err != nil {
			return Check{}, err
		}
		return HasAttribute(key, value), nil
	})
	_ = r.Register("has_role", func(cfg map[string]any) (Check, error) {
		role, err := requiredString(cfg, "role")
		if err != nil {
			return Check{}, err
		}
		return HasRole(role), nil
	})
	_ = r.Register("require_header", func(cfg map[string]any) (Check, error) {
		header, err := requiredString(cfg, "header")
		if err != nil {
			return Check{}, err
		}
		value, err := requiredString(cfg, "value")
		if err != nil {
			return Check{}, err
		}
		return RequireHeader(header, value), nil
	})
	_ = r.Register("require_query", func(cfg map[string]any) (Check, error) {
		param, err := requiredString(cfg, "param")
		if err != nil {
			return Check{}, err
		}
		value, err := requiredString(cfg, "value")
		if err != nil {
			return Check{}, err
		}
		return RequireQuery(param, value), nil
	})
	_ = r.Register("deny_all", func(cfg map[string]any) (Check, error) {
		name, _ := cfg["name"].(string)
		if name == "" {
			name = "deny_all"
		}
		return DenyAll(name), nil
	})

	return r
}

// Register adds a check factory.
func (r *CheckRegistry) Register(name string, factory CheckFactory) error {
	if name == "" || factory == nil {
		return errors.New("auth: invalid check registration")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("auth: check %q already registered", name)
	}

	r.factories[name] = factory
	return nil
}

// RegisterPermissions registers the "permission" check backed by rbac.
func (r *CheckRegistry) RegisterPermissions(rbac *RBAC) error {
	return r.Register("permission", func(cfg map[string]any) (Check, error) {
		perm, err := requiredString(cfg, "permission")
		if err != nil {
			return Check{}, err
		}
		return RequirePermission(rbac, perm), nil
	})
}

// RegisterAPIKeys registers the "api_key" check backed by store.
func (r *CheckRegistry) RegisterAPIKeys(store APIKeyStore) error {
	return r.Register(CheckAPIKey, func(cfg map[string]any) (Check, error) {
		header, _ := cfg["header"].(string)
		return RequireAPIKey(header, store), nil
	})
}

// Create instantiates a check by name.
func (r *CheckRegistry) Create(name string, cfg map[string]any) (Check, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return Check{}, fmt.Errorf("auth: check %q not found", name)
	}

	c, err := factory(cfg)
	if err != nil {
		return Check{}, fmt.Errorf("auth: check %q: %w", name, err)
	}
	return c, nil
}

// Build instantiates checks in order, failing on the first bad spec.
func (r *CheckRegistry) Build(specs []CheckSpec) ([]Check, error) {
	checks := make([]Check, 0, len(specs))
	for _, spec := range specs {
		c, err := r.Create(spec.Name, spec.Config)
		if err != nil {
			return nil, err
		}
		checks = append(checks, c)
	}
	return checks, nil
}

// List returns registered check names.
func (r *CheckRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func requiredString(cfg map[string]any, key string) (string, error) {
	v, ok := cfg[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("missing %q", key)
	}
	return v, nil
}
