package banks

import (
	"fmt"
	"strings"

	"github.com/insightdelivered/statement-engine/internal/models"
)

// Registry is an immutable, ordered set of bank configs. Order matters:
// detection ties are broken in favour of the earlier entry.
type Registry struct {
	configs []*BankConfig
	byID    map[models.BankID]*BankConfig
}

// NewRegistry validates the configs and builds a registry from them.
func NewRegistry(configs ...*BankConfig) (*Registry, error) {
	r := &Registry{
		configs: make([]*BankConfig, 0, len(configs)),
		byID:    make(map[models.BankID]*BankConfig, len(configs)),
	}
	for _, c := range configs {
		if c == nil {
			return nil, fmt.Errorf("nil bank config")
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byID[c.ID]; dup {
			return nil, fmt.Errorf("bank %q registered twice", c.ID)
		}
		r.configs = append(r.configs, c)
		r.byID[c.ID] = c
	}
	return r, nil
}

var defaultRegistry = mustRegistry(metro, hsbc, barclays, chase, ing)

func mustRegistry(configs ...*BankConfig) *Registry {
	r, err := NewRegistry(configs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Default returns the built-in registry of supported banks.
func Default() *Registry {
	return defaultRegistry
}

// Lookup returns the config registered for id.
func (r *Registry) Lookup(id models.BankID) (*BankConfig, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// All returns the configs in registration order.
func (r *Registry) All() []*BankConfig {
	out := make([]*BankConfig, len(r.configs))
	copy(out, r.configs)
	return out
}

// IDs returns the registered bank IDs in registration order.
func (r *Registry) IDs() []models.BankID {
	ids := make([]models.BankID, 0, len(r.configs))
	for _, c := range r.configs {
		ids = append(ids, c.ID)
	}
	return ids
}

// aliases maps common spellings accepted on the command line to bank IDs.
var aliases = map[string]models.BankID{
	"metrobank":  models.BankMetro,
	"metro-bank": models.BankMetro,
	"hsbcuk":     models.BankHSBC,
	"jpmorgan":   models.BankChase,
	"ing-diba":   models.BankING,
	"ingdiba":    models.BankING,
}

// ParseBankID resolves a user-supplied bank name to a registered ID.
// An empty string resolves to "" without error.
func (r *Registry) ParseBankID(s string) (models.BankID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "auto" {
		return "", nil
	}
	id := models.BankID(s)
	if alias, ok := aliases[s]; ok {
		id = alias
	}
	if _, ok := r.byID[id]; !ok {
		return "", fmt.Errorf("unsupported bank type: %q", s)
	}
	return id, nil
}
