package infra

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/bnema/dcloud-assistant/internal/domain"
	"github.com/pelletier/go-toml/v2"
)

//go:embed catalog.toml
var embeddedCatalog []byte

type APIEntry struct {
	Service     string `toml:"service"`
	Path        string `toml:"path"`
	Description string `toml:"description"`
	CentralOnly bool   `toml:"central_only"`
}

// Catalog lists the infrastructure endpoints the oracle may choose from.
type Catalog struct {
	APIs []APIEntry `toml:"api"`
}

func LoadCatalog() (Catalog, error) {
	return ParseCatalog(embeddedCatalog)
}

func ParseCatalog(raw []byte) (Catalog, error) {
	var catalog Catalog
	if err := toml.Unmarshal(raw, &catalog); err != nil {
		return Catalog{}, fmt.Errorf("decode infra api catalog: %w", err)
	}
	for i, entry := range catalog.APIs {
		if strings.TrimSpace(entry.Path) == "" {
			return Catalog{}, fmt.Errorf("infra api catalog entry %d: path is required", i)
		}
	}

	return catalog, nil
}

// Context renders the entries reachable on an instance of the given kind.
func (c Catalog) Context(kind domain.InstanceKind) string {
	var b strings.Builder
	for _, entry := range c.APIs {
		if entry.CentralOnly && kind != domain.KindControllerCloud {
			continue
		}
		fmt.Fprintf(&b, "- GET %s (%s): %s\n", entry.Path, entry.Service, entry.Description)
	}
	return b.String()
}
