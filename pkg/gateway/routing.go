package gateway

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Routing maps logical channels to the provider that should serve them when
// more than one is configured, e.g.:
//
//	preferred:
//	  sms: twilio
//	  whatsapp: whatsapp
type Routing struct {
	Preferred map[string]string `yaml:"preferred"`
}

// LoadRouting reads and parses a routing YAML file.
func LoadRouting(path string) (Routing, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Routing{}, fmt.Errorf("%w: %v", ErrInvalidRouting, err)
	}

	var r Routing
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return Routing{}, fmt.Errorf("%w: %v", ErrInvalidRouting, err)
	}
	return r, nil
}
