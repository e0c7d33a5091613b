package agent

import "fmt"

// Spec describes one configured agent: which provider backs it, which model
// it uses, and how it is displayed and selected.
type Spec struct {
	ID          string
	DisplayName string
	Provider    string // "openai" or "gemini"
	Model       string
}

// Registry holds the static list of configured gateways.
// There is no runtime discovery - the list is fixed at construction.
type Registry struct {
	gateways []Gateway
	byID     map[string]Gateway
}

// NewRegistry builds gateways for the given specs.
// Returns an error for unknown providers or duplicate IDs.
func NewRegistry(specs []Spec) (*Registry, error) {
	r := &Registry{byID: make(map[string]Gateway, len(specs))}

	for _, spec := range specs {
		if spec.ID == "" {
			return nil, fmt.Errorf("agent spec missing id")
		}
		if _, exists := r.byID[spec.ID]; exists {
			return nil, fmt.Errorf("duplicate agent id %q", spec.ID)
		}

		var gw Gateway
		switch spec.Provider {
		case "openai":
			gw = NewOpenAI(OpenAIConfig{ID: spec.ID, Name: spec.DisplayName, Model: spec.Model})
		case "gemini":
			gw = NewGemini(GeminiConfig{ID: spec.ID, Name: spec.DisplayName, Model: spec.Model})
		default:
			return nil, fmt.Errorf("agent %q: unknown provider %q (valid: openai, gemini)", spec.ID, spec.Provider)
		}

		r.gateways = append(r.gateways, gw)
		r.byID[spec.ID] = gw
	}

	return r, nil
}

// DefaultSpecs returns the built-in agent list used when no agents are
// configured.
func DefaultSpecs() []Spec {
	return []Spec{
		{ID: "chatgpt", DisplayName: "ChatGPT 5.2", Provider: "openai"},
		{ID: "gemini", DisplayName: "Gemini", Provider: "gemini"},
	}
}

// ByID returns the gateway with the given id.
func (r *Registry) ByID(id string) (Gateway, bool) {
	gw, ok := r.byID[id]
	return gw, ok
}

// All returns the configured gateways in registration order.
func (r *Registry) All() []Gateway {
	return r.gateways
}
