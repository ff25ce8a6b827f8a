package router

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/skillgate/skillgate/internal/model"
)

// SkillVector is one entry of the vector-store artifact (spec.md §6).
type SkillVector struct {
	Name            string    `json:"skill_name"`
	Description     string    `json:"description"`
	TriggerExamples []string  `json:"trigger_examples"`
	Embedding       []float64 `json:"embedding"`
	Keywords        []string  `json:"keywords"`
}

// Store is the validated vector-store artifact produced by the external
// vector-store generator (spec.md §6). Unknown fields are ignored by
// encoding/json by default; missing required fields are a fatal ConfigError.
type Store struct {
	Version     string        `json:"version"`
	Model       string        `json:"model"`
	GeneratedAt string        `json:"generated_at"`
	Skills      []SkillVector `json:"skills"`
}

// LoadStore decodes and validates a vector-store JSON artifact from r.
func LoadStore(r io.Reader) (*Store, error) {
	var store Store
	if err := json.NewDecoder(r).Decode(&store); err != nil {
		return nil, fmt.Errorf("%w: decode vector store: %v", model.ErrConfigError, err)
	}
	if err := validateStore(&store); err != nil {
		return nil, err
	}
	return &store, nil
}

func validateStore(s *Store) error {
	if s.Version == "" {
		return fmt.Errorf("%w: vector store: missing version", model.ErrConfigError)
	}
	if len(s.Skills) == 0 {
		return fmt.Errorf("%w: vector store: no skills", model.ErrConfigError)
	}
	for i, sk := range s.Skills {
		if sk.Name == "" {
			return fmt.Errorf("%w: vector store: skills[%d] missing skill_name", model.ErrConfigError, i)
		}
		if len(sk.Embedding) == 0 {
			return fmt.Errorf("%w: vector store: skills[%d] %q missing embedding", model.ErrConfigError, i, sk.Name)
		}
	}
	return nil
}
