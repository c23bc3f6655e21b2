// Package topic provides the read-only catalog of coaching topics.
package topic

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ashureev/maven/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed topics.yaml
var defaultCatalog []byte

type catalogFile struct {
	Topics []domain.Topic `yaml:"topics"`
}

// Registry is an immutable topic table. It is safe for concurrent use
// because nothing mutates it after Load returns.
type Registry struct {
	topics []domain.Topic
	byID   map[string]int
	bySlug map[string]int
}

// Default returns the registry built from the embedded catalog.
func Default() (*Registry, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

// LoadFile reads a catalog from path, or the embedded catalog when path is empty.
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open topic catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a YAML catalog and validates every topic.
func Load(r io.Reader) (*Registry, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse topic catalog: %w", err)
	}
	return New(file.Topics)
}

// New builds a registry from topics, preserving their order.
func New(topics []domain.Topic) (*Registry, error) {
	if len(topics) == 0 {
		return nil, fmt.Errorf("topic catalog is empty")
	}

	reg := &Registry{
		topics: make([]domain.Topic, 0, len(topics)),
		byID:   make(map[string]int, len(topics)),
		bySlug: make(map[string]int, len(topics)),
	}
	for _, t := range topics {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if t.Slug == "" {
			t.Slug = t.DefaultSlug()
		}
		t.Slug = strings.ToLower(t.Slug)
		if _, dup := reg.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate topic id %q", t.ID)
		}
		if _, dup := reg.bySlug[t.Slug]; dup {
			return nil, fmt.Errorf("duplicate topic slug %q", t.Slug)
		}
		t.Tips = append([]string(nil), t.Tips...)
		t.BigIdeas = append([]string(nil), t.BigIdeas...)

		reg.byID[t.ID] = len(reg.topics)
		reg.bySlug[t.Slug] = len(reg.topics)
		reg.topics = append(reg.topics, t)
	}
	return reg, nil
}

// Get looks a topic up by ID.
func (r *Registry) Get(id string) (domain.Topic, error) {
	i, ok := r.byID[id]
	if !ok {
		return domain.Topic{}, fmt.Errorf("topic %q: %w", id, domain.ErrNotFound)
	}
	return r.clone(i), nil
}

// BySlug looks a topic up by its command slug, ignoring case and surrounding space.
func (r *Registry) BySlug(slug string) (domain.Topic, error) {
	key := strings.ToLower(strings.TrimSpace(slug))
	i, ok := r.bySlug[key]
	if !ok {
		return domain.Topic{}, fmt.Errorf("slug %q: %w", slug, domain.ErrNotFound)
	}
	return r.clone(i), nil
}

// List returns all topics in catalog order.
func (r *Registry) List() []domain.Topic {
	out := make([]domain.Topic, len(r.topics))
	for i := range r.topics {
		out[i] = r.clone(i)
	}
	return out
}

// Slugs returns every slug in catalog order.
func (r *Registry) Slugs() []string {
	out := make([]string, len(r.topics))
	for i, t := range r.topics {
		out[i] = t.Slug
	}
	return out
}

// Len returns the number of topics.
func (r *Registry) Len() int {
	return len(r.topics)
}

// clone copies the slices so callers cannot mutate the table.
func (r *Registry) clone(i int) domain.Topic {
	t := r.topics[i]
	t.Tips = append([]string(nil), t.Tips...)
	t.BigIdeas = append([]string(nil), t.BigIdeas...)
	return t
}
