package world

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// Loader reads world files from a data directory fallback hierarchy.
type Loader struct {
	dataDirs []string
}

// NewLoader initializes a world loader searching dataDirs in order.
func NewLoader(dataDirs []string) *Loader {
	return &Loader{dataDirs: dataDirs}
}

// Load opens a world by file path, or by name as worlds/<name>.yaml inside
// one of the data directories.
func (l *Loader) Load(ref string) (*Store, error) {
	for _, path := range l.candidates(ref) {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		defer f.Close()
		s, err := Decode(f)
		if err != nil {
			return nil, oops.In("world").Code("decode_failed").With("path", path).Wrapf(err, "failed to decode world %s", ref)
		}
		return s, nil
	}
	return nil, oops.In("world").Code("not_found").Errorf("could not find world %s in any available data directory", ref)
}

func (l *Loader) candidates(ref string) []string {
	out := []string{ref}
	for _, dir := range l.dataDirs {
		out = append(out,
			filepath.Join(dir, ref),
			filepath.Join(dir, "worlds", ref+".yaml"),
		)
	}
	return out
}

// Decode reads a world document:
//
//	entities:
//	  - id: hero
//	    components:
//	      core:name: {text: Hero}
//
// Component objects keep their key order.
func Decode(r io.Reader) (*Store, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return NewStore(), nil
		}
		return nil, err
	}
	root, err := FromYAML(&doc)
	if err != nil {
		return nil, err
	}
	s := NewStore()
	raw, _ := Get(root, "entities")
	list, ok := raw.([]any)
	if raw != nil && !ok {
		return nil, fmt.Errorf("entities must be a list")
	}
	for i, item := range list {
		id := GetString(item, "id")
		if id == "" {
			return nil, fmt.Errorf("entity %d: missing id", i)
		}
		if !s.AddEntity(id) {
			return nil, fmt.Errorf("entity %d: duplicate id %q", i, id)
		}
		comps, _ := Get(item, "components")
		if comps == nil {
			continue
		}
		keys, ok := Keys(comps)
		if !ok {
			return nil, fmt.Errorf("entity %q: components must be a mapping", id)
		}
		for _, k := range keys {
			v, _ := Get(comps, k)
			s.SetComponent(id, k, v)
		}
	}
	return s, nil
}

// FromYAML converts a yaml node into world values. Mappings become *Object
// so that authored key order survives.
func FromYAML(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return FromYAML(n.Content[0])
	case yaml.AliasNode:
		return FromYAML(n.Alias)
	case yaml.MappingNode:
		obj := NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			var key string
			if err := n.Content[i].Decode(&key); err != nil {
				return nil, fmt.Errorf("line %d: %w", n.Content[i].Line, err)
			}
			v, err := FromYAML(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			obj.Set(key, v)
		}
		return obj, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := FromYAML(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("line %d: unsupported yaml node", n.Line)
}

// Encode writes the store back as a world document.
func Encode(w io.Writer, s *Store) error {
	var entities []map[string]any
	for _, id := range s.EntityIDs() {
		comps := make(map[string]any)
		for _, t := range s.ComponentTypes(id) {
			data, _ := s.GetComponentData(id, t)
			comps[t] = Plain(data)
		}
		entities = append(entities, map[string]any{"id": id, "components": comps})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any{"entities": entities}); err != nil {
		return err
	}
	return enc.Close()
}
