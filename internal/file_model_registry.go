package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/lychee-technology/formadmin"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// fileModelRegistry is a ModelRegistry built from model definitions. Each
// definition lives in its own <name>.yaml file under the model directory.
type fileModelRegistry struct {
	mu     sync.RWMutex
	dir    string
	models map[string]*formadmin.Model
}

// NewFileModelRegistry loads every *.yaml and *.yml file in dir.
func NewFileModelRegistry(dir string) (formadmin.ModelRegistry, error) {
	defs, err := LoadModelDefinitions(dir)
	if err != nil {
		return nil, err
	}
	registry, err := newModelRegistry(defs)
	if err != nil {
		return nil, err
	}
	registry.dir = dir
	zap.S().Infow("model definitions loaded", "dir", dir, "models", registry.ListModels())
	return registry, nil
}

// NewModelRegistry builds a registry from definitions already in memory.
func NewModelRegistry(defs ...formadmin.ModelDefinition) (formadmin.ModelRegistry, error) {
	return newModelRegistry(defs)
}

// LoadModelDefinitions reads the definition files of dir in name order.
func LoadModelDefinitions(dir string) ([]formadmin.ModelDefinition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read model directory %s: %w", dir, err)
	}

	var defs []formadmin.ModelDefinition
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read model file %s: %w", path, err)
		}

		var def formadmin.ModelDefinition
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse model file %s: %w", path, err)
		}
		if def.Name == "" {
			def.Name = strings.TrimSuffix(entry.Name(), ext)
		}
		defs = append(defs, def)
	}

	if len(defs) == 0 {
		return nil, fmt.Errorf("no model definitions found in %s", dir)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs, nil
}

func newModelRegistry(defs []formadmin.ModelDefinition) (*fileModelRegistry, error) {
	r := &fileModelRegistry{models: make(map[string]*formadmin.Model, len(defs))}
	for _, def := range defs {
		if _, dup := r.models[def.Name]; dup {
			return nil, formadmin.NewDefinitionError(def.Name, "", "model defined twice")
		}
		model, err := formadmin.NewModel(def)
		if err != nil {
			return nil, err
		}
		r.models[model.Name] = model
	}

	// Relations can point at any model, so they are checked once all are compiled.
	for _, model := range r.models {
		for name, rel := range model.Relations {
			target, ok := r.models[rel.Target]
			if !ok {
				return nil, formadmin.NewDefinitionError(model.Name, name, fmt.Sprintf("relation target %q is not defined", rel.Target))
			}
			if rel.TargetKey == "" {
				rel.TargetKey = target.IDField
			}
			if _, ok := target.Column(rel.TargetKey); !ok {
				return nil, formadmin.NewDefinitionError(model.Name, name, fmt.Sprintf("relation target key %q is not a column of %s", rel.TargetKey, target.Name))
			}
			model.Relations[name] = rel
		}
	}
	return r, nil
}

func (r *fileModelRegistry) GetModel(name string) (*formadmin.Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	model, ok := r.models[name]
	if !ok {
		return nil, formadmin.NewModelNotFoundError(name)
	}
	return model, nil
}

// ListModels returns model names in sorted order.
func (r *fileModelRegistry) ListModels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
