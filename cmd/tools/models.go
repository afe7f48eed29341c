package main

import (
	"fmt"
	"io"

	"github.com/lychee-technology/formadmin"
	"github.com/lychee-technology/formadmin/internal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func loadRegistry(dir string) (formadmin.ModelRegistry, error) {
	defs, err := internal.LoadModelDefinitions(dir)
	if err != nil {
		return nil, err
	}
	return internal.NewModelRegistry(defs...)
}

func newValidateModelsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-models",
		Short: "Load every model definition and normalize its list and edit fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateModels(cmd.OutOrStdout(), opts)
		},
	}
}

func validateModels(out io.Writer, opts *rootOptions) error {
	registry, err := loadRegistry(opts.modelDir)
	if err != nil {
		return err
	}

	var failed int
	for _, name := range registry.ListModels() {
		if _, err := describeModel(registry, name, opts.routePrefix); err != nil {
			fmt.Fprintf(out, "FAIL %s: %v\n", name, err)
			failed++
			continue
		}
		fmt.Fprintf(out, "ok   %s\n", name)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d models have invalid field declarations", failed, len(registry.ListModels()))
	}
	return nil
}

// modelDescription is the resolved view of one model printed by describe.
type modelDescription struct {
	Name       string                        `yaml:"name"`
	Table      string                        `yaml:"table"`
	IDField    string                        `yaml:"id_field"`
	Columns    []formadmin.Column            `yaml:"columns"`
	Relations  map[string]formadmin.Relation `yaml:"relations,omitempty"`
	ListFields []formadmin.Descriptor        `yaml:"list_fields"`
	EditFields []formadmin.Descriptor        `yaml:"edit_fields"`
}

func describeModel(registry formadmin.ModelRegistry, name, routePrefix string) (*modelDescription, error) {
	model, err := registry.GetModel(name)
	if err != nil {
		return nil, err
	}
	normalizer := internal.NewFieldNormalizer(model, registry, routePrefix)
	list, err := normalizer.NormalizeListFields(model.ListFields)
	if err != nil {
		return nil, err
	}
	edit, err := normalizer.NormalizeEditFields(model.EditFields)
	if err != nil {
		return nil, err
	}

	desc := &modelDescription{
		Name:       model.Name,
		Table:      model.Table,
		IDField:    model.IDField,
		Columns:    model.Columns,
		Relations:  model.Relations,
		ListFields: list.All(),
		EditFields: edit.All(),
	}
	return desc, nil
}

func newDescribeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <model>",
		Short: "Print the resolved columns and field descriptors of a model as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := loadRegistry(opts.modelDir)
			if err != nil {
				return err
			}
			desc, err := describeModel(registry, args[0], opts.routePrefix)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(desc)
		},
	}
}
