package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/auplugins/au"
	"github.com/lehigh-university-libraries/auplugins/plugin"
	"github.com/lehigh-university-libraries/auplugins/store"
)

// target is one AU together with the plugin that handles it.
type target struct {
	plugin *plugin.Plugin
	config au.Config
}

var (
	auParams  []string
	auFile    string
	storeSpec string
)

// addAUFlags registers the flags that pick AUs: either a plugin ID argument
// with -p key=value pairs, or --aus naming a YAML file of AUs.
func addAUFlags(c *cobra.Command) {
	c.Flags().StringArrayVarP(&auParams, "param", "p", nil, "AU parameter as key=value (repeatable)")
	c.Flags().StringVar(&auFile, "aus", "", "YAML file listing AUs under \"aus\"")
}

func addStoreFlag(c *cobra.Command) {
	c.Flags().StringVarP(&storeSpec, "store", "s", "", "Content store (dir:PATH, sqlite:PATH or redis://HOST/DB)")
	_ = c.MarkFlagRequired("store")
}

func targets(args []string) ([]target, error) {
	if auFile != "" {
		if len(args) > 0 || len(auParams) > 0 {
			return nil, fmt.Errorf("--aus cannot be combined with a plugin argument or --param")
		}
		configs, err := au.LoadConfigs(auFile)
		if err != nil {
			return nil, err
		}
		var out []target
		for i, cfg := range configs {
			if cfg.Plugin == "" {
				return nil, fmt.Errorf("%s: AU %d has no plugin", auFile, i)
			}
			p, err := plugin.Get(cfg.Plugin)
			if err != nil {
				return nil, fmt.Errorf("%s: AU %d: %w", auFile, i, err)
			}
			out = append(out, target{plugin: p, config: cfg})
		}
		return out, nil
	}

	if len(args) == 0 {
		return nil, fmt.Errorf("a plugin ID or --aus is required")
	}
	p, err := plugin.Get(args[0])
	if err != nil {
		return nil, err
	}
	cfg, err := au.ParseParams(auParams)
	if err != nil {
		return nil, err
	}
	cfg.Plugin = p.ID
	return []target{{plugin: p, config: cfg}}, nil
}

func openStore() (store.Store, func(), error) {
	st, err := store.Open(storeSpec)
	if err != nil {
		return nil, nil, err
	}
	return st, func() { closeIfCloser(st) }, nil
}
