package main

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/localpages-cli/internal/model"
)

// catalogFile is the YAML layout accepted by the seed command.
type catalogFile struct {
	Services []struct {
		Key    string `yaml:"key"`
		Name   string `yaml:"name"`
		Type   string `yaml:"type"`
		Active *bool  `yaml:"active"`
	} `yaml:"services"`
	Localities []struct {
		Slug     string `yaml:"slug"`
		Name     string `yaml:"name"`
		Province string `yaml:"province"`
		Active   *bool  `yaml:"active"`
	} `yaml:"localities"`
}

// parseCatalog decodes and validates a catalog. Entries are active unless
// they say otherwise.
func parseCatalog(data []byte) ([]model.Service, []model.Locality, error) {
	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, nil, eris.Wrap(err, "seed: parse catalog")
	}

	var errs []string
	services := make([]model.Service, 0, len(cf.Services))
	for i, s := range cf.Services {
		t := model.ServiceType(strings.TrimSpace(s.Type))
		if strings.TrimSpace(s.Key) == "" || strings.TrimSpace(s.Name) == "" {
			errs = append(errs, eris.Errorf("services[%d]: key and name are required", i).Error())
			continue
		}
		if !t.Valid() {
			errs = append(errs, eris.Errorf("services[%d]: unknown type %q", i, s.Type).Error())
			continue
		}
		services = append(services, model.Service{
			Key:    strings.TrimSpace(s.Key),
			Name:   strings.TrimSpace(s.Name),
			Type:   t,
			Active: s.Active == nil || *s.Active,
		})
	}

	localities := make([]model.Locality, 0, len(cf.Localities))
	for i, l := range cf.Localities {
		if strings.TrimSpace(l.Slug) == "" || strings.TrimSpace(l.Name) == "" {
			errs = append(errs, eris.Errorf("localities[%d]: slug and name are required", i).Error())
			continue
		}
		localities = append(localities, model.Locality{
			Slug:     strings.TrimSpace(l.Slug),
			Name:     strings.TrimSpace(l.Name),
			Province: strings.TrimSpace(l.Province),
			Active:   l.Active == nil || *l.Active,
		})
	}

	if len(errs) > 0 {
		return nil, nil, eris.New("seed: " + strings.Join(errs, "; "))
	}
	return services, localities, nil
}

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Upsert services and localities from a YAML catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("seed"); err != nil {
			return err
		}

		data, err := os.ReadFile(seedFile)
		if err != nil {
			return eris.Wrapf(err, "seed: read %s", seedFile)
		}
		services, localities, err := parseCatalog(data)
		if err != nil {
			return err
		}

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}
		if err := st.UpsertServices(ctx, services); err != nil {
			return err
		}
		if err := st.UpsertLocalities(ctx, localities); err != nil {
			return err
		}
		logger.Info("catalog seeded",
			zap.Int("services", len(services)),
			zap.Int("localities", len(localities)),
		)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "catalog.yaml", "catalog YAML file")
	rootCmd.AddCommand(seedCmd)
}
