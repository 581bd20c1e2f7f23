package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bodytwin/platform/pkg/app"
	"github.com/bodytwin/platform/pkg/common/config"
	"github.com/bodytwin/platform/pkg/common/models"
	"github.com/bodytwin/platform/pkg/registry"
	"github.com/bodytwin/platform/pkg/training"
	"github.com/spf13/cobra"
)

var familyArgs = []string{string(registry.FamilyAlert), string(registry.FamilyFood)}

func parseFamily(arg string) (registry.Family, error) {
	family, ok := registry.ParseFamily(arg)
	if !ok {
		return "", fmt.Errorf("unknown model family %q (want alert or food)", arg)
	}
	return family, nil
}

// offlinePlatform serves registry reads and food predictions without
// Postgres or Kafka. Registry writes, such as a bootstrap training, still
// take the lock named by REGISTRY_LOCK_BACKEND.
func offlinePlatform() (*app.Platform, *app.Resources, error) {
	cfg := config.Load()
	res, deps, err := app.ConnectLocks(cfg)
	if err != nil {
		return nil, nil, err
	}
	platform, err := app.New(cfg, deps)
	if err != nil {
		res.Close()
		return nil, nil, err
	}
	return platform, res, nil
}

func newRetrainCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "retrain <alert|food>",
		Short:     "Train a model family and promote the result",
		Example:   "  modelctl retrain alert\n  modelctl retrain food",
		Args:      cobra.ExactArgs(1),
		ValidArgs: familyArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			family, err := parseFamily(args[0])
			if err != nil {
				return err
			}
			platform, res, err := app.Build(config.Load())
			if err != nil {
				return err
			}
			defer res.Close()

			summary, err := platform.Retrain(cmd.Context(), family, training.TriggerCLI)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
}

func newModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect a model registry",
	}

	cmd.AddCommand(&cobra.Command{
		Use:       "list <alert|food>",
		Short:     "Print every registry record, oldest first",
		Args:      cobra.ExactArgs(1),
		ValidArgs: familyArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, res, err := familyStore(args[0])
			if err != nil {
				return err
			}
			defer res.Close()
			records, err := store.List()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{"models": records})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:       "active <alert|food>",
		Short:     "Print the record serving predictions",
		Args:      cobra.ExactArgs(1),
		ValidArgs: familyArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, res, err := familyStore(args[0])
			if err != nil {
				return err
			}
			defer res.Close()
			active, err := store.Active()
			if err != nil {
				return err
			}
			if active == nil {
				return fmt.Errorf("no active %s model", store.Family())
			}
			return printJSON(cmd.OutOrStdout(), active)
		},
	})

	return cmd
}

func familyStore(arg string) (*registry.Store, *app.Resources, error) {
	family, err := parseFamily(arg)
	if err != nil {
		return nil, nil, err
	}
	platform, res, err := offlinePlatform()
	if err != nil {
		return nil, nil, err
	}
	return platform.Store(family), res, nil
}

func newPredictFoodCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "predict-food <name[=quantity]>...",
		Short:   "Estimate meal nutrition, training a food model first if none is active",
		Example: "  modelctl predict-food idli=2 chai",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := parseItems(args)
			if err != nil {
				return err
			}
			platform, res, err := offlinePlatform()
			if err != nil {
				return err
			}
			defer res.Close()
			result, err := platform.PredictFood(cmd.Context(), items)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

func newFoodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "foods",
		Short: "List the food catalog the food model is trained and priced on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			platform, res, err := offlinePlatform()
			if err != nil {
				return err
			}
			defer res.Close()
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{"foods": platform.Catalog().Foods()})
		},
	}
}

// parseItems reads "name=quantity" pairs; a bare name means one unit.
func parseItems(args []string) ([]models.MealItem, error) {
	items := make([]models.MealItem, 0, len(args))
	for _, arg := range args {
		name, qty, found := strings.Cut(arg, "=")
		item := models.MealItem{Name: name, Quantity: 1}
		if found {
			q, err := strconv.ParseFloat(qty, 64)
			if err != nil {
				return nil, fmt.Errorf("bad quantity in %q: %w", arg, err)
			}
			item.Quantity = q
		}
		if item.Name == "" {
			return nil, fmt.Errorf("missing food name in %q", arg)
		}
		items = append(items, item)
	}
	return items, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
