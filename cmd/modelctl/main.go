/*
Package main is the entry point for modelctl, the operator CLI for the
BodyTwin model registries.

Usage:

	modelctl [command]

Examples:

	# Train and promote a new alert model
	modelctl retrain alert

	# Show the food registry
	modelctl models list food

	# Estimate a meal with the active food model
	modelctl predict-food idli=2 chai

	# Show which food names predict-food understands
	modelctl foods
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bodytwin/platform/pkg/common/logger"
	"github.com/spf13/cobra"
)

func main() {
	logger.Init()

	rootCmd := &cobra.Command{
		Use:           "modelctl",
		Short:         "Train, inspect and query BodyTwin models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		newRetrainCmd(),
		newModelsCmd(),
		newPredictFoodCmd(),
		newFoodsCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
