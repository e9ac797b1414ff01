package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vietddude/guardrail/internal/core/config"
	redisclient "github.com/vietddude/guardrail/internal/infra/redis"
	"github.com/vietddude/guardrail/internal/restore"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard all preserved work from the store",
	Run:   runClear,
}

func init() {
	clearCmd.Flags().BoolVar(&clearYes, "yes", false, "skip confirmation")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.Redis.URL == "" {
		fmt.Println("No Redis configured; nothing to clear")
		return
	}

	ctx := context.Background()
	client, err := redisclient.NewClient(cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = client.Close()
	}()

	store := redisclient.NewPreserveStore(client, cfg.Redis.Namespace)

	has, err := restore.HasRecoveryData(ctx, store)
	if err != nil {
		slog.Error("Failed to check preserved state", "error", err)
		os.Exit(1)
	}
	if !has {
		fmt.Println("No preserved work found")
		return
	}

	if !clearYes {
		fmt.Print("Preserved work exists and will be permanently discarded. Continue? [y/N] ")
		var answer string
		_, _ = fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted")
			return
		}
	}

	if err := restore.ClearRecoveryData(ctx, store); err != nil {
		slog.Error("Failed to clear preserved state", "error", err)
		os.Exit(1)
	}
	fmt.Println("Preserved work cleared")
}
