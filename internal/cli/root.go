// Package cli - служебные команды vixctl для операторов.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ignatzorin/vix-backend/internal/bootstrap"
	"github.com/ignatzorin/vix-backend/internal/config"
	"github.com/ignatzorin/vix-backend/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "vixctl",
	Short:         "Служебные операции экономики VP/VC",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		level, _ := cmd.Flags().GetString("log-level")
		logger.Init(level)
		logger.SetTextFormatter()
	},
}

func init() {
	rootCmd.PersistentFlags().String("economy", "", "TOML-файл с параметрами экономики")
	rootCmd.PersistentFlags().String("log-level", "warn", "уровень логирования")
}

// Execute запускает дерево команд и возвращает код выхода.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ошибка:", err)
		return 1
	}
	return 0
}

// loadConfig читает окружение и, если задан флаг --economy, TOML с параметрами экономики.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if path, _ := cmd.Flags().GetString("economy"); path != "" {
		economy, err := config.LoadEconomy(path)
		if err != nil {
			return nil, err
		}
		cfg.Economy = economy
	}
	return cfg, nil
}

// withServices открывает хранилище без HTTP-слоя и закрывает его после fn.
func withServices(cmd *cobra.Command, migrate bool, fn func(ctx context.Context, svc *bootstrap.Services) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.DatabaseDriver == config.DriverMemory {
		return fmt.Errorf("команде нужна база: задайте DATABASE_DRIVER=postgres или sqlite")
	}
	ctx := cmd.Context()
	stores, err := bootstrap.OpenStores(ctx, cfg, migrate)
	if err != nil {
		return err
	}
	defer stores.Close()

	svc, err := bootstrap.NewServices(stores, cfg.Economy, nil)
	if err != nil {
		return err
	}
	return fn(ctx, svc)
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
