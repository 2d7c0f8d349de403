package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ignatzorin/vix-backend/internal/bootstrap"
	"github.com/ignatzorin/vix-backend/internal/domain/policy"
	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/vix-backend/internal/service"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(topUpCmd)
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(tokenCmd)

	topUpCmd.Flags().Int64P("amount", "a", 0, "сумма VP")
	topUpCmd.Flags().StringP("ref", "r", "", "идентификатор платежа (ключ идемпотентности)")
	_ = topUpCmd.MarkFlagRequired("amount")
	_ = topUpCmd.MarkFlagRequired("ref")

	historyCmd.Flags().IntP("limit", "n", 20, "сколько записей показать")

	tokenCmd.Flags().String("role", string(valueobject.RoleBoth), "роль: client, provider или both")
	tokenCmd.Flags().Duration("ttl", time.Hour, "время жизни токена")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Применить миграции базы",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withServices(cmd, true, func(context.Context, *bootstrap.Services) error {
			fmt.Fprintln(out(cmd), "миграции применены")
			return nil
		})
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Сверить эскроу, балансы и контрольные суммы журнала",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withServices(cmd, false, func(ctx context.Context, svc *bootstrap.Services) error {
			report, err := svc.Reconciler.Run(ctx)
			if err != nil {
				return err
			}
			w := out(cmd)
			fmt.Fprintf(w, "эскроу: %d VP, ожидается %d VP\n", report.EscrowBalance, report.EscrowExpected)
			for _, id := range report.NegativeAccounts {
				fmt.Fprintf(w, "отрицательный баланс: %s\n", id)
			}
			for _, id := range report.CorruptedTransfers {
				fmt.Fprintf(w, "контрольная сумма не совпала: %s\n", id)
			}
			if !report.OK() {
				return fmt.Errorf("найдено расхождений: %d", report.Mismatches())
			}
			fmt.Fprintln(w, "расхождений нет")
			return nil
		})
	},
}

var topUpCmd = &cobra.Command{
	Use:   "top-up USER_ID",
	Short: "Зачислить купленные VP на счёт пользователя",
	Args:  cobra.ExactArgs(1),
	RunE:  runTopUp,
}

func runTopUp(cmd *cobra.Command, args []string) error {
	userID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("некорректный id пользователя: %w", err)
	}
	amount, _ := cmd.Flags().GetInt64("amount")
	ref, _ := cmd.Flags().GetString("ref")

	return withServices(cmd, false, func(ctx context.Context, svc *bootstrap.Services) error {
		if _, _, err := svc.Accounts.Register(ctx, userID); err != nil {
			return err
		}
		t, err := svc.Accounts.TopUp(ctx, userID, amount, ref)
		if err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "зачислено %d VP, перевод %s\n", t.Amount, t.ID)
		return nil
	})
}

var balanceCmd = &cobra.Command{
	Use:   "balance USER_ID",
	Short: "Показать балансы VP и VC",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("некорректный id пользователя: %w", err)
		}
		return withServices(cmd, false, func(ctx context.Context, svc *bootstrap.Services) error {
			b, err := svc.Accounts.GetBalance(ctx, policy.Actor{UserID: userID, Role: valueobject.RoleBoth})
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "VP: %d\nVC: %d (~%d VP по курсу %s)\n", b.VPBalance, b.VCBalance, b.VCValueInVP, b.ConversionRate)
			return nil
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history ACCOUNT_ID",
	Short: "Журнал переводов счёта, включая служебные",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		accountID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("некорректный id счёта: %w", err)
		}
		limit, _ := cmd.Flags().GetInt("limit")

		return withServices(cmd, false, func(ctx context.Context, svc *bootstrap.Services) error {
			transfers, err := svc.Accounts.History(ctx, accountID, limit, 0)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ВРЕМЯ\tОТ\tКОМУ\tСУММА\tПРИЧИНА\tКЛЮЧ")
			for _, t := range transfers {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d %s\t%s\t%s\n",
					t.CreatedAt.Format(time.RFC3339), t.From, t.To, t.Amount, t.Currency, t.Reason, t.IdempotencyKey)
			}
			return tw.Flush()
		})
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token USER_ID",
	Short: "Выпустить access-токен для отладки",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("некорректный id пользователя: %w", err)
		}
		role, _ := cmd.Flags().GetString("role")
		if _, err := valueobject.NewRole(role); err != nil {
			return err
		}
		ttl, _ := cmd.Flags().GetDuration("ttl")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		token, expires, err := service.NewTokenManager(cfg.JWTSecret, ttl).Issue(userID, valueobject.Role(role))
		if err != nil {
			return err
		}
		fmt.Fprintln(out(cmd), token)
		fmt.Fprintf(cmd.ErrOrStderr(), "действует до %s\n", expires.Format(time.RFC3339))
		return nil
	},
}
