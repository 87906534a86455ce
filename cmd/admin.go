package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/anoixa/image-theatre/config"
	"github.com/anoixa/image-theatre/database/repo/accounts"
	"github.com/anoixa/image-theatre/internal/app"
	"github.com/anoixa/image-theatre/internal/auth"
	"github.com/anoixa/image-theatre/utils"
	"github.com/spf13/cobra"
)

// adminCmd 账户管理命令
var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Account management commands",
}

// resetPasswordCmd 重置密码
var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Reset the password of an account",
	Long: `Reset the password of an account. A random password is generated when --password is omitted.

Example:
  image-theatre admin reset-password --username admin`,
	Run: func(cmd *cobra.Command, args []string) {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")

		if err := runResetPassword(username, password); err != nil {
			log.Fatalf("Reset password failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(resetPasswordCmd)

	resetPasswordCmd.Flags().StringP("username", "u", "admin", "Account username")
	resetPasswordCmd.Flags().StringP("password", "p", "", "New password (random when empty)")
}

func runResetPassword(username, password string) error {
	config.InitConfig()

	container := app.NewContainer(config.Get())
	if err := container.InitDatabase(); err != nil {
		return err
	}
	defer func() { _ = container.Close() }()

	generated, err := resetPassword(context.Background(), container.AccountsRepo, username, password)
	if err != nil {
		return err
	}
	if generated != "" {
		fmt.Printf("New password for %s: %s\n", username, generated)
	} else {
		fmt.Printf("Password for %s updated\n", username)
	}
	return nil
}

// resetPassword 重置密码，password 为空时生成随机密码并返回
func resetPassword(ctx context.Context, repo *accounts.Repository, username, password string) (string, error) {
	var generated string
	if password == "" {
		p, err := utils.GenerateRandomPassword(16)
		if err != nil {
			return "", err
		}
		password, generated = p, p
	}

	// 重置密码不签发令牌
	svc := auth.NewLoginService(repo, nil)
	if err := svc.ResetPassword(ctx, username, password); err != nil {
		return "", err
	}
	return generated, nil
}
