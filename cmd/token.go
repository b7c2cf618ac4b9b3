package cmd

import (
	"fmt"

	internalApp "github.com/haierkeys/notely-service/internal/app"
	pkgapp "github.com/haierkeys/notely-service/pkg/app"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type tokenFlags struct {
	config   string
	uid      int64
	nickname string
}

func init() {
	flags := new(tokenFlags)

	var tokenCommand = &cobra.Command{
		Use:   "token --uid N [-c config_file]",
		Short: "Generate an auth token for a user // 为用户生成授权令牌",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.uid <= 0 {
				return fmt.Errorf("--uid must be greater than 0")
			}
			if flags.config == "" {
				flags.config = findConfigFile()
			}
			cfg, _, err := internalApp.LoadConfig(flags.config)
			if err != nil {
				return err
			}

			tm := pkgapp.NewTokenManager(pkgapp.TokenConfig{
				SecretKey: cfg.Security.AuthTokenKey,
				Expiry:    cfg.GetTokenExpiry(),
				Issuer:    internalApp.Name,
			})
			token, err := tm.Generate(flags.uid, flags.nickname, "")
			if err != nil {
				return err
			}
			bootstrapLogger.Debug("token generated", zap.Int64("uid", flags.uid))
			fmt.Println(token)
			return nil
		},
	}

	rootCmd.AddCommand(tokenCommand)
	fs := tokenCommand.Flags()
	fs.StringVarP(&flags.config, "config", "c", "", "config file")
	fs.Int64Var(&flags.uid, "uid", 0, "user id")
	fs.StringVar(&flags.nickname, "nickname", "", "user nickname")
}
