package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "BROWNIE"

var (
	cfgFile string
	v       = newViper()
)

var rootCmd = &cobra.Command{
	Use:   "brownie",
	Short: "Brownie is a signed-request authentication server",
	Long: `Brownie authenticates browser clients with SRP-6a logins and verifies
every API request against the ECDSA key of the calling device.

Settings are read from flags, BROWNIE_* environment variables and an
optional config file, in that order of precedence.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return readConfig(v, cfgFile)
	},
}

func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (yaml, json or toml)")
}

// newViper returns a viper instance that maps keys like "smtp.sender-name"
// to BROWNIE_SMTP_SENDER_NAME.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func readConfig(v *viper.Viper, file string) error {
	if file == "" {
		return nil
	}
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", file, err)
	}
	return nil
}
