package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	devConfig "github.com/Daskott/guardian/dev/config"
	"github.com/Daskott/guardian/server"
	"github.com/Daskott/guardian/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start a guardian server",
	Long: `The guardian server analyzes camera frames, records alerts and
notifies emergency contacts over sms, call, email and push.`,
	Run: func(cmd *cobra.Command, args []string) {
		config, err := serverConfig()
		cobra.CheckErr(err)

		server.Start(config, isDevEnv)
	},
}

var serverConfigFile string

// secretEnvs lets secrets live in the environment instead of the config file.
var secretEnvs = map[string]string{
	"guardian.privateKeyPem":        "GUARDIAN_PRIVATE_KEY_PEM",
	"guardian.privateKeyFile":       "GUARDIAN_PRIVATE_KEY_FILE",
	"database.dsn":                  "DATABASE_URL",
	"vision.apiKey":                 "VISION_API_KEY",
	"notify.twilio.accountSid":      "TWILIO_ACCOUNT_SID",
	"notify.twilio.authToken":       "TWILIO_AUTH_TOKEN",
	"notify.email.smtpURL":          "SMTP_URL",
	"google.applicationCredentials": "GOOGLE_APPLICATION_CREDENTIALS",
	"sentry.dsn":                    "SENTRY_DSN",
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVar(&serverConfigFile, "sconfig", "", "config file for the server (required unless --dev)")
}

func serverConfig() (*viper.Viper, error) {
	config := viper.New()

	if isDevEnv {
		path, err := devConfigFilePath()
		if err != nil {
			return nil, err
		}
		serverConfigFile = path
	}

	if serverConfigFile == "" {
		return nil, formattedError("--sconfig is required when not running with --dev")
	}

	config.SetConfigFile(serverConfigFile)
	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()

	for key, env := range secretEnvs {
		if err := config.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if err := config.ReadInConfig(); err != nil {
		return nil, formattedError("error reading server config file: %v", err)
	}

	return config, nil
}

// devConfigFilePath returns dev/config/server.yml, creating it from the
// bundled dev config the first time.
func devConfigFilePath() (string, error) {
	rootDir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	configDir := filepath.Join(rootDir, "dev", "config")
	if err = utils.CreateDirIfNotExist(configDir); err != nil {
		return "", err
	}

	configFilePath := filepath.Join(configDir, "server.yml")
	if _, err := os.Stat(configFilePath); errors.Is(err, os.ErrNotExist) {
		if err = os.WriteFile(configFilePath, []byte(devConfig.SERVER_YML), 0600); err != nil {
			return "", err
		}
	}

	return configFilePath, nil
}
