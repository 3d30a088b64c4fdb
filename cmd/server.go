package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/suraksha-app/suraksha/server"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start a suraksha server",
	Long:  `The suraksha server houses signup, emergency contacts & SOS alert dispatch`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start(serverConfig(), isDevEnv)
	},
}

var serverConfigFile string

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVar(&serverConfigFile, "sconfig", "", "Config for server")
}

func serverConfig() *viper.Viper {
	config := viper.New()

	if isDevEnv && serverConfigFile == "" {
		serverConfigFile = devConfigFilePath()
	}

	config.SetConfigFile(serverConfigFile)

	// The twilio credential can come from the environment instead of the
	// config file; the env var wins when both are set.
	config.BindEnv("twilio.accountSid", "TWILIO_ACCOUNT_SID")
	config.BindEnv("twilio.authToken", "TWILIO_AUTH_TOKEN")
	config.BindEnv("twilio.messagingServiceSid", "TWILIO_MESSAGING_SERVICE_SID")
	config.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := config.ReadInConfig(); err != nil {
		log.Panic(fmt.Sprintf("error reading server config file: %v", err))
	}

	return config
}

func devConfigFilePath() string {
	configDir, err := os.Getwd()
	if err != nil {
		log.Panic(err)
	}

	return filepath.Join(configDir, "dev", "config", "server.yml")
}
