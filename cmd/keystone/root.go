// Command keystone is a demo host process: it wires a reference
// Backend and Delegate to the analyzer and exposes the exact
// (id, interval) query surface over HTTP, plus a websocket relay for
// status notifications.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "keystone",
	Short: "Run the keystone event-analytics engine as a standalone process",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a keystone.yaml config file")
	rootCmd.AddCommand(serveCmd)
}

func initConfig() {
	viper.SetEnvPrefix("KEYSTONE")
	viper.AutomaticEnv()
	viper.SetDefault("listen_addr", ":8080")
	viper.SetDefault("sqlite_path", "keystone.db")
	viper.SetDefault("user_identifier", "demo-user")
	viper.SetDefault("create_search_index", true)

	if configPath != "" {
		viper.SetConfigFile(configPath)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "keystone: reading config %s: %v\n", configPath, err)
		}
	}
}

func main() {
	cobra.OnInitialize(initConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
