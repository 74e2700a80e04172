package main

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/raniellyferreira/respkv"
)

// envPrefix prefixes every environment variable read by the CLI
const envPrefix = "respkv"

func newRootCmd() *cobra.Command {
	v := newViper()

	root := &cobra.Command{
		Use:   "respkv",
		Short: "in-memory key-value server speaking RESP",
		Long: fmt.Sprintf(`respkv (v%s)

A small in-memory key-value server compatible with Redis clients for
PING, ECHO, SET, GET, INFO replication, REPLCONF and EVAL. It can run as a
master or as a replica that performs the replication handshake with its
master on startup.`, respkv.Version),
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd(v))
	root.AddCommand(newPingCmd(v))
	root.AddCommand(newInfoCmd(v))
	root.AddCommand(newVersionCmd())
	return root
}

// newViper loads env files and returns a viper instance reading RESPKV_*
// environment variables
func newViper() *viper.Viper {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv() // read in environment variables that match
	return v
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of respkv",
		Run: func(cmd *cobra.Command, _ []string) {
			info := respkv.VersionInfo()
			out := "respkv v" + info["version"]
			if commit := info["commit"]; commit != "" {
				out += " (" + commit + ")"
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
		},
	}
}
