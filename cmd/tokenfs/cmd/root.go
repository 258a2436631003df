// Copyright © 2018 One Concern

package cmd

import (
	"fmt"
	"log"
	"os"
	"runtime/pprof"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tokenfs",
	Short: "tokenfs indexes personal file trees behind opaque tokens",
	Long: `tokenfs maintains an index of the file trees of several owners.

Each owner has a directory under the storage root. Files and folders are addressed by tokens
derived from their path relative to the owner's directory, never by the path itself.

The index is kept in sync with the storage area by watching the file system.
`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if tokenfsFlags.root.cpuProf {
			f, err := os.Create("cpu.prof")
			if err != nil {
				wrapFatalln("create cpu profile", err)
				return
			}
			_ = pprof.StartCPUProfile(f)
		}
	},
	// upstream api note:  *PostRun functions aren't called in case of a panic() in Run
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if tokenfsFlags.root.cpuProf {
			pprof.StopCPUProfile()
		}
	},
}

var config *CLIConfig

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		osExit(1)
	}
}

func init() {
	log.SetFlags(0)
	cobra.OnInitialize(initConfig)

	addStorageRootFlag(rootCmd)
	addMetaDirFlag(rootCmd)
	addBlobDirFlag(rootCmd)
	addLogLevelFlag(rootCmd)
	addOwnerFlag(rootCmd)
	addCPUProfFlag(rootCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.SetDefault(keyStorageRoot, "data")
	viper.SetDefault(keyMetaDir, ".tokenfs/meta")
	viper.SetDefault(keyBlobDir, ".tokenfs/blobs")
	viper.SetDefault(keyLogLevel, "info")

	if os.Getenv("TOKENFS_CONFIG") != "" {
		viper.SetConfigFile(os.Getenv("TOKENFS_CONFIG"))
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.tokenfs")
		viper.AddConfigPath("/etc/tokenfs")
		viper.SetConfigName("tokenfs")
	}

	viper.SetEnvPrefix("tokenfs")
	viper.AutomaticEnv() // read in environment variables that match
	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		log.Println("Using config file:", viper.ConfigFileUsed())
	}

	var err error
	config, err = newConfig()
	if err != nil {
		wrapFatalln("read config", err)
		return
	}
}
