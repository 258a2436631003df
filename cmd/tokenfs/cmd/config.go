package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

// CLIConfig describes the CLI configuration.
type CLIConfig struct {
	// names of fields are kept the same as the serialized names, for viper to unmarshal them
	StorageRoot string `json:"storageRoot" yaml:"storageRoot"` // Directory holding one sub-directory per owner
	MetaDir     string `json:"metaDir" yaml:"metaDir"`         // Directory of the metadata store
	BlobDir     string `json:"blobDir" yaml:"blobDir"`         // Directory of the blob store
	LogLevel    string `json:"logLevel" yaml:"logLevel"`       // One of debug, info, warn, none
	Owner       string `json:"owner" yaml:"owner"`             // Owner operated on by default
}

func newConfig() (*CLIConfig, error) {
	var config CLIConfig
	err := viper.Unmarshal(&config)
	if err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *CLIConfig) owner() (string, error) {
	if c.Owner == "" {
		return "", fmt.Errorf("an owner is required: use --%s or the %q config key", ownerFlag, keyOwner)
	}
	return c.Owner, nil
}

// configCmd prints the effective configuration
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration resulting from the config file, the TOKENFS_* environment variables and the flags.

The output is a valid config file.`,
	Example: `% tokenfs config --owner alice > tokenfs.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		b, err := yaml.Marshal(config)
		if err != nil {
			wrapFatalln("marshal config", err)
			return
		}
		_, _ = cmd.OutOrStdout().Write(b)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
