package cmd

import (
	"github.com/oneconcern/tokenfs/pkg/token"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// config keys, bound to persistent flags
const (
	keyStorageRoot = "storageRoot"
	keyMetaDir     = "metaDir"
	keyBlobDir     = "blobDir"
	keyLogLevel    = "logLevel"
	keyOwner       = "owner"

	ownerFlag = "owner"
)

type flagsT struct {
	root struct {
		cpuProf bool
	}
	watch struct {
		metricsAddr  string
		initialIndex bool
	}
	node struct {
		parent string
		name   string
		output string
	}
}

var tokenfsFlags = flagsT{}

func bindPersistent(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func addStorageRootFlag(cmd *cobra.Command) string {
	const storageRoot = "storage-root"
	cmd.PersistentFlags().String(storageRoot, "", "The directory holding one directory per owner")
	bindPersistent(cmd, keyStorageRoot, storageRoot)
	return storageRoot
}

func addMetaDirFlag(cmd *cobra.Command) string {
	const metaDir = "meta-dir"
	cmd.PersistentFlags().String(metaDir, "", "The directory of the metadata store")
	bindPersistent(cmd, keyMetaDir, metaDir)
	return metaDir
}

func addBlobDirFlag(cmd *cobra.Command) string {
	const blobDir = "blob-dir"
	cmd.PersistentFlags().String(blobDir, "", "The directory of the blob store")
	bindPersistent(cmd, keyBlobDir, blobDir)
	return blobDir
}

func addLogLevelFlag(cmd *cobra.Command) string {
	const logLevel = "loglevel"
	cmd.PersistentFlags().String(logLevel, "", "The logging level: debug, info, warn or none")
	bindPersistent(cmd, keyLogLevel, logLevel)
	return logLevel
}

func addOwnerFlag(cmd *cobra.Command) string {
	cmd.PersistentFlags().String(ownerFlag, "", "The owner whose tree is operated on")
	bindPersistent(cmd, keyOwner, ownerFlag)
	return ownerFlag
}

func addCPUProfFlag(cmd *cobra.Command) string {
	const cpuProf = "cpuprof"
	cmd.PersistentFlags().BoolVar(&tokenfsFlags.root.cpuProf, cpuProf, false, "Write a CPU profile to cpu.prof")
	return cpuProf
}

func addMetricsAddrFlag(cmd *cobra.Command) string {
	const metricsAddr = "metrics-addr"
	cmd.Flags().StringVar(&tokenfsFlags.watch.metricsAddr, metricsAddr, "",
		"The address to serve prometheus metrics on, e.g. :9090. Metrics are not served when empty")
	return metricsAddr
}

func addInitialIndexFlag(cmd *cobra.Command) string {
	const initialIndex = "index"
	cmd.Flags().BoolVar(&tokenfsFlags.watch.initialIndex, initialIndex, false,
		"Index the whole tree of every owner before watching")
	return initialIndex
}

func addParentFlag(cmd *cobra.Command) string {
	const parent = "parent"
	cmd.Flags().StringVar(&tokenfsFlags.node.parent, parent, "",
		"The token of the parent folder. Defaults to the root folder of the owner")
	return parent
}

func addNameFlag(cmd *cobra.Command) string {
	const name = "name"
	cmd.Flags().StringVar(&tokenfsFlags.node.name, name, "", "The name of the uploaded file. Defaults to the base name of the local file")
	return name
}

func addOutputFlag(cmd *cobra.Command) string {
	const output = "output"
	cmd.Flags().StringVarP(&tokenfsFlags.node.output, output, "o", "", "The local file to write to. Defaults to the name of the downloaded file")
	return output
}

// parentToken returns the token of the parent folder set by flag, or the owner's root token
func parentToken(flag string, root token.Token) token.Token {
	if flag == "" {
		return root
	}
	return token.Token(flag)
}
