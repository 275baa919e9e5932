package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
	"github.com/ledgerclerk/ledgerclerk/pkg/instruction"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	// Load config
	config := LoadConfig()
	SetupLogging(config)

	// define root command
	rootCmd := &cobra.Command{
		Use:   "ledgerclerk",
		Short: "Decode, watch and summarize invoice-claim program accounts",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
			os.Exit(0)
		},
	}

	// Add flags for each configuration option
	rootCmd.PersistentFlags().StringVar(&config.Clerk.ProgramID, "program-id", config.Clerk.ProgramID, "Program ID")
	rootCmd.PersistentFlags().StringVar(&config.Clerk.Network, "network", config.Clerk.Network, "RPC network (key into [RPC])")
	rootCmd.PersistentFlags().StringVar(&config.Store.DBFile, "store-db-file", config.Store.DBFile, "Store DB file or postgres:// URL")
	rootCmd.PersistentFlags().StringVar(&config.WebAPI.AdminPort, "admin-port", config.WebAPI.AdminPort, "Admin API port")
	rootCmd.PersistentFlags().StringVar(&config.WebAPI.PubPort, "pub-port", config.WebAPI.PubPort, "Public API port")
	// Bind flags to config fields
	viper.BindPFlags(rootCmd.PersistentFlags())

	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Start the ledgerclerk server",
		Run: func(cmd *cobra.Command, args []string) {
			Server(config)
		},
	}

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the program once and print a summary with diagnostics",
		Run: func(cmd *cobra.Command, args []string) {
			exitOnError(Scan(config))
		},
	}

	var params clerk.DeriveParams
	var authority, org, invoice string
	var nonce int64
	deriveCmd := &cobra.Command{
		Use:       "derive <kind>",
		Short:     "Print the program address and bump of an account",
		Long:      "Kinds: " + strings.Join(clerk.DeriveKinds, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: clerk.DeriveKinds,
		Run: func(cmd *cobra.Command, args []string) {
			for _, a := range []struct {
				value string
				out   *clerk.Address
			}{{authority, &params.Authority}, {org, &params.Org}, {invoice, &params.Invoice}} {
				if a.value == "" {
					continue
				}
				addr, err := clerk.ParseAddress(a.value)
				exitOnError(err)
				*a.out = addr
			}
			if cmd.Flags().Changed("nonce") {
				n := uint64(nonce)
				params.Nonce = &n
			}
			exitOnError(Derive(config, args[0], params))
		},
	}
	deriveCmd.Flags().StringVar(&authority, "authority", "", "Authority or requester address")
	deriveCmd.Flags().StringVar(&org, "org", "", "OrgConfig address")
	deriveCmd.Flags().StringVar(&invoice, "invoice", "", "Invoice address")
	deriveCmd.Flags().StringVar(&params.VendorName, "vendor-name", "", "Vendor name")
	deriveCmd.Flags().StringVar(&params.ContentRef, "content-ref", "", "Content reference (CID)")
	deriveCmd.Flags().Int64Var(&nonce, "nonce", 0, "Request/invoice nonce")

	var encodeArgs string
	encodeCmd := &cobra.Command{
		Use:   "encode <action>",
		Short: "Print an encoded program instruction",
		Long:  "Actions: " + strings.Join(instruction.Actions(), ", "),
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			exitOnError(Encode(config, args[0], encodeArgs))
		},
	}
	encodeCmd.Flags().StringVar(&encodeArgs, "args", "{}", "Instruction arguments as JSON")

	inspectCmd := &cobra.Command{
		Use:   "inspect <address|hex>",
		Short: "Fetch or parse one account and print its fields",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			exitOnError(Inspect(config, args[0]))
		},
	}

	var sub SubCommandArgs
	rescanCmd := &cobra.Command{
		Use:   "rescan",
		Short: "Ask a running server to scan now",
		Run: func(cmd *cobra.Command, args []string) {
			exitOnError(Rescan(config, sub))
		},
	}
	rescanCmd.Flags().StringVar(&sub.RemoteAdminServer, "remote", "", "Admin API base URL, ie: http://localhost:8081/")

	configCmd := &cobra.Command{
		Use:   "showconf",
		Short: "Print the config state and exit",
		Run: func(cmd *cobra.Command, args []string) {
			o, _ := json.MarshalIndent(config, ">", " ")
			fmt.Println(string(o))
			os.Exit(0)
		},
	}

	rootCmd.AddCommand(serverCmd, scanCmd, deriveCmd, encodeCmd, inspectCmd, rescanCmd, configCmd)

	// Execute the Cobra command
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// LoadConfig finds the config file the way the server always has (CLERK_ENV
// names it, searched in ., /etc/ledgerclerk/ and $HOME/.ledgerclerk) and
// loads it with defaults and CLERK_* environment overrides applied.
func LoadConfig() clerk.Config {
	configFileName, set := os.LookupEnv("CLERK_ENV")
	if set {
		viper.SetConfigName(configFileName)
	} else {
		viper.SetConfigName("config")
	}

	// Set config file name and search paths
	viper.SetConfigType("toml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/ledgerclerk/")
	viper.AddConfigPath("$HOME/.ledgerclerk")

	paths := []string{}
	if err := viper.ReadInConfig(); err != nil {
		if _, missing := err.(viper.ConfigFileNotFoundError); !missing {
			fmt.Println("failed to read config file: ", err)
			os.Exit(1)
		}
		// no file: defaults and environment only.
	} else {
		paths = append(paths, viper.ConfigFileUsed())
	}

	config, err := clerk.LoadConfig(paths...)
	if err != nil {
		panic(fmt.Errorf("failed to load config: %s", err))
	}
	return config
}
