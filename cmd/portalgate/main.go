package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"portalgate/constant"
	portalgateAPI "portalgate/pkg/portalgate-api"
)

var client portalgateAPI.Client

func main() {
	var socketPath string

	rootCmd := &cobra.Command{
		Use:     "portalgate",
		Short:   "Control the portalgate daemon",
		Version: constant.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			client = portalgateAPI.NewClient(socketPath)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", portalgateAPI.DefaultSocketPath, "control socket path")

	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(authServersCmd())
	rootCmd.AddCommand(clientsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Run: func(cmd *cobra.Command, args []string) {
			res, err := client.Status()
			if err != nil {
				fatal(err)
			}
			fmt.Printf("version:    %s\n", res.Version)
			fmt.Printf("uptime:     %s\n", time.Duration(res.UptimeSeconds)*time.Second)
			fmt.Printf("gateway:    %s (%s, %s:%d)\n", res.GatewayID, res.GatewayInterface, res.GatewayAddress, res.GatewayPort)
			fmt.Printf("authserver: %s\n", res.AuthServer)
			fmt.Printf("clients:    %d\n", res.ClientCount)
			for _, rs := range res.Rulesets {
				fmt.Printf("ruleset:    %s\n", rs)
			}
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Dump the running configuration as YAML",
		Run: func(cmd *cobra.Command, args []string) {
			out, err := client.ConfigYAML()
			if err != nil {
				fatal(err)
			}
			fmt.Print(out)
		},
	}
}

func authServersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authservers",
		Short: "Auth server commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "rotate",
		Short: "Demote the current auth server to the end of the list",
		Run: func(cmd *cobra.Command, args []string) {
			res, err := client.RotateAuthServer()
			if err != nil {
				fatal(err)
			}
			fmt.Printf("current auth server: %s\n", res.AuthServer)
		},
	})
	return cmd
}

func clientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "Connected client commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List connected clients",
		Run: func(cmd *cobra.Command, args []string) {
			res, err := client.Clients()
			if err != nil {
				fatal(err)
			}
			for _, c := range res {
				fmt.Printf("%-15s %-17s last seen %s\n", c.IP, c.MAC, c.LastSeen.Format(time.RFC3339))
			}
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "kick <ip>",
		Short: "Revoke a client's access",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := client.KickClient(args[0]); err != nil {
				fatal(err)
			}
			fmt.Println("ok")
		},
	})
	return cmd
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
