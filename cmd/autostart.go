package cmd

import (
	"fmt"
	"os"

	"fastproxy/pkg/startup"

	"github.com/spf13/cobra"
)

var (
	autostartCmd = &cobra.Command{
		Use:   "autostart",
		Short: "manage launch at login",
	}

	autostartEnableCmd = &cobra.Command{
		Use:   "enable",
		Short: "run fastproxy connect at login",
		Args:  cobra.NoArgs,
		Run:   autostartEnable,
	}

	autostartDisableCmd = &cobra.Command{
		Use:   "disable",
		Short: "stop running fastproxy at login",
		Args:  cobra.NoArgs,
		Run:   autostartDisable,
	}

	autostartStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "report whether autostart is enabled",
		Args:  cobra.NoArgs,
		Run:   autostartStatus,
	}
)

func autostartManager() startup.StartupManager {
	// the launched command connects to the auto-connect profile
	return startup.NewStartupManager(appName, "connect")
}

func autostartEnable(_ *cobra.Command, _ []string) {
	if err := autostartManager().Enable(); err != nil {
		fmt.Fprintf(os.Stderr, "unable to enable autostart: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("autostart enabled")
}

func autostartDisable(_ *cobra.Command, _ []string) {
	if err := autostartManager().Disable(); err != nil {
		fmt.Fprintf(os.Stderr, "unable to disable autostart: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("autostart disabled")
}

func autostartStatus(_ *cobra.Command, _ []string) {
	if autostartManager().IsEnabled() {
		fmt.Println("autostart is enabled")
	} else {
		fmt.Println("autostart is disabled")
	}
}

func init() {
	autostartCmd.AddCommand(autostartEnableCmd, autostartDisableCmd, autostartStatusCmd)
	rootCmd.AddCommand(autostartCmd)
}
