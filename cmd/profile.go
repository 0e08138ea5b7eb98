package cmd

import (
	"fmt"
	"os"

	"fastproxy/internal/descriptor"
	"fastproxy/internal/profile"
	"fastproxy/internal/storage"

	"github.com/spf13/cobra"
)

var (
	profileAuto bool

	profileCmd = &cobra.Command{
		Use:   "profile",
		Short: "manage saved connection profiles",
	}

	profileAddCmd = &cobra.Command{
		Use:   "add <name> <descriptor>",
		Short: "save a descriptor under a name",
		Args:  cobra.ExactArgs(2),
		Run:   profileAdd,
	}

	profileListCmd = &cobra.Command{
		Use:   "list",
		Short: "list saved profiles",
		Args:  cobra.NoArgs,
		Run:   profileList,
	}

	profileRemoveCmd = &cobra.Command{
		Use:   "remove <name>",
		Short: "delete a saved profile",
		Args:  cobra.ExactArgs(1),
		Run:   profileRemove,
	}
)

func openProfiles() *profile.Manager {
	appStorage, err := storage.NewAppStorage()
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to open storage: %v\n", err)
		os.Exit(1)
	}
	mgr, err := profile.NewManager(appStorage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to load profiles: %v\n", err)
		os.Exit(1)
	}
	return mgr
}

func profileAdd(_ *cobra.Command, args []string) {
	mgr := openProfiles()
	p, err := mgr.Add(args[0], args[1], profileAuto)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to add profile: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("saved profile %q\n", p.Name)
}

func profileList(_ *cobra.Command, _ []string) {
	mgr := openProfiles()
	list := mgr.List()
	if len(list) == 0 {
		fmt.Println("no profiles")
		return
	}
	for _, p := range list {
		line := p.Name
		// never print the stored password
		if desc, err := descriptor.Parse(p.Descriptor); err == nil {
			line += "\t" + desc.Redacted()
		}
		if p.AutoConnect {
			line += "\t(auto)"
		}
		fmt.Println(line)
	}
}

func profileRemove(_ *cobra.Command, args []string) {
	mgr := openProfiles()
	if err := mgr.Remove(args[0]); err != nil {
		fmt.Fprintf(os.Stderr, "unable to remove profile: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("removed profile %q\n", args[0])
}

func init() {
	profileAddCmd.Flags().BoolVar(&profileAuto, "auto", false, "connect to this profile automatically")
	profileCmd.AddCommand(profileAddCmd, profileListCmd, profileRemoveCmd)
	rootCmd.AddCommand(profileCmd)
}
