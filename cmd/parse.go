package cmd

import (
	"fmt"
	"os"

	"fastproxy/internal/descriptor"
	"fastproxy/pkg/jsonhelper"

	"github.com/spf13/cobra"
)

var (
	parseJSON bool

	parseCmd = &cobra.Command{
		Use:   "parse <descriptor>",
		Short: "validate a connection descriptor and print its parts",
		Args:  cobra.ExactArgs(1),
		Run:   parse,
	}
)

func parse(_ *cobra.Command, args []string) {
	desc, err := descriptor.Parse(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid descriptor: %v\n", err)
		os.Exit(1)
	}

	if parseJSON {
		fmt.Println(string(jsonhelper.EncodeIndent(desc)))
		return
	}

	fmt.Printf("protocol: %s\n", desc.Protocol)
	fmt.Printf("host:     %s\n", desc.Host)
	fmt.Printf("port:     %d\n", desc.Port)
	fmt.Printf("username: %s\n", desc.Username)
	fmt.Printf("redacted: %s\n", desc.Redacted())
}

func init() {
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "emit JSON")
	rootCmd.AddCommand(parseCmd)
}
