package cmd

import (
	"fmt"
	"os"
	"time"

	"fastproxy/internal/storage"
	"fastproxy/pkg/datehelper"
	"fastproxy/pkg/jsonhelper"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyJSON  bool
	historyDays  int

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "inspect the session event history",
	}

	historyListCmd = &cobra.Command{
		Use:   "list",
		Short: "show recent session events",
		Args:  cobra.NoArgs,
		Run:   historyList,
	}

	historyPruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "delete events older than --days",
		Args:  cobra.NoArgs,
		Run:   historyPrune,
	}
)

func openDatabase() *storage.Database {
	appStorage, err := storage.NewAppStorage()
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to open storage: %v\n", err)
		os.Exit(1)
	}
	db, err := storage.InitDatabase(appStorage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to open history database: %v\n", err)
		os.Exit(1)
	}
	return db
}

func historyList(_ *cobra.Command, _ []string) {
	db := openDatabase()
	defer db.Close()

	events, err := db.RecentEvents(historyLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to read history: %v\n", err)
		os.Exit(1)
	}

	if historyJSON {
		fmt.Println(string(jsonhelper.EncodeIndent(events)))
		return
	}

	if len(events) == 0 {
		fmt.Println("no events")
		return
	}
	for _, e := range events {
		fmt.Printf("%s  %-14s %s://%s@%s:%d",
			e.CreatedAt.Format(time.RFC3339), e.Event, e.Protocol, e.Username, e.Host, e.Port)
		if e.Detail != "" {
			fmt.Printf("  (%s)", e.Detail)
		}
		fmt.Println()
	}
}

func historyPrune(_ *cobra.Command, _ []string) {
	db := openDatabase()
	defer db.Close()

	pruned, err := db.PruneBefore(datehelper.DaysAgo(historyDays))
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to prune history: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("pruned %d events\n", pruned)
}

func init() {
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 50, "number of events to show")
	historyListCmd.Flags().BoolVar(&historyJSON, "json", false, "emit JSON")
	historyPruneCmd.Flags().IntVar(&historyDays, "days", 30, "keep events newer than this many days")
	historyCmd.AddCommand(historyListCmd, historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}
