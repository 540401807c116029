// Command watch follows a conversion job from the terminal, printing every
// reconciled status change until the job completes or fails.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kaito/tubegrab/internal/domain"
	"github.com/kaito/tubegrab/internal/syncclient"
)

func main() {
	var (
		server   = flag.String("server", "http://localhost:8080", "API server base URL")
		interval = flag.Duration("poll-interval", 0, "poll interval override (0 uses the client default)")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: watch [flags] <job-id>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	jobID := flag.Arg(0)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := syncclient.New(*server, &syncclient.Options{PollInterval: *interval})

	final, err := client.Watch(ctx, jobID, printUpdate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "watch failed: %v\n", err)
		os.Exit(1)
	}

	if final.Status == domain.JobStatusCompleted {
		fmt.Printf("done: %s\n", final.DownloadURL)
		return
	}
	fmt.Fprintf(os.Stderr, "conversion failed: %s\n", final.ErrorMessage)
	os.Exit(1)
}

func printUpdate(snap *domain.StatusSnapshot) {
	ts := time.Now().Format("15:04:05")
	switch snap.Status {
	case domain.JobStatusCompleted:
		fmt.Printf("[%s] completed\n", ts)
	case domain.JobStatusFailed:
		fmt.Printf("[%s] failed: %s\n", ts, snap.ErrorMessage)
	default:
		title := ""
		if snap.Metadata != nil && snap.Metadata.Title != "" {
			title = " " + snap.Metadata.Title
		}
		fmt.Printf("[%s] %s %d%%%s\n", ts, snap.Status, snap.Progress, title)
	}
}
