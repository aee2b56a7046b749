package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cli := NewCLIWithDefaults()

	var err error

	switch os.Args[1] {
	case "submit":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: proofgate-cli submit <file> [submitter]")
			os.Exit(1)
		}
		submitter := ""
		if len(os.Args) > 3 {
			submitter = os.Args[3]
		}
		err = cli.Submit(os.Args[2], submitter)
	case "used":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: proofgate-cli used <fingerprint>")
			os.Exit(1)
		}
		err = cli.Used(os.Args[2])
	case "status":
		err = cli.Status()
	case "audit":
		limit := ""
		if len(os.Args) > 2 {
			limit = os.Args[2]
		}
		err = cli.Audit(limit)
	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
