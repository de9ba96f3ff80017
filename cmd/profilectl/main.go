package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/micromdm/go4/version"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	var run func([]string) error
	switch strings.ToLower(os.Args[1]) {
	case "version", "-version":
		version.Print()
		return
	case "config":
		cmd := &configCommand{}
		run = cmd.Run
	case "catalog":
		cmd := &catalogCommand{}
		run = cmd.Run
	case "services":
		run = listServices
	case "validate":
		cmd := &buildCommand{validateOnly: true}
		run = cmd.Run
	case "build":
		cmd := &buildCommand{}
		run = cmd.Run
	case "wizard":
		cmd := &wizardCommand{}
		run = cmd.Run
	case "deploy":
		cmd := &deployCommand{}
		run = cmd.Run
	case "history":
		cmd := &historyCommand{}
		run = cmd.Run
	default:
		usage()
		os.Exit(1)
	}

	if err := run(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func usage() error {
	helpText := `USAGE: profilectl <COMMAND>

Available Commands:
	catalog
	services
	validate
	build
	wizard
	deploy
	history
	config
	version

Use profilectl <command> -h for additional usage of each command.
Example: profilectl build -f wifi.yaml
`
	fmt.Println(helpText)
	return nil
}

func usageFor(fs *flag.FlagSet, short string) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "USAGE\n")
		fmt.Fprintf(os.Stderr, "  %s\n", short)
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "FLAGS\n")
		w := tabwriter.NewWriter(os.Stderr, 0, 2, 2, ' ', 0)
		fs.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(w, "\t-%s %s\t%s\n", f.Name, f.DefValue, f.Usage)
		})
		w.Flush()
		fmt.Fprintf(os.Stderr, "\n")
	}
}
