package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/micromdm/profilebuilder/profile"
)

type historyCommand struct{}

func (cmd *historyCommand) Run(args []string) error {
	if len(args) < 1 {
		args = []string{"list"}
	}
	var run func([]string) error
	switch strings.ToLower(args[0]) {
	case "list":
		run = cmd.list
	case "show":
		run = cmd.show
	case "remove":
		run = cmd.remove
	default:
		cmd.Usage()
		os.Exit(1)
	}
	return run(args[1:])
}

func (cmd *historyCommand) Usage() error {
	const help = `
Inspect profiles exported or deployed from this machine.

Commands:

  * list     list saved profiles
  * show     print a saved profile
  * remove   forget a saved profile
`
	fmt.Print(help + "\n")
	return nil
}

func (cmd *historyCommand) list(args []string) error {
	cfg, err := LoadClientConfig()
	if err != nil {
		return err
	}
	return withStore(cfg, func(store profile.Store) error {
		profiles, err := store.List()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		defer w.Flush()
		fmt.Fprintf(w, "Identifier\tSize\n")
		for _, p := range profiles {
			fmt.Fprintf(w, "%s\t%d\n", p.Identifier, len(p.Mobileconfig))
		}
		return nil
	})
}

func (cmd *historyCommand) show(args []string) error {
	flagset := flag.NewFlagSet("show", flag.ExitOnError)
	flIdentifier := flagset.String("id", "", "profile identifier")
	flagset.Usage = usageFor(flagset, "profilectl history show -id com.acme.wifi")
	if err := flagset.Parse(args); err != nil {
		return err
	}
	if *flIdentifier == "" {
		return errors.New("bad input: must provide -id")
	}
	cfg, err := LoadClientConfig()
	if err != nil {
		return err
	}
	return withStore(cfg, func(store profile.Store) error {
		p, err := store.ProfileById(*flIdentifier)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(p.Mobileconfig)
		return err
	})
}

func (cmd *historyCommand) remove(args []string) error {
	flagset := flag.NewFlagSet("remove", flag.ExitOnError)
	flIdentifier := flagset.String("id", "", "profile identifier")
	flagset.Usage = usageFor(flagset, "profilectl history remove -id com.acme.wifi")
	if err := flagset.Parse(args); err != nil {
		return err
	}
	if *flIdentifier == "" {
		return errors.New("bad input: must provide -id")
	}
	cfg, err := LoadClientConfig()
	if err != nil {
		return err
	}
	return withStore(cfg, func(store profile.Store) error {
		if err := store.Delete(*flIdentifier); err != nil {
			if profile.IsNotFound(err) {
				return errors.Errorf("no saved profile %s", *flIdentifier)
			}
			return err
		}
		fmt.Printf("removed %s\n", *flIdentifier)
		return nil
	})
}
