package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/micromdm/profilebuilder/payload"
	"github.com/micromdm/profilebuilder/pppc"
)

type catalogCommand struct{}

func (cmd *catalogCommand) Run(args []string) error {
	flagset := flag.NewFlagSet("catalog", flag.ExitOnError)
	var (
		flCategory = flagset.String("category", "", "only list payloads in this category")
		flSearch   = flagset.String("search", "", "case-insensitive search over name, description and category")
		flSettings = flagset.Bool("settings", false, "also list each payload's known settings")
	)
	flagset.Usage = usageFor(flagset, "profilectl catalog [flags]")
	if err := flagset.Parse(args); err != nil {
		return err
	}

	var category payload.Category
	if *flCategory != "" {
		for _, c := range payload.Categories {
			if strings.EqualFold(string(c), *flCategory) {
				category = c
			}
		}
		if category == "" {
			return fmt.Errorf("unknown category %q", *flCategory)
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "ID\tName\tCategory\tPayloadType\tPlatforms\n")
	for _, e := range payload.DefaultCatalog().Filter(category, *flSearch) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Name, e.Category, e.AppleType(), strings.Join(e.Platforms, ","))
		if !*flSettings {
			continue
		}
		for _, s := range e.Settings {
			required := ""
			if s.Required {
				required = " (required)"
			}
			fmt.Fprintf(w, "\t  %s\t%s%s\t\t\n", s.Key, s.Kind, required)
		}
	}
	return nil
}

func listServices(args []string) error {
	flagset := flag.NewFlagSet("services", flag.ExitOnError)
	flagset.Usage = usageFor(flagset, "profilectl services")
	if err := flagset.Parse(args); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "ID\tName\tCategory\tKey\tCodeRequirement\n")
	for _, s := range pppc.Services() {
		req := "optional"
		if s.RequiresCodeRequirement {
			req = "required"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Name, s.Category, s.Key, req)
	}
	return nil
}
