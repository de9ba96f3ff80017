package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/micromdm/go4/env"
	"github.com/pkg/errors"

	"github.com/micromdm/profilebuilder/payload"
	"github.com/micromdm/profilebuilder/profile"
)

type buildCommand struct {
	validateOnly bool
}

func (cmd *buildCommand) Run(args []string) error {
	name := "build"
	if cmd.validateOnly {
		name = "validate"
	}
	flagset := flag.NewFlagSet(name, flag.ExitOnError)
	var (
		flDraft  = flagset.String("f", "", "path to a YAML profile draft")
		flOut    = flagset.String("out", env.String("PROFILEBUILDER_EXPORT_DIR", ""), "directory to write the .mobileconfig to (default ~/Downloads)")
		flStdout = flagset.Bool("stdout", false, "write the profile to stdout instead of a file")
	)
	flagset.Usage = usageFor(flagset, fmt.Sprintf("profilectl %s -f draft.yaml [flags]", name))
	if err := flagset.Parse(args); err != nil {
		return err
	}
	if *flDraft == "" {
		flagset.Usage()
		return errors.New("bad input: must provide -f")
	}

	cat := payload.DefaultCatalog()
	d, err := loadDraftFile(*flDraft, cat)
	if err != nil {
		return err
	}
	if defects := profile.Validate(d, cat); len(defects) > 0 {
		for _, defect := range defects {
			fmt.Fprintf(os.Stderr, "%s: %s\n", defect.Rule, defect.Message)
		}
		return errors.Errorf("%s has %d defects", *flDraft, len(defects))
	}
	if cmd.validateOnly {
		fmt.Printf("%s is ready to export\n", *flDraft)
		return nil
	}

	if *flStdout {
		mc, err := profile.Serialize(d, cat)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(mc)
		return err
	}

	cfg, err := LoadClientConfig()
	if err != nil {
		return err
	}
	dir := *flOut
	if dir == "" {
		dir = cfg.ExportDir
	}
	path, err := profile.WriteFile(dir, d, cat)
	if err != nil {
		return err
	}
	fmt.Println(path)

	mc, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read back %s", path)
	}
	return withStore(cfg, func(store profile.Store) error {
		return store.Save(&profile.Profile{Identifier: d.Identifier, Mobileconfig: mc})
	})
}

// withStore opens the local profile history for the duration of f.
func withStore(cfg *ClientConfig, f func(profile.Store) error) error {
	dbPath := cfg.DBPath
	if dbPath == "" {
		dir, err := configDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "create config directory")
		}
		dbPath = filepath.Join(dir, "profilebuilder.db")
	}
	db, err := bolt.Open(dbPath, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return errors.Wrapf(err, "open history %s", dbPath)
	}
	defer db.Close()
	store, err := profile.NewDB(db)
	if err != nil {
		return err
	}
	return f(store)
}
