package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/micromdm/go4/env"
	"github.com/pkg/errors"

	"github.com/micromdm/profilebuilder/deploy"
	"github.com/micromdm/profilebuilder/deploy/jamf"
	"github.com/micromdm/profilebuilder/payload"
	"github.com/micromdm/profilebuilder/profile"
	"github.com/micromdm/profilebuilder/pubsub"
	"github.com/micromdm/profilebuilder/webhook"
)

type deployCommand struct{}

func (cmd *deployCommand) Run(args []string) error {
	flagset := flag.NewFlagSet("deploy", flag.ExitOnError)
	var (
		flDraft      = flagset.String("f", "", "path to a YAML profile draft")
		flIdentifier = flagset.String("id", "", "redeploy a profile from history by identifier")
		flName       = flagset.String("name", "", "profile name shown in the MDM, with -id")
		flTimeout    = flagset.Duration("timeout", 30*time.Second, "upload timeout")
		flWebhook    = flagset.String("webhook-url", env.String("PROFILEBUILDER_WEBHOOK_URL", ""), "POST a JSON notification here after deploying")
		flDebug      = flagset.Bool("debug", false, "log debug output")
	)
	flagset.Usage = usageFor(flagset, "profilectl deploy (-f draft.yaml | -id identifier) [flags]")
	if err := flagset.Parse(args); err != nil {
		return err
	}
	if (*flDraft == "") == (*flIdentifier == "") {
		flagset.Usage()
		return errors.New("bad input: must provide exactly one of -f or -id")
	}

	cfg, err := LoadClientConfig()
	if err != nil {
		return err
	}
	if cfg.Vendor != "" && cfg.Vendor != jamf.Vendor {
		return errors.Errorf("unsupported MDM vendor %q", cfg.Vendor)
	}

	logger := newLogger(*flDebug)
	cat := payload.DefaultCatalog()
	ctx, cancel := context.WithTimeout(context.Background(), *flTimeout)
	defer cancel()

	opts := []deploy.Option{}
	notified := func() {}
	if *flWebhook != "" {
		bus := pubsub.NewInmemPubsub()
		defer bus.Close()
		posted := make(chan struct{}, 1)
		worker := webhook.New(*flWebhook, bus,
			webhook.WithLogger(log.With(logger, "component", "webhook")),
			webhook.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}),
			webhook.WithAfterPost(func(*webhook.Event, error) { posted <- struct{}{} }),
		)
		if err := worker.Start(ctx); err != nil {
			return err
		}
		opts = append(opts, deploy.WithPublisher(bus))
		notified = func() {
			select {
			case <-posted:
			case <-ctx.Done():
			}
		}
	}

	return withStore(cfg, func(store profile.Store) error {
		var svc deploy.Service
		{
			svc = deploy.NewService(jamf.NewClient(logger), cat, append(opts, deploy.WithStore(store))...)
			svc = deploy.NewLoggingService(svc, log.With(logger, "component", "deploy"))
		}

		if *flDraft != "" {
			d, err := loadDraftFile(*flDraft, cat)
			if err != nil {
				return err
			}
			if err := svc.Deploy(ctx, cfg.Account, d); err != nil {
				return explainDeployError(err)
			}
			fmt.Printf("deployed %s to %s\n", d.Identifier, cfg.ServerURL)
			notified()
			return nil
		}

		p, err := store.ProfileById(*flIdentifier)
		if err != nil {
			return err
		}
		name := *flName
		if name == "" {
			name = p.Identifier
		}
		if err := svc.Push(ctx, cfg.Account, name, p.Mobileconfig); err != nil {
			return explainDeployError(err)
		}
		fmt.Printf("deployed %s to %s\n", p.Identifier, cfg.ServerURL)
		notified()
		return nil
	})
}

func explainDeployError(err error) error {
	switch errors.Cause(err) {
	case deploy.ErrMissingToken:
		return errors.New("no API token configured, run: profilectl config login")
	case deploy.ErrExpiredToken:
		return errors.New("API token expired, run: profilectl config login")
	case deploy.ErrInvalidServerURL:
		return errors.New("invalid server URL, run: profilectl config set -server-url")
	}
	if e, ok := errors.Cause(err).(*deploy.NotExportableError); ok {
		for _, d := range e.Defects {
			fmt.Fprintln(os.Stderr, d.Message)
		}
		return errors.Errorf("profile has %d defects", len(e.Defects))
	}
	return err
}

func newLogger(debug bool) log.Logger {
	logger := log.NewLogfmtLogger(os.Stderr)
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	if debug {
		return level.NewFilter(logger, level.AllowDebug())
	}
	return level.NewFilter(logger, level.AllowInfo())
}
