package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/micromdm/go4/env"
	"github.com/pkg/errors"

	"github.com/micromdm/profilebuilder/deploy"
	"github.com/micromdm/profilebuilder/deploy/jamf"
	"github.com/micromdm/profilebuilder/payload"
	"github.com/micromdm/profilebuilder/pppc"
	"github.com/micromdm/profilebuilder/profile"
	"github.com/micromdm/profilebuilder/pubsub"
	"github.com/micromdm/profilebuilder/session"
	"github.com/micromdm/profilebuilder/webhook"
	"github.com/micromdm/profilebuilder/workflow"
)

type wizardCommand struct {
	logger  log.Logger
	sess    *session.Session
	cfg     *ClientConfig
	bus     *pubsub.Inmem
	codeReq string
}

func (cmd *wizardCommand) Run(args []string) error {
	flagset := flag.NewFlagSet("wizard", flag.ExitOnError)
	var (
		flOut     = flagset.String("out", "", "directory to write the .mobileconfig to (default ~/Downloads)")
		flWebhook = flagset.String("webhook-url", env.String("PROFILEBUILDER_WEBHOOK_URL", ""), "POST draft changes and deploys here as JSON")
		flDebug   = flagset.Bool("debug", false, "log every draft change")
	)
	flagset.Usage = usageFor(flagset, "profilectl wizard [flags]")
	if err := flagset.Parse(args); err != nil {
		return err
	}

	cfg, err := LoadClientConfig()
	if err != nil {
		return err
	}
	if *flOut != "" {
		cfg.ExportDir = *flOut
	}
	cmd.cfg = cfg
	cmd.logger = newLogger(*flDebug)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd.bus = pubsub.NewInmemPubsub()
	defer cmd.bus.Close()
	events, err := cmd.bus.Subscribe(ctx, "wizard", session.DraftChangedTopic)
	if err != nil {
		return err
	}
	go cmd.logChanges(ctx, events)

	if *flWebhook != "" {
		worker := webhook.New(*flWebhook, cmd.bus,
			webhook.WithLogger(log.With(cmd.logger, "component", "webhook")),
			webhook.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}),
			webhook.WithDraftEvents(),
		)
		if err := worker.Start(ctx); err != nil {
			return err
		}
	}

	cmd.sess = session.New(payload.DefaultCatalog(), workflow.FourStep(),
		session.WithPublisher(cmd.bus),
		session.WithLogger(cmd.logger),
	)

	err = cmd.run(ctx)
	if errors.Cause(err) == huh.ErrUserAborted {
		fmt.Println("discarded draft")
		return nil
	}
	return err
}

func (cmd *wizardCommand) logChanges(ctx context.Context, events <-chan pubsub.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			ev, err := session.UnmarshalChangeEvent(msg.Message)
			if err != nil {
				level.Info(cmd.logger).Log("msg", "decode change event", "err", err)
				continue
			}
			level.Debug(cmd.logger).Log(
				"msg", "draft changed",
				"action", ev.Action,
				"step", ev.Step,
				"exportable", ev.Exportable,
				"defects", len(ev.Defects),
			)
		}
	}
}

func (cmd *wizardCommand) run(ctx context.Context) error {
	for {
		step := cmd.sess.Step()
		fmt.Printf("\n== %s ==\n", step.Name)

		var err error
		switch step.Name {
		case workflow.StepSetup:
			err = cmd.setup(ctx)
		case workflow.StepChoose:
			err = cmd.choose(ctx)
		case workflow.StepConfigure:
			err = cmd.configure(ctx)
		case workflow.StepExport, workflow.StepReview:
			return cmd.export(ctx)
		default:
			return errors.Errorf("unhandled step %s", step.Name)
		}
		if err != nil {
			return err
		}

		if !cmd.sess.Advance(ctx) {
			cmd.printDefects()
			retry := true
			if err := huh.NewConfirm().
				Title(fmt.Sprintf("%s is incomplete. Edit it again?", step.Name)).
				Value(&retry).
				Run(); err != nil {
				return err
			}
			if !retry && cmd.sess.Retreat(ctx) {
				continue
			}
		}
	}
}

func (cmd *wizardCommand) printDefects() {
	for _, d := range cmd.sess.Defects() {
		fmt.Printf("  - %s\n", d.Message)
	}
}

func (cmd *wizardCommand) setup(ctx context.Context) error {
	d := cmd.sess.Draft()
	m := session.Metadata{
		Name:         d.Name,
		Description:  d.Description,
		Identifier:   d.Identifier,
		Organization: d.Organization,
		Scope:        d.Scope,
	}
	scope := string(m.Scope)

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Profile name").Value(&m.Name),
			huh.NewInput().
				Title("Identifier").
				Placeholder("com.company.profile").
				Value(&m.Identifier).
				Validate(func(s string) error {
					if s != "" && !profile.IdentifierLooksValid(s) {
						return errors.New("use reverse-DNS format, e.g. com.company.profile")
					}
					return nil
				}),
			huh.NewInput().Title("Organization").Value(&m.Organization),
			huh.NewText().Title("Description").Value(&m.Description),
			huh.NewSelect[string]().
				Title("Scope").
				Options(
					huh.NewOption("System", string(profile.ScopeSystem)),
					huh.NewOption("User", string(profile.ScopeUser)),
				).
				Value(&scope),
		),
	).Run()
	if err != nil {
		return err
	}
	m.Scope = profile.Scope(scope)
	cmd.sess.SetMetadata(ctx, m)
	return nil
}

func (cmd *wizardCommand) choose(ctx context.Context) error {
	d := cmd.sess.Draft()
	var options []huh.Option[string]
	for _, e := range cmd.sess.Catalog().All() {
		label := fmt.Sprintf("%s (%s)", e.Name, e.Category)
		options = append(options, huh.NewOption(label, e.ID).Selected(d.HasPayloadType(e.ID)))
	}

	var selected []string
	err := huh.NewMultiSelect[string]().
		Title("Select payloads").
		Options(options...).
		Value(&selected).
		Run()
	if err != nil {
		return err
	}

	want := make(map[string]bool, len(selected))
	for _, id := range selected {
		want[id] = true
	}
	for _, e := range cmd.sess.Catalog().All() {
		if want[e.ID] != d.HasPayloadType(e.ID) {
			cmd.sess.TogglePayload(ctx, e.ID)
		}
	}
	if want[payload.TypePPPC] && cmd.sess.Draft().TargetApp == nil {
		return cmd.selectTargetApp(ctx)
	}
	return nil
}

// selectTargetApp prompts for the application privacy permissions apply to.
func (cmd *wizardCommand) selectTargetApp(ctx context.Context) error {
	var app pppc.TargetApp
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Application name").Value(&app.Name),
			huh.NewInput().Title("Bundle identifier").Placeholder("com.company.app").Value(&app.BundleID),
			huh.NewInput().Title("Path (when there is no bundle identifier)").Value(&app.Path),
			huh.NewInput().
				Title("Code requirement").
				Description("Output of: codesign -dr - /path/to/App.app").
				Value(&cmd.codeReq),
		),
	).Run()
	if err != nil {
		return err
	}
	if app.BundleID != "" || app.Path != "" {
		cmd.sess.SelectTargetApp(ctx, app, cmd.codeReq)
	}
	return nil
}

func (cmd *wizardCommand) configure(ctx context.Context) error {
	for _, p := range cmd.sess.Draft().Payloads {
		entry, ok := cmd.sess.Catalog().Lookup(p.Type)
		if !ok {
			continue
		}
		fmt.Printf("\n-- %s --\n", entry.Name)
		if p.Type == payload.TypePPPC {
			if err := cmd.configurePrivacy(ctx); err != nil {
				return err
			}
			continue
		}
		if len(entry.Settings) == 0 {
			if err := cmd.configureCustom(ctx, p); err != nil {
				return err
			}
			continue
		}
		for _, spec := range entry.Settings {
			v, set, err := promptSetting(spec, p)
			if err != nil {
				return err
			}
			if !set {
				continue
			}
			if err := cmd.sess.SetSetting(ctx, p.ID, spec.Key, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// configureCustom prompts for free-form string settings on payloads the
// catalog has no setting schema for.
func (cmd *wizardCommand) configureCustom(ctx context.Context, p *payload.Instance) error {
	for {
		var key, value string
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().Title("Setting key (empty to finish)").Value(&key),
				huh.NewInput().Title("Value").Value(&value),
			),
		).Run()
		if err != nil {
			return err
		}
		if strings.TrimSpace(key) == "" {
			return nil
		}
		if err := cmd.sess.SetSetting(ctx, p.ID, key, payload.String(value)); err != nil {
			return err
		}
	}
}

func promptSetting(spec payload.SettingSpec, p *payload.Instance) (payload.Value, bool, error) {
	title := spec.Key
	if spec.Required {
		title += " *"
	}
	current, hasCurrent := p.Get(spec.Key)

	if spec.Kind == payload.KindBool {
		b := current.AsBool()
		if err := huh.NewConfirm().Title(title).Value(&b).Run(); err != nil {
			return payload.Value{}, false, err
		}
		return payload.Bool(b), true, nil
	}

	var raw string
	if hasCurrent {
		raw = current.String()
		if spec.Kind == payload.KindStringArray {
			raw = strings.Join(current.AsStringArray(), ", ")
		}
	}
	err := huh.NewInput().
		Title(title).
		Value(&raw).
		Validate(func(s string) error {
			if s == "" {
				return nil
			}
			_, err := parseSetting(spec.Kind, s)
			return err
		}).
		Run()
	if err != nil {
		return payload.Value{}, false, err
	}
	if raw == "" {
		return payload.Value{}, false, nil
	}
	v, err := parseSetting(spec.Kind, raw)
	return v, err == nil, err
}

func parseSetting(kind payload.Kind, s string) (payload.Value, error) {
	switch kind {
	case payload.KindInteger:
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return payload.Value{}, errors.New("enter a whole number")
		}
		return payload.Integer(i), nil
	case payload.KindReal:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return payload.Value{}, errors.New("enter a number")
		}
		return payload.Real(f), nil
	case payload.KindStringArray:
		var items []string
		for _, item := range strings.Split(s, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return payload.StringArray(items), nil
	default:
		return payload.String(s), nil
	}
}

func (cmd *wizardCommand) configurePrivacy(ctx context.Context) error {
	d := cmd.sess.Draft()
	var app pppc.TargetApp
	if d.TargetApp != nil {
		app = *d.TargetApp
	}
	have := make(map[string]bool)
	for _, e := range d.PrivacyPermissions {
		have[e.Service.ID] = true
	}
	var options []huh.Option[string]
	for _, s := range pppc.Services() {
		if have[s.ID] {
			continue
		}
		options = append(options, huh.NewOption(fmt.Sprintf("%s (%s)", s.Name, s.Category), s.ID))
	}
	var extra []string
	if len(options) > 0 {
		err := huh.NewMultiSelect[string]().
			Title("Grant additional services").
			Options(options...).
			Value(&extra).
			Run()
		if err != nil {
			return err
		}
	}
	identifier, kind := app.BundleID, pppc.BundleID
	if identifier == "" {
		identifier, kind = app.Path, pppc.Path
	}
	for _, id := range extra {
		e := pppc.NewEntry(pppc.MustService(id), identifier, kind)
		e.CodeRequirement = cmd.codeReq
		cmd.sess.AddPermission(ctx, e)
	}

	for _, e := range cmd.sess.Draft().PrivacyPermissions {
		if e.IsComplete() {
			continue
		}
		fmt.Printf("%s is missing %s\n", e.Service.Name, strings.Join(e.Missing(), " and "))
		if err := huh.NewInput().Title(e.Service.Name + " code requirement").Value(&e.CodeRequirement).Run(); err != nil {
			return err
		}
		if e.Identifier == "" {
			e.Identifier, e.IdentifierKind = identifier, kind
		}
		cmd.sess.UpdatePermission(ctx, e)
	}
	return nil
}

func (cmd *wizardCommand) export(ctx context.Context) error {
	cmd.printDefects()
	if !cmd.sess.CanFinish() {
		return errors.New("profile is not ready to export")
	}

	d := cmd.sess.Draft()
	path, err := profile.WriteFile(cmd.cfg.ExportDir, d, cmd.sess.Catalog())
	if err != nil {
		return err
	}
	fmt.Printf("saved %s\n", path)

	mc, err := cmd.sess.Export()
	if err != nil {
		return err
	}
	err = withStore(cmd.cfg, func(store profile.Store) error {
		return store.Save(&profile.Profile{Identifier: d.Identifier, Mobileconfig: mc})
	})
	if err != nil {
		return err
	}

	if cmd.cfg.AuthToken == "" {
		return nil
	}
	upload := false
	if err := huh.NewConfirm().
		Title(fmt.Sprintf("Deploy to %s?", cmd.cfg.ServerURL)).
		Value(&upload).
		Run(); err != nil {
		return err
	}
	if !upload {
		return nil
	}
	svc := deploy.NewLoggingService(
		deploy.NewService(jamf.NewClient(cmd.logger), cmd.sess.Catalog(), deploy.WithPublisher(cmd.bus)),
		log.With(cmd.logger, "component", "deploy"),
	)
	if err := svc.Push(ctx, cmd.cfg.Account, d.Name, mc); err != nil {
		return explainDeployError(err)
	}
	fmt.Printf("deployed %s\n", d.Identifier)
	return nil
}
