package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/pkg/errors"
	"github.com/sethvargo/go-envconfig"

	"github.com/micromdm/profilebuilder/deploy"
	"github.com/micromdm/profilebuilder/deploy/jamf"
)

const configDirName = ".profilebuilder"

// ClientConfig is the saved MDM account and local settings.
type ClientConfig struct {
	deploy.Account
	ExportDir string `json:"export_dir,omitempty"`
	DBPath    string `json:"db_path,omitempty"`
}

// envOverrides are applied on top of the config file.
type envOverrides struct {
	ServerURL string `env:"PROFILEBUILDER_SERVER_URL"`
	APIToken  string `env:"PROFILEBUILDER_API_TOKEN"`
	Vendor    string `env:"PROFILEBUILDER_VENDOR"`
	DBPath    string `env:"PROFILEBUILDER_DB"`
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "find home directory")
	}
	return filepath.Join(home, configDirName), nil
}

func clientConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "default.json"), nil
}

// LoadClientConfig reads the config file, if any, and applies environment
// overrides. A missing file yields an empty config.
func LoadClientConfig() (*ClientConfig, error) {
	path, err := clientConfigPath()
	if err != nil {
		return nil, err
	}
	return loadClientConfig(context.Background(), path, nil)
}

func loadClientConfig(ctx context.Context, path string, lookup envconfig.Lookuper) (*ClientConfig, error) {
	var cfg ClientConfig
	cfgData, err := ioutil.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, errors.Wrapf(err, "unable to load config file %s", path)
	default:
		if err := json.Unmarshal(cfgData, &cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal %s", path)
		}
	}

	var env envOverrides
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &env, Lookuper: lookup}); err != nil {
		return nil, errors.Wrap(err, "read environment")
	}
	if env.ServerURL != "" {
		cfg.ServerURL = env.ServerURL
	}
	if env.APIToken != "" {
		cfg.AuthToken = env.APIToken
		cfg.TokenExpiry = time.Time{}
	}
	if env.Vendor != "" {
		cfg.Vendor = env.Vendor
	}
	if env.DBPath != "" {
		cfg.DBPath = env.DBPath
	}
	return &cfg, nil
}

func saveClientConfig(path string, cfg *ClientConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "create config directory")
	}
	cfgData, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	return ioutil.WriteFile(path, cfgData, 0600)
}

type configCommand struct{}

func (cmd *configCommand) Run(args []string) error {
	if len(args) < 1 {
		cmd.Usage()
		os.Exit(1)
	}
	var run func([]string) error
	switch strings.ToLower(args[0]) {
	case "set":
		run = cmd.set
	case "print":
		run = cmd.print
	case "login":
		run = cmd.login
	default:
		cmd.Usage()
		os.Exit(1)
	}
	return run(args[1:])
}

func (cmd *configCommand) Usage() error {
	const help = `
Manage the saved MDM account.

Commands:

  * set     save server settings and an API token
  * login   request a Jamf Pro token with a username and password or API client
  * print   print the current configuration

Examples:
  profilectl config set -server-url acme.jamfcloud.com -vendor jamf
  profilectl config login -username admin
`
	fmt.Print(help + "\n")
	return nil
}

func (cmd *configCommand) set(args []string) error {
	flagset := flag.NewFlagSet("set", flag.ExitOnError)
	var (
		flName      = flagset.String("name", "", "display name of the MDM account")
		flServerURL = flagset.String("server-url", "", "MDM server URL")
		flToken     = flagset.String("api-token", "", "API bearer token")
		flVendor    = flagset.String("vendor", jamf.Vendor, "MDM vendor")
		flExportDir = flagset.String("export-dir", "", "directory exported profiles are written to")
	)
	flagset.Usage = usageFor(flagset, "profilectl config set [flags]")
	if err := flagset.Parse(args); err != nil {
		return err
	}

	path, err := clientConfigPath()
	if err != nil {
		return err
	}
	cfg, err := loadClientConfig(context.Background(), path, envconfig.MapLookuper(nil))
	if err != nil {
		return err
	}
	if *flServerURL != "" {
		serverURL, err := deploy.ValidateServerURL(*flServerURL)
		if err != nil {
			return err
		}
		cfg.ServerURL = serverURL
	}
	if *flName != "" {
		cfg.DisplayName = *flName
	}
	if *flToken != "" {
		cfg.AuthToken = *flToken
		cfg.TokenExpiry = time.Time{}
	}
	if *flVendor != "" {
		cfg.Vendor = *flVendor
	}
	if *flExportDir != "" {
		cfg.ExportDir = *flExportDir
	}
	return saveClientConfig(path, cfg)
}

func (cmd *configCommand) login(args []string) error {
	flagset := flag.NewFlagSet("login", flag.ExitOnError)
	var (
		flUsername     = flagset.String("username", "", "Jamf Pro username")
		flPassword     = flagset.String("password", "", "Jamf Pro password (or PROFILEBUILDER_PASSWORD)")
		flClientID     = flagset.String("client-id", "", "API client id, instead of a username")
		flClientSecret = flagset.String("client-secret", "", "API client secret")
	)
	flagset.Usage = usageFor(flagset, "profilectl config login [flags]")
	if err := flagset.Parse(args); err != nil {
		return err
	}

	path, err := clientConfigPath()
	if err != nil {
		return err
	}
	cfg, err := loadClientConfig(context.Background(), path, envconfig.MapLookuper(nil))
	if err != nil {
		return err
	}
	if cfg.ServerURL == "" {
		return errors.New("no server URL configured, run: profilectl config set -server-url")
	}

	client := jamf.NewClient(log.NewLogfmtLogger(os.Stderr))
	ctx := context.Background()
	var tok *jamf.Token
	switch {
	case *flClientID != "":
		tok, err = client.RequestOAuthToken(ctx, cfg.ServerURL, *flClientID, *flClientSecret)
	case *flUsername != "":
		password := *flPassword
		if password == "" {
			password = os.Getenv("PROFILEBUILDER_PASSWORD")
		}
		tok, err = client.RequestToken(ctx, cfg.ServerURL, *flUsername, password)
	default:
		return errors.New("either -username or -client-id is required")
	}
	if err != nil {
		return err
	}
	cfg.AuthToken = tok.Value
	cfg.TokenExpiry = tok.Expires
	cfg.Vendor = jamf.Vendor
	if err := saveClientConfig(path, cfg); err != nil {
		return err
	}
	fmt.Printf("token saved, expires %s\n", tok.Expires.Local().Format(time.RFC1123))
	return nil
}

func (cmd *configCommand) print(args []string) error {
	cfg, err := LoadClientConfig()
	if err != nil {
		return err
	}
	if cfg.AuthToken != "" {
		cfg.AuthToken = "********"
	}
	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
