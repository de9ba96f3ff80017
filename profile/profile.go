package profile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/groob/plist"
	pkgerrors "github.com/pkg/errors"

	"github.com/micromdm/profilebuilder/payload"
)

// Mobileconfig is a serialized configuration profile.
type Mobileconfig []byte

// only used to parse plists to get the PayloadIdentifier
type payloadIdentifier struct {
	PayloadIdentifier string
}

func (mc *Mobileconfig) GetPayloadIdentifier() (string, error) {
	var pId payloadIdentifier
	err := plist.Unmarshal(*mc, &pId)
	if err != nil {
		return "", err
	}
	if pId.PayloadIdentifier == "" {
		return "", errors.New("empty PayloadIdentifier in profile")
	}
	return pId.PayloadIdentifier, err
}

// Profile is an exported profile kept in the Store.
type Profile struct {
	Identifier   string
	Mobileconfig Mobileconfig
}

// Validate checks the internal consistency and validity of a Profile structure
func (p *Profile) Validate() error {
	if p.Identifier == "" {
		return errors.New("Profile struct must have Identifier")
	}
	if len(p.Mobileconfig) < 1 {
		return errors.New("no Mobileconfig data")
	}
	payloadId, err := p.Mobileconfig.GetPayloadIdentifier()
	if err != nil {
		return err
	}
	if payloadId != p.Identifier {
		return errors.New("payload Identifier does not match Profile")
	}
	return nil
}

// Filename returns "<name>.mobileconfig" with path separators replaced.
func Filename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Profile"
	}
	name = strings.NewReplacer("/", "-", "\\", "-", ":", "-").Replace(name)
	return name + ".mobileconfig"
}

// DefaultExportDir is the user's Downloads directory.
func DefaultExportDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", pkgerrors.Wrap(err, "find home directory")
	}
	return filepath.Join(home, "Downloads"), nil
}

// WriteFile serializes the draft into dir, or the Downloads directory when
// dir is empty, and returns the path written. The draft is left untouched
// on failure so the export can be repeated.
func WriteFile(dir string, d *Draft, cat *payload.Catalog) (string, error) {
	if dir == "" {
		var err error
		if dir, err = DefaultExportDir(); err != nil {
			return "", err
		}
	}
	mc, err := Serialize(d, cat)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, Filename(d.Name))
	if err := os.WriteFile(path, mc, 0644); err != nil {
		return "", pkgerrors.Wrapf(err, "write %s", path)
	}
	return path, nil
}
