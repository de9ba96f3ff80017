package payload

import "strings"

// Category groups catalog entries for browsing.
type Category string

const (
	CategorySecurity     Category = "Security"
	CategoryNetwork      Category = "Network"
	CategoryPrivacy      Category = "Privacy"
	CategoryApplications Category = "Applications"
	CategorySystem       Category = "System"
	CategoryRestrictions Category = "Restrictions"
	CategoryEnterprise   Category = "Enterprise"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategorySecurity,
	CategoryNetwork,
	CategoryPrivacy,
	CategoryApplications,
	CategorySystem,
	CategoryRestrictions,
	CategoryEnterprise,
}

// Catalog type ids referenced outside this package.
const (
	TypePPPC       = "pppc"
	TypeWiFi       = "wifi"
	TypeVPN        = "vpn"
	TypeFileVault  = "filevault"
	TypeGatekeeper = "gatekeeper"
)

// SettingSpec describes a setting key a payload type expects.
type SettingSpec struct {
	Key      string
	Kind     Kind
	Required bool
}

// Entry is an immutable catalog record for one payload type.
type Entry struct {
	ID          string
	Name        string
	Description string
	Icon        string
	Category    Category
	Platforms   []string

	// PayloadType is the Apple PayloadType written on export. When empty
	// the catalog id is written instead.
	PayloadType string
	Settings    []SettingSpec
}

// AppleType returns the PayloadType string written to the mobileconfig.
func (e Entry) AppleType() string {
	if e.PayloadType == "" {
		return e.ID
	}
	return e.PayloadType
}

// Setting returns the spec for key, if the type declares it.
func (e Entry) Setting(key string) (SettingSpec, bool) {
	for _, s := range e.Settings {
		if s.Key == key {
			return s, true
		}
	}
	return SettingSpec{}, false
}

// Catalog is a read-only registry of payload types.
type Catalog struct {
	entries []Entry
	byID    map[string]int
}

// NewCatalog builds a catalog. Later entries with a duplicate id are ignored.
func NewCatalog(entries ...Entry) *Catalog {
	c := &Catalog{byID: make(map[string]int, len(entries))}
	for _, e := range entries {
		if _, ok := c.byID[e.ID]; ok {
			continue
		}
		c.byID[e.ID] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	return c
}

func (c *Catalog) Lookup(id string) (Entry, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// All returns the entries in registration order.
func (c *Catalog) All() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Filter returns entries in category whose name, description or category
// contains search, case-insensitively. An empty category or search does
// not constrain the result.
func (c *Catalog) Filter(category Category, search string) []Entry {
	search = strings.ToLower(strings.TrimSpace(search))
	var out []Entry
	for _, e := range c.entries {
		if category != "" && e.Category != category {
			continue
		}
		if search != "" && !e.matches(search) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (e Entry) matches(lowered string) bool {
	return strings.Contains(strings.ToLower(e.Name), lowered) ||
		strings.Contains(strings.ToLower(e.Description), lowered) ||
		strings.Contains(strings.ToLower(string(e.Category)), lowered)
}

var defaultCatalog = NewCatalog(builtinEntries...)

// DefaultCatalog returns the built-in payload registry.
func DefaultCatalog() *Catalog { return defaultCatalog }

var macOS = []string{"macOS"}

var builtinEntries = []Entry{
	{
		ID:          TypePPPC,
		Name:        "Privacy Preferences",
		Description: "Grant or deny applications access to privacy-protected services",
		Icon:        "hand.raised",
		Category:    CategoryPrivacy,
		Platforms:   macOS,
		PayloadType: "com.apple.TCC.configuration-profile-policy",
	},
	{
		ID:          TypeWiFi,
		Name:        "Wi-Fi",
		Description: "Configure wireless network settings",
		Icon:        "wifi",
		Category:    CategoryNetwork,
		Platforms:   []string{"macOS", "iOS"},
		PayloadType: "com.apple.wifi.managed",
		Settings: []SettingSpec{
			{Key: "SSID_STR", Kind: KindString, Required: true},
			{Key: "EncryptionType", Kind: KindString, Required: true},
			{Key: "Password", Kind: KindString},
			{Key: "AutoJoin", Kind: KindBool},
			{Key: "HIDDEN_NETWORK", Kind: KindBool},
		},
	},
	{
		ID:          TypeVPN,
		Name:        "VPN",
		Description: "Configure virtual private network connections",
		Icon:        "lock.shield",
		Category:    CategoryNetwork,
		Platforms:   []string{"macOS", "iOS"},
		PayloadType: "com.apple.vpn.managed",
		Settings: []SettingSpec{
			{Key: "UserDefinedName", Kind: KindString, Required: true},
			{Key: "VPNType", Kind: KindString, Required: true},
			{Key: "RemoteAddress", Kind: KindString, Required: true},
			{Key: "OnDemandEnabled", Kind: KindInteger},
		},
	},
	{
		ID:          TypeFileVault,
		Name:        "FileVault",
		Description: "Enforce full disk encryption",
		Icon:        "lock.doc",
		Category:    CategorySecurity,
		Platforms:   macOS,
		PayloadType: "com.apple.MCX.FileVault2",
		Settings: []SettingSpec{
			{Key: "Enable", Kind: KindString, Required: true},
			{Key: "Defer", Kind: KindBool},
			{Key: "DeferForceAtUserLoginMaxBypassAttempts", Kind: KindInteger},
			{Key: "ShowRecoveryKey", Kind: KindBool},
		},
	},
	{
		ID:          TypeGatekeeper,
		Name:        "Gatekeeper",
		Description: "Control which applications are allowed to run",
		Icon:        "checkmark.shield",
		Category:    CategorySecurity,
		Platforms:   macOS,
		PayloadType: "com.apple.systempolicy.control",
		Settings: []SettingSpec{
			{Key: "EnableAssessment", Kind: KindBool, Required: true},
			{Key: "AllowIdentifiedDevelopers", Kind: KindBool},
			{Key: "EnableXProtectMalwareUpload", Kind: KindBool},
		},
	},
	{
		ID:          "firewall",
		Name:        "Firewall",
		Description: "Configure the application firewall",
		Icon:        "flame",
		Category:    CategorySecurity,
		Platforms:   macOS,
		PayloadType: "com.apple.security.firewall",
		Settings: []SettingSpec{
			{Key: "EnableFirewall", Kind: KindBool, Required: true},
			{Key: "BlockAllIncoming", Kind: KindBool},
			{Key: "EnableStealthMode", Kind: KindBool},
		},
	},
	{
		ID:          "passcode",
		Name:        "Passcode",
		Description: "Require and configure password policies",
		Icon:        "key",
		Category:    CategorySecurity,
		Platforms:   []string{"macOS", "iOS"},
		PayloadType: "com.apple.mobiledevice.passwordpolicy",
		Settings: []SettingSpec{
			{Key: "minLength", Kind: KindInteger},
			{Key: "requireAlphanumeric", Kind: KindBool},
			{Key: "maxPINAgeInDays", Kind: KindInteger},
			{Key: "maxFailedAttempts", Kind: KindInteger},
		},
	},
	{
		ID:          "certificate",
		Name:        "Certificate",
		Description: "Install a trusted root or intermediate certificate",
		Icon:        "doc.badge.ellipsis",
		Category:    CategorySecurity,
		Platforms:   []string{"macOS", "iOS"},
		PayloadType: "com.apple.security.root",
		Settings: []SettingSpec{
			{Key: "PayloadCertificateFileName", Kind: KindString, Required: true},
		},
	},
	{
		ID:          "scep",
		Name:        "SCEP",
		Description: "Request a device identity certificate over SCEP",
		Icon:        "person.badge.key",
		Category:    CategoryEnterprise,
		Platforms:   []string{"macOS", "iOS"},
		PayloadType: "com.apple.security.scep",
		Settings: []SettingSpec{
			{Key: "URL", Kind: KindString, Required: true},
			{Key: "Challenge", Kind: KindString},
			{Key: "Keysize", Kind: KindInteger},
			{Key: "KeyType", Kind: KindString},
		},
	},
	{
		ID:          "ad-binding",
		Name:        "Directory Binding",
		Description: "Bind to an Active Directory domain",
		Icon:        "building.2",
		Category:    CategoryEnterprise,
		Platforms:   macOS,
		PayloadType: "com.apple.DirectoryService.managed",
		Settings: []SettingSpec{
			{Key: "HostName", Kind: KindString, Required: true},
			{Key: "UserName", Kind: KindString},
			{Key: "ADOrganizationalUnit", Kind: KindString},
		},
	},
	{
		ID:          "single-sign-on",
		Name:        "Single Sign-On Extension",
		Description: "Configure an enterprise single sign-on extension",
		Icon:        "person.crop.circle.badge.checkmark",
		Category:    CategoryEnterprise,
		Platforms:   []string{"macOS", "iOS"},
		PayloadType: "com.apple.extensiblesso",
		Settings: []SettingSpec{
			{Key: "ExtensionIdentifier", Kind: KindString, Required: true},
			{Key: "Type", Kind: KindString, Required: true},
			{Key: "URLs", Kind: KindStringArray},
			{Key: "Realm", Kind: KindString},
		},
	},
	{
		ID:          "loginwindow",
		Name:        "Login Window",
		Description: "Customize the login window and login behavior",
		Icon:        "person.crop.square",
		Category:    CategorySystem,
		Platforms:   macOS,
		PayloadType: "com.apple.loginwindow",
		Settings: []SettingSpec{
			{Key: "SHOWFULLNAME", Kind: KindBool},
			{Key: "LoginwindowText", Kind: KindString},
			{Key: "DisableGuestAccount", Kind: KindBool},
		},
	},
	{
		ID:          "screensaver",
		Name:        "Screen Saver",
		Description: "Require a password after sleep or screen saver",
		Icon:        "display",
		Category:    CategorySystem,
		Platforms:   macOS,
		PayloadType: "com.apple.screensaver",
		Settings: []SettingSpec{
			{Key: "askForPassword", Kind: KindBool},
			{Key: "askForPasswordDelay", Kind: KindInteger},
			{Key: "idleTime", Kind: KindInteger},
		},
	},
	{
		ID:          "software-update",
		Name:        "Software Update",
		Description: "Manage automatic software update behavior",
		Icon:        "arrow.triangle.2.circlepath",
		Category:    CategorySystem,
		Platforms:   macOS,
		PayloadType: "com.apple.SoftwareUpdate",
		Settings: []SettingSpec{
			{Key: "AutomaticCheckEnabled", Kind: KindBool},
			{Key: "AutomaticDownload", Kind: KindBool},
			{Key: "CriticalUpdateInstall", Kind: KindBool},
		},
	},
	{
		ID:          "notifications",
		Name:        "Notifications",
		Description: "Configure notification settings for applications",
		Icon:        "bell.badge",
		Category:    CategoryApplications,
		Platforms:   macOS,
		PayloadType: "com.apple.notificationsettings",
		Settings: []SettingSpec{
			{Key: "BundleIdentifier", Kind: KindString, Required: true},
			{Key: "NotificationsEnabled", Kind: KindBool},
			{Key: "AlertType", Kind: KindInteger},
		},
	},
	{
		ID:          "dock",
		Name:        "Dock",
		Description: "Configure Dock appearance and contents",
		Icon:        "dock.rectangle",
		Category:    CategoryApplications,
		Platforms:   macOS,
		PayloadType: "com.apple.dock",
		Settings: []SettingSpec{
			{Key: "tilesize", Kind: KindInteger},
			{Key: "magnification", Kind: KindBool},
			{Key: "largesize", Kind: KindReal},
			{Key: "orientation", Kind: KindString},
		},
	},
	{
		ID:          "restrictions",
		Name:        "Restrictions",
		Description: "Restrict device features and applications",
		Icon:        "nosign",
		Category:    CategoryRestrictions,
		Platforms:   []string{"macOS", "iOS"},
		PayloadType: "com.apple.applicationaccess",
		Settings: []SettingSpec{
			{Key: "allowCamera", Kind: KindBool},
			{Key: "allowAirDrop", Kind: KindBool},
			{Key: "allowScreenShot", Kind: KindBool},
		},
	},
	{
		ID:          "mdm",
		Name:        "Device Management",
		Description: "Enroll with a Mobile Device Management server",
		Icon:        "server.rack",
		Category:    CategoryEnterprise,
		Platforms:   []string{"macOS", "iOS"},
		PayloadType: "com.apple.mdm",
		Settings: []SettingSpec{
			{Key: "ServerURL", Kind: KindString, Required: true},
			{Key: "CheckInURL", Kind: KindString},
			{Key: "Topic", Kind: KindString, Required: true},
			{Key: "AccessRights", Kind: KindInteger},
			{Key: "ServerCapabilities", Kind: KindStringArray},
		},
	},
}
