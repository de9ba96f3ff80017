// Package pppc models Privacy Preferences Policy Control permissions, the
// per-application grants carried by a com.apple.TCC.configuration-profile-policy
// payload.
package pppc

import "sort"

// ServiceCategory groups privacy services for display.
type ServiceCategory string

const (
	CategorySystem      ServiceCategory = "System"
	CategoryFiles       ServiceCategory = "Files"
	CategoryMedia       ServiceCategory = "Media"
	CategoryApplication ServiceCategory = "Application"
)

// Service is a privacy-protected system service an entry grants access to.
type Service struct {
	ID       string
	Name     string
	Key      string // TCC service key written to the profile
	Category ServiceCategory

	// RequiresCodeRequirement marks services whose entries are only
	// complete with a code-signing designated requirement.
	RequiresCodeRequirement bool
}

// Service ids.
const (
	ServiceCamera          = "camera"
	ServiceMicrophone      = "microphone"
	ServiceFullDiskAccess  = "full-disk-access"
	ServiceScreenRecording = "screen-recording"
	ServiceAccessibility   = "accessibility"
	ServiceInputMonitoring = "input-monitoring"
)

var services = []Service{
	{ID: ServiceCamera, Name: "Camera", Key: "Camera", Category: CategoryMedia},
	{ID: ServiceMicrophone, Name: "Microphone", Key: "Microphone", Category: CategoryMedia},
	{ID: ServiceFullDiskAccess, Name: "Full Disk Access", Key: "SystemPolicyAllFiles", Category: CategoryFiles, RequiresCodeRequirement: true},
	{ID: ServiceScreenRecording, Name: "Screen Recording", Key: "ScreenCapture", Category: CategoryMedia},
	{ID: ServiceAccessibility, Name: "Accessibility", Key: "Accessibility", Category: CategorySystem},
	{ID: ServiceInputMonitoring, Name: "Input Monitoring", Key: "ListenEvent", Category: CategorySystem},
	{ID: "post-event", Name: "Post Events", Key: "PostEvent", Category: CategorySystem},
	{ID: "apple-events", Name: "Apple Events", Key: "AppleEvents", Category: CategoryApplication, RequiresCodeRequirement: true},
	{ID: "system-admin-files", Name: "Administrator Files", Key: "SystemPolicySysAdminFiles", Category: CategoryFiles, RequiresCodeRequirement: true},
	{ID: "desktop-folder", Name: "Desktop Folder", Key: "SystemPolicyDesktopFolder", Category: CategoryFiles},
	{ID: "documents-folder", Name: "Documents Folder", Key: "SystemPolicyDocumentsFolder", Category: CategoryFiles},
	{ID: "downloads-folder", Name: "Downloads Folder", Key: "SystemPolicyDownloadsFolder", Category: CategoryFiles},
	{ID: "network-volumes", Name: "Network Volumes", Key: "SystemPolicyNetworkVolumes", Category: CategoryFiles},
	{ID: "removable-volumes", Name: "Removable Volumes", Key: "SystemPolicyRemovableVolumes", Category: CategoryFiles},
	{ID: "file-provider-presence", Name: "File Provider Presence", Key: "FileProviderPresence", Category: CategoryFiles},
	{ID: "address-book", Name: "Contacts", Key: "AddressBook", Category: CategoryApplication},
	{ID: "calendar", Name: "Calendar", Key: "Calendar", Category: CategoryApplication},
	{ID: "reminders", Name: "Reminders", Key: "Reminders", Category: CategoryApplication},
	{ID: "photos", Name: "Photos", Key: "Photos", Category: CategoryApplication},
	{ID: "media-library", Name: "Media Library", Key: "MediaLibrary", Category: CategoryMedia},
	{ID: "speech-recognition", Name: "Speech Recognition", Key: "SpeechRecognition", Category: CategorySystem},
	{ID: "bluetooth-always", Name: "Bluetooth", Key: "BluetoothAlways", Category: CategorySystem},
}

var servicesByID = func() map[string]Service {
	m := make(map[string]Service, len(services))
	for _, s := range services {
		m[s.ID] = s
	}
	return m
}()

// LookupService returns the service with the given id.
func LookupService(id string) (Service, bool) {
	s, ok := servicesByID[id]
	return s, ok
}

// MustService is LookupService for ids known at compile time.
func MustService(id string) Service {
	s, ok := LookupService(id)
	if !ok {
		panic("pppc: unknown service " + id)
	}
	return s
}

// Services returns every known service sorted by name.
func Services() []Service {
	out := make([]Service, len(services))
	copy(out, services)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
