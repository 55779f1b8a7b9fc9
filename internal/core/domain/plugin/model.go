package plugindomain

import (
	"errors"
	"fmt"
	"path/filepath"
)

var (
	// ErrDefinitionNotFound means a version directory has no local definition file yet
	ErrDefinitionNotFound = errors.New("plugin definition not found")
	// ErrNoPayload means an extracted package did not contain <InternalName>.dll
	ErrNoPayload = errors.New("package has no loadable payload")
)

// Marker and payload naming inside a version directory
const (
	DisabledMarker = ".disabled"
	TestingMarker  = ".testing"
	PayloadExt     = ".dll"
	DefinitionExt  = ".json"
)

// Definition describes one plugin as published by a repository manifest.
// The same shape is stored next to an installed payload as <InternalName>.json.
type Definition struct {
	Author                 string   `json:"Author,omitempty"`
	Name                   string   `json:"Name"`
	InternalName           string   `json:"InternalName"`
	AssemblyVersion        string   `json:"AssemblyVersion"`
	TestingAssemblyVersion string   `json:"TestingAssemblyVersion,omitempty"`
	IsTestingExclusive     bool     `json:"IsTestingExclusive,omitempty"`
	Description            string   `json:"Description,omitempty"`
	Punchline              string   `json:"Punchline,omitempty"`
	Tags                   []string `json:"Tags,omitempty"`
	RepoURL                string   `json:"RepoUrl,omitempty"`
	ApplicableVersion      string   `json:"ApplicableVersion,omitempty"`
	APILevel               int      `json:"DalamudApiLevel"`
	DownloadLinkInstall    string   `json:"DownloadLinkInstall,omitempty"`
	DownloadLinkUpdate     string   `json:"DownloadLinkUpdate,omitempty"`
	DownloadLinkTesting    string   `json:"DownloadLinkTesting,omitempty"`
	DownloadCount          int64    `json:"DownloadCount,omitempty"`
	LastUpdate             int64    `json:"LastUpdate,omitempty"`

	// RepoNumber is the index of the repository the entry was fetched from.
	// It is assigned during aggregation and never read from a manifest.
	RepoNumber int `json:"-"`
}

// Channel is the release track a version is installed from
type Channel int

const (
	ChannelStable Channel = iota
	ChannelTesting
)

func (c Channel) String() string {
	if c == ChannelTesting {
		return "testing"
	}
	return "stable"
}

// VersionFor returns the version string published for the given channel
func (d Definition) VersionFor(ch Channel) string {
	if ch == ChannelTesting {
		return d.TestingAssemblyVersion
	}
	return d.AssemblyVersion
}

// WantsTestingDownload reports whether a request for the given channel really
// downloads the testing build: the testing version must be newer than the
// stable one, unless the plugin only ships on the testing channel.
func (d Definition) WantsTestingDownload(ch Channel) bool {
	if ch != ChannelTesting {
		return false
	}
	if d.IsTestingExclusive {
		return true
	}
	testing := ParseOptionalVersion(d.TestingAssemblyVersion)
	if testing == nil {
		return false
	}
	return IsNewer(testing, ParseOptionalVersion(d.AssemblyVersion))
}

// DownloadURL picks the publisher link for a download
func (d Definition) DownloadURL(testingDownload, isUpdate bool) string {
	switch {
	case testingDownload:
		return d.DownloadLinkTesting
	case isUpdate:
		return d.DownloadLinkUpdate
	default:
		return d.DownloadLinkInstall
	}
}

// PayloadFile is the loadable package inside a version directory
func (d Definition) PayloadFile(versionDir string) string {
	return filepath.Join(versionDir, d.InternalName+PayloadExt)
}

// DefinitionFile is the local definition copy inside a version directory
func DefinitionFile(versionDir, internalName string) string {
	return filepath.Join(versionDir, internalName+DefinitionExt)
}

// Validate checks the fields every manifest entry must carry
func (d Definition) Validate() error {
	if d.InternalName == "" {
		return fmt.Errorf("definition %q has no internal name", d.Name)
	}
	if filepath.Base(d.InternalName) != d.InternalName || d.InternalName == "." || d.InternalName == ".." {
		return fmt.Errorf("definition internal name %q is not a valid directory name", d.InternalName)
	}
	return nil
}

// ValidateVersionDir checks a version string can name a version directory
func ValidateVersionDir(version string) error {
	if version == "" || version == "." || version == ".." || filepath.Base(version) != version {
		return fmt.Errorf("version %q is not a valid directory name", version)
	}
	return nil
}

// UpdateRecord is the outcome of one resolved update
type UpdateRecord struct {
	InternalName string
	Name         string
	Version      string
	WasUpdated   bool
}

// LoadReason tells the host why a package is being loaded
type LoadReason string

const (
	LoadReasonInstaller LoadReason = "installer"
	LoadReasonUpdate    LoadReason = "update"
)

// InstallOptions controls one installation
type InstallOptions struct {
	// EnableAfterInstall loads the plugin once placed; otherwise it is left disabled
	EnableAfterInstall bool
	// IsUpdate selects the publisher's update link
	IsUpdate bool
	Channel  Channel
}
