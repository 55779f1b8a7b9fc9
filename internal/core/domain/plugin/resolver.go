package plugindomain

// Verdict explains the outcome of a resolution
type Verdict int

const (
	VerdictUpdate Verdict = iota
	VerdictUpToDate
	VerdictNotInCatalog
	VerdictIncompatibleAPI
	VerdictUnparsableRemote
)

func (v Verdict) String() string {
	switch v {
	case VerdictUpdate:
		return "update available"
	case VerdictUpToDate:
		return "up to date"
	case VerdictNotInCatalog:
		return "not in catalog"
	case VerdictIncompatibleAPI:
		return "incompatible api level"
	case VerdictUnparsableRemote:
		return "unparsable remote version"
	default:
		return "unknown"
	}
}

// ResolveInput carries everything the resolver needs for one installed plugin
type ResolveInput struct {
	Local          Definition
	Remote         *Definition
	TestingAllowed bool
	HostAPILevel   int
}

// Resolution is the resolver's decision
type Resolution struct {
	Verdict Verdict
	Channel Channel
	Remote  Definition
}

// ShouldUpdate is true only for VerdictUpdate
func (r Resolution) ShouldUpdate() bool { return r.Verdict == VerdictUpdate }

// TargetVersion is the version string the update would install
func (r Resolution) TargetVersion() string { return r.Remote.VersionFor(r.Channel) }

// Resolve decides whether an installed plugin should be updated and from which channel.
func Resolve(in ResolveInput) Resolution {
	if in.Remote == nil {
		return Resolution{Verdict: VerdictNotInCatalog}
	}
	remote := *in.Remote

	if remote.APILevel != in.HostAPILevel {
		return Resolution{Verdict: VerdictIncompatibleAPI, Remote: remote}
	}

	remoteStable := ParseOptionalVersion(remote.AssemblyVersion)
	if remoteStable == nil {
		return Resolution{Verdict: VerdictUnparsableRemote, Remote: remote}
	}
	local := ParseOptionalVersion(in.Local.AssemblyVersion)

	testingEligible := false
	if in.TestingAllowed {
		if remote.IsTestingExclusive {
			// testing-exclusive entries have no stable build to compare against
			testingEligible = true
		} else if remote.TestingAssemblyVersion != "" {
			testingEligible = IsNewer(ParseOptionalVersion(remote.TestingAssemblyVersion), local)
		}
	}

	switch {
	case testingEligible:
		return Resolution{Verdict: VerdictUpdate, Channel: ChannelTesting, Remote: remote}
	case IsNewer(remoteStable, local):
		return Resolution{Verdict: VerdictUpdate, Channel: ChannelStable, Remote: remote}
	default:
		return Resolution{Verdict: VerdictUpToDate, Remote: remote}
	}
}
