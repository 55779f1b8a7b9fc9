package plugindomain

// RefreshState is the freshness of the published catalog
type RefreshState int

const (
	RefreshUnknown RefreshState = iota
	RefreshInProgress
	RefreshSuccess
	// RefreshFail means the primary repository, the only one in scope, failed
	RefreshFail
	// RefreshFailThirdRepo means a fetch failed while user repositories were in scope
	RefreshFailThirdRepo
)

func (s RefreshState) String() string {
	switch s {
	case RefreshInProgress:
		return "in progress"
	case RefreshSuccess:
		return "success"
	case RefreshFail:
		return "failed"
	case RefreshFailThirdRepo:
		return "failed (third-party repository)"
	default:
		return "unknown"
	}
}

// Terminal reports whether a refresh has finished in this state
func (s RefreshState) Terminal() bool {
	return s == RefreshSuccess || s == RefreshFail || s == RefreshFailThirdRepo
}

// Catalog is an immutable snapshot of the merged repository manifests
// published together with the state that produced it.
type Catalog struct {
	State   RefreshState
	Plugins []Definition
}

// Available reports whether the snapshot holds a usable catalog
func (c *Catalog) Available() bool {
	return c != nil && c.State == RefreshSuccess && c.Plugins != nil
}

// Find returns the first entry with the internal name, in fetch order
func (c *Catalog) Find(internalName string) *Definition {
	if c == nil {
		return nil
	}
	for i := range c.Plugins {
		if c.Plugins[i].InternalName == internalName {
			d := c.Plugins[i]
			return &d
		}
	}
	return nil
}

// Merge tags each manifest with its repository index and concatenates them
// preserving per-repository order.
func Merge(manifests [][]Definition) []Definition {
	merged := make([]Definition, 0)
	for repo, defs := range manifests {
		for _, d := range defs {
			d.RepoNumber = repo
			merged = append(merged, d)
		}
	}
	return merged
}
