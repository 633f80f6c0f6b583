package types

// ResolveResult is the outcome of looking up the latest admissible version
// of one component.
type ResolveResult struct {
	Status  ResolveStatus
	Version string
	Channel string
	Err     error
}

func Found(version string, channel string) ResolveResult {
	return ResolveResult{Status: ResolveFound, Version: version, Channel: channel}
}

func NotFound() ResolveResult {
	return ResolveResult{Status: ResolveNotFound}
}

func ResolveFailed(err error) ResolveResult {
	return ResolveResult{Status: ResolveError, Err: err}
}

// ChannelVersion is a manifest's physical (artifact) version together with
// the logical version declared inside it.
type ChannelVersion struct {
	Physical string `json:"physical,omitempty"`
	Logical  string `json:"logical,omitempty"`
}

type ChannelChangeStatus string

const (
	ChannelAdded        ChannelChangeStatus = "added"
	ChannelRemoved      ChannelChangeStatus = "removed"
	ChannelUpdated      ChannelChangeStatus = "updated"
	ChannelUnresolvable ChannelChangeStatus = "unresolvable"
)

type ChannelVersionChange struct {
	Name   string              `json:"name"`
	Old    *ChannelVersion     `json:"old,omitempty"`
	New    *ChannelVersion     `json:"new,omitempty"`
	Status ChannelChangeStatus `json:"status"`
}

// ChannelVersionChangeBuilder accumulates both sides of a channel change.
type ChannelVersionChangeBuilder struct {
	name         string
	old          *ChannelVersion
	new          *ChannelVersion
	unresolvable bool
}

func NewChannelVersionChangeBuilder(name string) *ChannelVersionChangeBuilder {
	return &ChannelVersionChangeBuilder{name: name}
}

func (b *ChannelVersionChangeBuilder) OldPhysical(version string) *ChannelVersionChangeBuilder {
	b.oldSide().Physical = version
	return b
}

func (b *ChannelVersionChangeBuilder) OldLogical(version string) *ChannelVersionChangeBuilder {
	b.oldSide().Logical = version
	return b
}

func (b *ChannelVersionChangeBuilder) NewPhysical(version string) *ChannelVersionChangeBuilder {
	b.newSide().Physical = version
	return b
}

func (b *ChannelVersionChangeBuilder) NewLogical(version string) *ChannelVersionChangeBuilder {
	b.newSide().Logical = version
	return b
}

// Unresolvable marks a channel whose latest manifest cannot be looked up.
func (b *ChannelVersionChangeBuilder) Unresolvable() *ChannelVersionChangeBuilder {
	b.unresolvable = true
	return b
}

func (b *ChannelVersionChangeBuilder) oldSide() *ChannelVersion {
	if b.old == nil {
		b.old = &ChannelVersion{}
	}
	return b.old
}

func (b *ChannelVersionChangeBuilder) newSide() *ChannelVersion {
	if b.new == nil {
		b.new = &ChannelVersion{}
	}
	return b.new
}

func (b *ChannelVersionChangeBuilder) Build() ChannelVersionChange {
	change := ChannelVersionChange{Name: b.name, Old: b.old, New: b.new}
	switch {
	case b.unresolvable:
		change.New = nil
		change.Status = ChannelUnresolvable
	case b.old == nil:
		change.Status = ChannelAdded
	case b.new == nil:
		change.Status = ChannelRemoved
	default:
		change.Status = ChannelUpdated
	}
	return change
}

// Changed reports whether the change carries any drift worth presenting.
func (c ChannelVersionChange) Changed() bool {
	if c.Status != ChannelUpdated {
		return true
	}
	return *c.Old != *c.New
}

type UpdateSet struct {
	Artifacts     []ArtifactChange       `json:"artifacts"`
	Channels      []ChannelVersionChange `json:"channels"`
	Authoritative bool                   `json:"authoritative"`
}

func (u UpdateSet) IsEmpty() bool {
	return len(u.Artifacts) == 0 && len(u.Channels) == 0
}

// ResolvedChannelManifest is the manifest a channel points at right now.
// Manifest is nil for open channels.
type ResolvedChannelManifest struct {
	Channel         string
	Kind            ManifestKind
	PhysicalVersion string
	URL             string
	Hash            string
	Manifest        *Manifest
}

// LogicalVersion returns the version declared inside the manifest, if any.
func (r ResolvedChannelManifest) LogicalVersion() string {
	if r.Manifest == nil {
		return ""
	}
	return r.Manifest.LogicalVersion
}

// Actionable reports whether applying the set would change anything.
// Channels that cannot be resolved to a latest manifest are informational.
func (u UpdateSet) Actionable() bool {
	if len(u.Artifacts) > 0 {
		return true
	}
	for _, change := range u.Channels {
		if change.Status != ChannelUnresolvable {
			return true
		}
	}
	return false
}
