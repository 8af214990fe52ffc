package errors

// Sentinel errors for conditions named explicitly by the spec, kept
// alongside the ad-hoc New()/Wrap() constructors the rest of the engine
// uses for per-call context.
var (
	ErrWayTooShort          = New(ParseError, "way has fewer than 3 refs, no insert generated")
	ErrRelationMemberUnresolved = New(GeometryError, "relation references a way that has not been loaded")
	ErrChangesetRejected    = New(ParseError, "changeset has zero num_changes")
	ErrStateFileMalformed   = New(ParseError, "state file missing required keys")
	ErrDirectoryIndexEmpty  = New(ParseError, "directory index has no numeric anchors")
	ErrCacheCorrupt         = New(LocalError, "cached replication artefact is corrupt")
)
