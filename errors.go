package goRights

import "errors"

var (
	// ErrPermissionDenied is returned by Authorize when the engine denies, or
	// abstains under AbstainDeny.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrAbstained marks a denial caused by an abstention. It is always
	// wrapped together with ErrPermissionDenied.
	ErrAbstained = errors.New("authorization abstained")
	// ErrNoPrincipal is returned by principal providers when the context
	// carries no principal.
	ErrNoPrincipal = errors.New("no principal")
	// ErrEngineNotReady is returned when a method is called on a nil or
	// closed engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrStoreUnavailable wraps rights store failures.
	ErrStoreUnavailable = errors.New("rights store unavailable")
	// ErrTierNotStored is returned for tiers whose rights are never read from
	// the store (super-admin).
	ErrTierNotStored = errors.New("tier rights are not stored")
	// ErrInvalidRights is returned when a rights buffer does not fit the
	// catalogs.
	ErrInvalidRights = errors.New("invalid rights buffer")
	// ErrRightsNotApplied is returned by the update methods when the store
	// accepted the new rights but the reload that publishes them failed.
	ErrRightsNotApplied = errors.New("rights stored but not yet applied")
)
