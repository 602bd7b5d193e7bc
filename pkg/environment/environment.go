// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package environment implements the Environment aggregator: the
// authority an Environment-aware caller (the resolver, an action) asks
// for repository membership, per-ID choice/keyword/license/mask policy,
// output-manager creation, and world-set membership.
package environment

import (
	"io"
	"sync"

	"github.com/exherbo-go/resolve/internal/output"
	"github.com/exherbo-go/resolve/pkg/metadata"
	"github.com/exherbo-go/resolve/pkg/names"
	"github.com/exherbo-go/resolve/pkg/repository"
)

// WorldSet is the minimal storage interface the Environment needs for
// world-set membership and mutation; sets.SimpleSet and friends
// implement it, but Environment depends only on this to avoid an import
// cycle with pkg/sets.
type WorldSet interface {
	Contains(qpn names.QualifiedPackageName) bool
	Add(qpn names.QualifiedPackageName)
	Remove(qpn names.QualifiedPackageName)
	Entries() []names.QualifiedPackageName
}

// HookTrigger identifies a point in the install/uninstall lifecycle a
// hook may run at.
type HookTrigger string

const (
	HookPreInstall    HookTrigger = "pre_install"
	HookPostInstall   HookTrigger = "post_install"
	HookPreUninstall  HookTrigger = "pre_uninstall"
	HookPostUninstall HookTrigger = "post_uninstall"
)

// Hook is a single registered callback; Environment runs every Hook
// registered for a trigger, in registration order, and aborts the
// sequence (returning the first error) if one fails.
type Hook struct {
	Trigger HookTrigger
	Run     func(id *metadata.PackageID, out *output.Manager) error
}

// repositoryEntry pairs a Repository with its importance rank (lower
// sorts first, per metadata.PackageIDComparator's
// "repository-importance-within-environment").
type repositoryEntry struct {
	repo       repository.Repository
	importance int
}

// Environment aggregates repositories, user preference state, world-set
// storage, and a hook executor (spec §3 "Environment. Aggregates
// repositories, user preference state, world-set storage, and a hook
// executor"). It owns its repositories by index (metadata.RepositoryHandle)
// rather than handing out pointers PackageIDs could cycle back through
// (spec DESIGN NOTES "arena + handle pattern").
type Environment struct {
	mu    sync.RWMutex
	repos []repositoryEntry

	config Config
	world  WorldSet
	hooks  []Hook

	// userChoices overrides a (qualified package, flag) pair regardless
	// of the package's own default.
	userChoices map[userChoiceKey]bool
	// userMasks/userUnmasks are keyed by canonical PackageID form; see
	// Mask/Unmask.
	userMasks   map[string]metadata.Mask
	userUnmasks map[string]bool
}

type userChoiceKey struct {
	qpn  names.QualifiedPackageName
	flag string
}

// New constructs an empty Environment with the given resolver-policy
// config and world-set backing store.
func New(cfg Config, world WorldSet) *Environment {
	return &Environment{
		config:      cfg,
		world:       world,
		userChoices: make(map[userChoiceKey]bool),
		userMasks:   make(map[string]metadata.Mask),
		userUnmasks: make(map[string]bool),
	}
}

// AddRepository registers repo at the given importance rank (lower is
// more important) and returns the handle PackageIDs in that repository
// should carry.
func (e *Environment) AddRepository(repo repository.Repository, importance int) metadata.RepositoryHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.repos = append(e.repos, repositoryEntry{repo: repo, importance: importance})
	return metadata.RepositoryHandle(len(e.repos) - 1)
}

// Repository resolves a handle back to its Repository.
func (e *Environment) Repository(h metadata.RepositoryHandle) (repository.Repository, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if int(h) < 0 || int(h) >= len(e.repos) {
		return nil, false
	}
	return e.repos[h].repo, true
}

// Repositories returns every registered Repository, in registration
// order.
func (e *Environment) Repositories() []repository.Repository {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]repository.Repository, len(e.repos))
	for i, ent := range e.repos {
		out[i] = ent.repo
	}
	return out
}

// Importance implements metadata.RepositoryImportance for use with
// metadata.PackageIDComparator.
func (e *Environment) Importance(h metadata.RepositoryHandle) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if int(h) < 0 || int(h) >= len(e.repos) {
		return len(e.repos) // unknown repositories sort last
	}
	return e.repos[h].importance
}

// WantChoice reports whether flag should be considered enabled for id,
// consulting the user override first and falling back to the package's
// own ChoicesKey default.
func (e *Environment) WantChoice(id *metadata.PackageID, flag string) bool {
	e.mu.RLock()
	override, ok := e.userChoices[userChoiceKey{qpn: id.Name(), flag: flag}]
	e.mu.RUnlock()
	if ok {
		return override
	}
	if ck, ok := id.Key(metadata.KeyChoices); ok {
		if cv, ok := ck.(metadata.ChoicesKey); ok && cv.Value != nil {
			return cv.Value.Enabled(flag)
		}
	}
	return false
}

// SetChoice installs a user-level override for flag on every ID of qpn.
func (e *Environment) SetChoice(qpn names.QualifiedPackageName, flag string, enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.userChoices[userChoiceKey{qpn: qpn, flag: flag}] = enabled
}

// AcceptKeywords reports whether any of id's keywords are accepted by
// the environment's accept-keywords policy.
func (e *Environment) AcceptKeywords(id *metadata.PackageID) bool {
	kk, ok := id.Key(metadata.KeyKeywords)
	if !ok {
		return false
	}
	ck, ok := kk.(metadata.CollectionKey[string])
	if !ok {
		return false
	}
	accepted := e.config.AcceptKeywords
	for _, have := range ck.Value {
		for _, want := range accepted {
			if want == "*" || have == want {
				return true
			}
		}
	}
	return false
}

// AcceptLicense reports whether every license in the given list is
// accepted by policy.
func (e *Environment) AcceptLicense(licenses []string) bool {
	for _, lic := range licenses {
		ok := false
		for _, want := range e.config.AcceptLicenses {
			if want == "*" || want == lic {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// Mask installs a user-level mask on id, overriding any existing
// per-user mask for the same canonical form.
func (e *Environment) Mask(id *metadata.PackageID, mask metadata.Mask) {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := id.CanonicalForm()
	e.userMasks[key] = mask
	delete(e.userUnmasks, key)
}

// Unmask records an explicit user-level unmask, which takes priority
// over both a user mask and any repository-level mask for the same ID.
func (e *Environment) Unmask(id *metadata.PackageID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := id.CanonicalForm()
	e.userUnmasks[key] = true
	delete(e.userMasks, key)
}

// Masks returns every reason id may not be installed: the environment's
// own user mask (if any), followed by id's own masks and then, when id's
// repository handle resolves to a MaskQuerier, that repository's
// QueryMasks result (a QueryMasks error is ignored). After an explicit
// Unmask of id it returns nil.
func (e *Environment) Masks(id *metadata.PackageID) []metadata.Mask {
	e.mu.RLock()
	key := id.CanonicalForm()
	unmasked := e.userUnmasks[key]
	userMask, hasUserMask := e.userMasks[key]
	e.mu.RUnlock()

	if unmasked {
		return nil
	}

	var out []metadata.Mask
	if hasUserMask {
		out = append(out, userMask)
	}
	out = append(out, id.Masks()...)

	if repo, ok := e.Repository(id.Repository()); ok {
		if mq, ok := repo.(repository.MaskQuerier); ok {
			if extra, err := mq.QueryMasks(id); err == nil {
				out = append(out, extra...)
			}
		}
	}
	return out
}

// World returns the environment's world-set storage.
func (e *Environment) World() WorldSet { return e.world }

// RegisterHook adds h to the set of hooks run at h.Trigger.
func (e *Environment) RegisterHook(h Hook) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hooks = append(e.hooks, h)
}

// RunHooks runs every hook registered for trigger, in registration
// order, stopping at (and returning) the first error.
func (e *Environment) RunHooks(trigger HookTrigger, id *metadata.PackageID, out *output.Manager) error {
	e.mu.RLock()
	hooks := make([]Hook, 0, len(e.hooks))
	for _, h := range e.hooks {
		if h.Trigger == trigger {
			hooks = append(hooks, h)
		}
	}
	e.mu.RUnlock()

	for _, h := range hooks {
		if err := h.Run(id, out); err != nil {
			return err
		}
	}
	return nil
}

// NewOutputManager constructs a fresh output.Manager writing to the
// given stdout/stderr writers (spec §3 "output-manager creation").
func (e *Environment) NewOutputManager(stdout, stderr io.Writer) *output.Manager {
	return output.NewManager(stdout, stderr)
}
