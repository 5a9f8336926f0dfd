// Package creds implements the credential pool (C2): round-robin selection
// over the non-cooled, non-disabled subset of upstream API credentials, with
// 5-minute cooldown on 429 and permanent backing-store disable on 401.
package creds

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/riguy5000/ebay-hunter-worker/internal/store"
)

const cooldownTTL = 5 * time.Minute

// Pool holds the set of upstream credentials and answers "give me a usable
// one" with round-robin fairness. It is safe for concurrent use by many
// task-executing workers.
type Pool struct {
	st  store.Store
	log *slog.Logger

	mu          sync.RWMutex
	credentials []store.Credential // snapshot from the backing store

	rotationIdx atomic.Uint64

	// cooldown is a TTL set of app_ids currently rate-limited. Using an
	// expirable LRU gives "remove on read" lazy expiry for free instead of a
	// hand-rolled sweep goroutine — this module already depends on
	// hashicorp/golang-lru for exactly this kind of process-local cache.
	cooldown *lru.LRU[string, time.Time]
}

// NewPool constructs a Pool from an initial credential snapshot.
func NewPool(st store.Store, log *slog.Logger, initial []store.Credential) *Pool {
	return &Pool{
		st:          st,
		log:         log,
		credentials: initial,
		cooldown:    lru.NewLRU[string, time.Time](256, nil, cooldownTTL),
	}
}

// Refresh reloads the credential snapshot from the backing store. Callers
// should do this periodically (e.g. once per tick) since credentials are
// externally owned and edited through the web UI.
func (p *Pool) Refresh(ctx context.Context) error {
	ks, err := p.st.GetKeySettings(ctx)
	if err != nil {
		return fmt.Errorf("creds: refresh: %w", err)
	}
	p.mu.Lock()
	p.credentials = ks.Keys
	p.mu.Unlock()
	return nil
}

// usableLocked returns the subset of credentials that are status=ok and not
// currently cooled down, excluding any app_ids in exclude. Caller must hold
// p.mu for reading.
func (p *Pool) usableLocked(exclude map[string]struct{}) []store.Credential {
	usable := make([]store.Credential, 0, len(p.credentials))
	for _, c := range p.credentials {
		if c.Status != store.CredentialOK {
			continue
		}
		if _, excluded := exclude[c.AppID]; excluded {
			continue
		}
		if _, cooled := p.cooldown.Get(c.AppID); cooled {
			continue
		}
		usable = append(usable, c)
	}
	return usable
}

// Next returns a usable credential using round-robin over the usable subset.
// exclude supports "retry on a different key" after a failed attempt.
func (p *Pool) Next(exclude ...string) (store.Credential, error) {
	excludeSet := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		excludeSet[id] = struct{}{}
	}

	p.mu.RLock()
	usable := p.usableLocked(excludeSet)
	total := len(p.credentials)
	p.mu.RUnlock()

	if len(usable) == 0 {
		if total == 0 {
			return store.Credential{}, &NoUsableCredentialsError{}
		}
		if earliest, ok := p.earliestCooldownExpiry(); ok {
			return store.Credential{}, &AllCooledError{RetryAfter: time.Until(earliest).Seconds()}
		}
		return store.Credential{}, &NoUsableCredentialsError{}
	}

	// Advance the shared index once per call; it wraps modulo the usable
	// subset size *at call time*, so a shrinking/growing pool produces
	// eventual fair coverage rather than a strict FIFO sequence across
	// concurrent callers (fairness, not strict ordering, is the contract).
	idx := p.rotationIdx.Add(1) - 1
	return usable[int(idx%uint64(len(usable)))], nil
}

func (p *Pool) earliestCooldownExpiry() (time.Time, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var earliest time.Time
	found := false
	for _, c := range p.credentials {
		if until, ok := p.cooldown.Get(c.AppID); ok {
			if !found || until.Before(earliest) {
				earliest = until
				found = true
			}
		}
	}
	return earliest, found
}

// Cooldown puts a credential into cooldown for 5 minutes following a 429.
func (p *Pool) Cooldown(appID string) {
	p.cooldown.Add(appID, time.Now().Add(cooldownTTL))
	p.log.Warn("credential entering cooldown", "app_id", appID, "duration", cooldownTTL)
}

// MarkError permanently disables a credential (status=error) following a 401
// during token acquisition. Only a human edit in the UI can restore it; the
// worker never flips status back to ok on its own.
func (p *Pool) MarkError(ctx context.Context, appID string) error {
	p.mu.Lock()
	for i := range p.credentials {
		if p.credentials[i].AppID == appID {
			p.credentials[i].Status = store.CredentialError
		}
	}
	snapshot := make([]store.Credential, len(p.credentials))
	copy(snapshot, p.credentials)
	p.mu.Unlock()

	p.log.Error("credential disabled after auth failure", "app_id", appID)

	ks, err := p.st.GetKeySettings(ctx)
	if err != nil {
		return fmt.Errorf("creds: mark error: reload settings: %w", err)
	}
	for i := range ks.Keys {
		if ks.Keys[i].AppID == appID {
			ks.Keys[i].Status = store.CredentialError
		}
	}
	if err := p.st.PutKeySettings(ctx, ks); err != nil {
		return fmt.Errorf("creds: mark error: persist settings: %w", err)
	}
	return nil
}

// RecordCall upserts the per-credential daily call count. This is an
// observability field only — it never gates runtime behavior, unlike the
// rate governor's process-wide daily counter.
func (p *Pool) RecordCall(ctx context.Context, appID string) error {
	p.mu.Lock()
	var updated store.Credential
	ok := false
	for i := range p.credentials {
		if p.credentials[i].AppID == appID {
			today := time.Now().UTC().Truncate(24 * time.Hour)
			if p.credentials[i].CallsResetDate.Before(today) {
				p.credentials[i].CallsToday = 0
				p.credentials[i].CallsResetDate = today
			}
			p.credentials[i].CallsToday++
			updated = p.credentials[i]
			ok = true
		}
	}
	p.mu.Unlock()
	if !ok {
		return nil
	}

	ks, err := p.st.GetKeySettings(ctx)
	if err != nil {
		return fmt.Errorf("creds: record call: reload settings: %w", err)
	}
	for i := range ks.Keys {
		if ks.Keys[i].AppID == updated.AppID {
			ks.Keys[i] = updated
		}
	}
	return p.st.PutKeySettings(ctx, ks)
}

// UsableCount reports how many credentials are currently usable, for health
// reporting.
func (p *Pool) UsableCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.usableLocked(nil))
}
