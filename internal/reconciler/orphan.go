package reconciler

import (
	"context"
	"log/slog"

	"gitlab.com/wovendns/woven/internal/recordcache"
	"gitlab.com/wovendns/woven/pkg/provider"
)

// cleanupOrphans removes records for hostnames no longer backed by any
// source. A hostname is an orphan for a provider instance when: the
// instance previously created a record for it (tracked in
// knownHostnames/the ownership ledger), it is not in the current desired
// set, and the policy store does not mark it preserved.
func (r *Reconciler) cleanupOrphans(ctx context.Context, current map[string]struct{}, cache *recordcache.Cache) []Action {
	var actions []Action

	candidates := r.orphanCandidates(current)

	for hostname := range candidates {
		if r.policy != nil && r.policy.IsPreserved(hostname) {
			r.logger.Debug("skipping preserved hostname during orphan cleanup",
				slog.String("hostname", hostname),
			)
			continue
		}

		r.logger.Info("detected orphan hostname", slog.String("hostname", hostname))

		for _, inst := range r.providers.MatchingProviders(hostname) {
			actions = append(actions, r.deleteOrphanForProvider(ctx, hostname, inst, cache)...)
		}
	}

	return actions
}

// orphanCandidates merges the in-memory knownHostnames set (populated
// during this process's lifetime) with every provider's ownership ledger
// (durable across restarts), then subtracts the current desired set.
func (r *Reconciler) orphanCandidates(current map[string]struct{}) map[string]struct{} {
	r.mu.RLock()
	candidates := make(map[string]struct{}, len(r.knownHostnames))
	for h := range r.knownHostnames {
		candidates[h] = struct{}{}
	}
	r.mu.RUnlock()

	if r.ownership != nil {
		for _, inst := range r.providers.All() {
			ledger, err := r.ownership.Ledger(inst.Name())
			if err != nil {
				continue
			}
			for _, h := range ledger.OwnedHostnames() {
				candidates[h] = struct{}{}
			}
		}
	}

	for h := range current {
		delete(candidates, h)
	}

	return candidates
}

// deleteOrphanForProvider dispatches orphan deletion according to the
// instance's operational mode.
func (r *Reconciler) deleteOrphanForProvider(ctx context.Context, hostname string, inst *provider.ProviderInstance, cache *recordcache.Cache) []Action {
	if !inst.Mode.AllowsDelete() {
		r.logger.Debug("skipping orphan deletion, additive mode never deletes",
			slog.String("hostname", hostname),
			slog.String("provider", inst.Name()),
		)
		return nil
	}

	if inst.Mode.RequiresOwnership() {
		return r.deleteManagedOrphan(ctx, hostname, inst)
	}
	return r.deleteAuthoritativeOrphan(ctx, hostname, inst, cache)
}

// deleteManagedOrphan deletes the orphan only if the reconciler owns it -
// via the ledger if configured, otherwise via a TXT ownership marker. This
// is the default mode: it never touches manually-created records.
func (r *Reconciler) deleteManagedOrphan(ctx context.Context, hostname string, inst *provider.ProviderInstance) []Action {
	action := Action{
		Type:       ActionDelete,
		Provider:   inst.Name(),
		Hostname:   hostname,
		RecordType: string(inst.RecordType),
		Target:     inst.Target,
	}

	owned, err := r.checkOwnership(ctx, inst, hostname)
	if err != nil {
		action.Type = ActionSkip
		action.Status = StatusSkipped
		action.Error = "failed to check ownership: " + err.Error()
		return []Action{action}
	}
	if !owned {
		action.Type = ActionSkip
		action.Status = StatusSkipped
		action.Error = "no ownership record - may be manually created"
		r.logger.Info("skipping orphan deletion - not owned",
			slog.String("hostname", hostname),
			slog.String("provider", inst.Name()),
		)
		return []Action{action}
	}

	if r.config.DryRun {
		action.Status = StatusSuccess
		return []Action{action}
	}

	// Ledger writes for a deletion happen-before the provider delete call, so
	// a crash between the two leaves the record present but no longer
	// recorded as owned, never owned-but-gone. Managed-mode cleanup does
	// not retry the delete of such a record.
	r.forgetOwnership(ctx, inst, hostname)

	if err := inst.DeleteRecord(ctx, hostname); err != nil {
		action.Status = StatusFailed
		action.Error = err.Error()
		return []Action{action}
	}

	action.Status = StatusSuccess
	r.logger.Info("deleted owned orphan record",
		slog.String("hostname", hostname),
		slog.String("provider", inst.Name()),
	)
	return []Action{action}
}

// deleteAuthoritativeOrphan deletes any in-scope record for the hostname,
// regardless of ownership, scoped to record types the provider supports.
func (r *Reconciler) deleteAuthoritativeOrphan(ctx context.Context, hostname string, inst *provider.ProviderInstance, cache *recordcache.Cache) []Action {
	var existing []provider.Record
	if cache != nil {
		if cached, ok := cache.All(inst.Name(), hostname); ok {
			existing = cached
		}
	}
	if existing == nil {
		var err error
		existing, err = inst.GetExistingRecords(ctx, hostname)
		if err != nil {
			return []Action{{
				Type:     ActionSkip,
				Status:   StatusSkipped,
				Provider: inst.Name(),
				Hostname: hostname,
				Error:    "failed to list records: " + err.Error(),
			}}
		}
	}

	caps := inst.Provider.Capabilities()
	var actions []Action
	deletable := false
	for _, rec := range existing {
		if caps.SupportsRecordType(rec.Type) {
			deletable = true
			break
		}
	}

	// Ledger writes for a deletion happen-before any provider delete call, so
	// a crash mid-cleanup leaves the record present but no longer recorded
	// as owned, never owned-but-gone. Managed-mode cleanup does not retry
	// the delete of such a record.
	if deletable && !r.config.DryRun {
		r.forgetOwnership(ctx, inst, hostname)
	}

	for _, rec := range existing {
		if !caps.SupportsRecordType(rec.Type) {
			continue
		}

		action := Action{
			Type:       ActionDelete,
			Provider:   inst.Name(),
			Hostname:   hostname,
			RecordType: string(rec.Type),
			Target:     rec.Target,
		}

		if r.config.DryRun {
			action.Status = StatusSuccess
			actions = append(actions, action)
			continue
		}

		if err := inst.Provider.Delete(ctx, rec); err != nil {
			action.Status = StatusFailed
			action.Error = err.Error()
		} else {
			action.Status = StatusSuccess
			r.logger.Info("deleted authoritative orphan record",
				slog.String("hostname", hostname),
				slog.String("provider", inst.Name()),
				slog.String("type", string(rec.Type)),
			)
		}
		actions = append(actions, action)
	}

	return actions
}

// checkOwnership reports whether inst owns hostname, preferring the ledger
// and falling back to the provider's TXT marker when no ledger is
// configured or the provider has no ledger entry.
func (r *Reconciler) checkOwnership(ctx context.Context, inst *provider.ProviderInstance, hostname string) (bool, error) {
	if r.ownership != nil {
		ledger, err := r.ownership.Ledger(inst.Name())
		if err == nil {
			if ledger.Owns(hostname, inst.RecordType) {
				return true, nil
			}
			if !inst.Provider.Capabilities().SupportsOwnershipTXT {
				return false, nil
			}
		}
	}

	if !inst.Provider.Capabilities().SupportsOwnershipTXT {
		return false, nil
	}

	return inst.HasOwnershipRecord(ctx, hostname)
}
