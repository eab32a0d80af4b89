package reconciler

import (
	"context"
	"log/slog"

	"gitlab.com/wovendns/woven/internal/recordcache"
	"gitlab.com/wovendns/woven/pkg/provider"
	"gitlab.com/wovendns/woven/pkg/source"
)

// applyBatchProviders dispatches creates/updates through BatchApplier for
// every provider instance that advertises native batching (e.g. Route53's
// ChangeResourceRecordSets), chunked to Capabilities().NativeBatch. Provider
// instances handled here are recorded in r.batchHandled so the per-hostname
// loop in ensureRecord skips them.
//
// Hostnames carrying an explicit RecordHints.Provider targeting a different
// instance are excluded from batching here; they're resolved directly by
// ensureRecord.
func (r *Reconciler) applyBatchProviders(ctx context.Context, hostnames map[string]source.Hostname, cache *recordcache.Cache) []Action {
	if r.config.DryRun || cache == nil {
		return nil
	}

	var actions []Action
	for _, inst := range r.providers.All() {
		applier, ok := inst.Provider.(provider.BatchApplier)
		if !ok {
			continue
		}
		limit := inst.Provider.Capabilities().NativeBatch
		if limit <= 0 {
			continue
		}

		matched := r.matchedHostnames(inst, hostnames)
		if len(matched) == 0 {
			continue
		}

		diff := r.diffForInstance(inst, matched, cache)
		if !diff.HasChanges() {
			r.batchHandled[inst.Name()] = true
			continue
		}

		actions = append(actions, r.dispatchBatch(ctx, inst, applier, diff, limit)...)
		r.batchHandled[inst.Name()] = true
	}

	return actions
}

func (r *Reconciler) matchedHostnames(inst *provider.ProviderInstance, hostnames map[string]source.Hostname) []source.Hostname {
	var matched []source.Hostname
	for _, h := range hostnames {
		if hints := h.RecordHints; hints != nil && hints.Provider != "" {
			if hints.Provider != inst.Name() {
				continue
			}
		} else if !inst.Matches(h.Name) {
			continue
		}
		matched = append(matched, h)
	}
	return matched
}

// diffForInstance builds the desired record for each matched hostname using
// the instance's configured record type/target/TTL, with per-hostname
// RecordHints overriding any of those fields, and diffs the result against
// the cached existing records.
func (r *Reconciler) diffForInstance(inst *provider.ProviderInstance, hostnames []source.Hostname, cache *recordcache.Cache) RecordDiff {
	caps := inst.Provider.Capabilities()

	var existing, desired []provider.Record
	for _, h := range hostnames {
		if cached, ok := cache.Existing(inst.Name(), h.Name); ok {
			existing = append(existing, cached...)
		}

		recordType := inst.RecordType
		target := inst.Target
		ttl := inst.TTL
		proxied := inst.Proxied
		var srvData *provider.SRVData
		var caaData *provider.CAAData

		if hints := h.RecordHints; hints != nil {
			if hints.Type != "" {
				recordType = provider.RecordType(hints.Type)
			}
			if hints.Target != "" {
				target = hints.Target
			}
			if hints.TTL > 0 {
				ttl = hints.TTL
			}
			if hints.Proxied != nil {
				proxied = *hints.Proxied
			}
			if hints.SRV != nil {
				srvData = &provider.SRVData{Priority: hints.SRV.Priority, Weight: hints.SRV.Weight, Port: hints.SRV.Port}
			}
			if hints.CAA != nil {
				caaData = &provider.CAAData{Flags: hints.CAA.Flags, Tag: hints.CAA.Tag}
			}
		}

		desired = append(desired, provider.Record{
			Hostname: h.Name,
			Type:     recordType,
			Target:   target,
			TTL:      caps.ClampTTL(ttl),
			Proxied:  proxied && caps.SupportsProxied,
			SRV:      srvData,
			CAA:      caaData,
		})
	}

	return CompareRecordSets(existing, desired)
}

func (r *Reconciler) dispatchBatch(ctx context.Context, inst *provider.ProviderInstance, applier provider.BatchApplier, diff RecordDiff, limit int) []Action {
	var actions []Action

	creates, updates, deletes := diff.ToCreate, diff.ToUpdate, diff.ToDelete

	for len(creates) > 0 || len(updates) > 0 || len(deletes) > 0 {
		var cChunk, dChunk []provider.Record
		var uChunk []RecordPair
		cChunk, creates = chunkRecords(creates, limit)
		uChunk, updates = chunkPairs(updates, limit-len(cChunk))
		remaining := limit - len(cChunk) - len(uChunk)
		dChunk, deletes = chunkRecords(deletes, max0(remaining))

		desiredUpdates := make([]provider.Record, 0, len(uChunk))
		for _, p := range uChunk {
			desiredUpdates = append(desiredUpdates, p.Desired)
		}

		// Ledger writes for a deletion happen-before the batch call, so a
		// crash mid-batch leaves a record present but no longer recorded
		// as owned, never owned-but-gone. Managed-mode orphan cleanup
		// does not retry the delete of such a record.
		for _, rec := range dChunk {
			r.forgetOwnership(ctx, inst, rec.Hostname)
		}

		err := applier.ApplyBatch(ctx, cChunk, desiredUpdates, dChunk)

		for _, rec := range cChunk {
			actions = append(actions, r.batchAction(inst, ActionCreate, rec, err))
			if err == nil {
				r.ensureOwnershipRecord(ctx, rec.Hostname, inst, rec)
			}
		}
		for _, p := range uChunk {
			actions = append(actions, r.batchAction(inst, ActionUpdate, p.Desired, err))
			if err == nil {
				r.ensureOwnershipRecord(ctx, p.Desired.Hostname, inst, p.Desired)
			}
		}
		for _, rec := range dChunk {
			actions = append(actions, r.batchAction(inst, ActionDelete, rec, err))
		}

		if len(cChunk)+len(uChunk)+len(dChunk) == 0 {
			break
		}
	}

	r.logger.Info("applied batch changes",
		slog.String("provider", inst.Name()),
		slog.Int("creates", len(diff.ToCreate)),
		slog.Int("updates", len(diff.ToUpdate)),
		slog.Int("deletes", len(diff.ToDelete)),
	)

	return actions
}

func (r *Reconciler) batchAction(inst *provider.ProviderInstance, actionType ActionType, rec provider.Record, err error) Action {
	a := Action{
		Type:       actionType,
		Provider:   inst.Name(),
		Hostname:   rec.Hostname,
		RecordType: string(rec.Type),
		Target:     rec.Target,
	}
	if err != nil {
		a.Status = StatusFailed
		a.Error = err.Error()
	} else {
		a.Status = StatusSuccess
	}
	return a
}

func chunkRecords(records []provider.Record, n int) ([]provider.Record, []provider.Record) {
	if n <= 0 || len(records) == 0 {
		return nil, records
	}
	if n >= len(records) {
		return records, nil
	}
	return records[:n], records[n:]
}

func chunkPairs(pairs []RecordPair, n int) ([]RecordPair, []RecordPair) {
	if n <= 0 || len(pairs) == 0 {
		return nil, pairs
	}
	if n >= len(pairs) {
		return pairs, nil
	}
	return pairs[:n], pairs[n:]
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
