package reconciler

import (
	"context"
	"fmt"
	"log/slog"

	"gitlab.com/wovendns/woven/internal/recordcache"
	"gitlab.com/wovendns/woven/pkg/provider"
	"gitlab.com/wovendns/woven/pkg/source"
)

// ensureRecord creates or updates DNS records for a hostname across every
// matching provider instance.
//
// When hostname carries RecordHints.Provider, it's routed directly to that
// named instance instead of domain matching - this lets a single label set
// a hostname's provider explicitly.
func (r *Reconciler) ensureRecord(ctx context.Context, hostname source.Hostname, cache *recordcache.Cache) []Action {
	if hints := hostname.RecordHints; hints != nil && hints.Provider != "" {
		inst, exists := r.providers.Get(hints.Provider)
		if !exists {
			r.logger.Warn("explicit provider not found",
				slog.String("hostname", hostname.Name),
				slog.String("target_provider", hints.Provider),
			)
			return []Action{{
				Type:     ActionSkip,
				Status:   StatusSkipped,
				Hostname: hostname.Name,
				Error:    fmt.Sprintf("explicit provider %q not found", hints.Provider),
			}}
		}
		if r.batchHandled[inst.Name()] {
			return nil
		}
		return []Action{r.ensureRecordForProvider(ctx, hostname, inst, cache)}
	}

	matchingProviders := r.providers.MatchingProviders(hostname.Name)

	if len(matchingProviders) == 0 {
		return []Action{{
			Type:     ActionSkip,
			Status:   StatusSkipped,
			Hostname: hostname.Name,
			Error:    "no matching provider",
		}}
	}

	var actions []Action
	for _, inst := range matchingProviders {
		if r.batchHandled[inst.Name()] {
			continue
		}
		actions = append(actions, r.ensureRecordForProvider(ctx, hostname, inst, cache))
	}
	return actions
}

// ensureRecordForProvider reconciles a single hostname against a single
// provider instance. It resolves the desired record from the instance's
// configured type/target/TTL/proxied, with hostname.RecordHints overriding
// any of those fields, then lists (via cache when available) the existing
// records at that hostname and creates, updates, or skips as needed.
func (r *Reconciler) ensureRecordForProvider(ctx context.Context, hostname source.Hostname, inst *provider.ProviderInstance, cache *recordcache.Cache) Action {
	recordType := inst.RecordType
	target := inst.Target
	ttl := inst.TTL
	proxied := inst.Proxied
	var srvData *provider.SRVData
	var caaData *provider.CAAData

	if hints := hostname.RecordHints; hints != nil {
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

	caps := inst.Provider.Capabilities()
	desired := provider.Record{
		Hostname: hostname.Name,
		Type:     recordType,
		Target:   target,
		TTL:      caps.ClampTTL(ttl),
		Proxied:  proxied && caps.SupportsProxied,
		SRV:      srvData,
		CAA:      caaData,
	}

	action := Action{
		Type:       ActionCreate,
		Provider:   inst.Name(),
		Hostname:   hostname.Name,
		RecordType: string(recordType),
		Target:     target,
	}

	if r.config.DryRun {
		action.Status = StatusSuccess
		r.logger.Info("would create record (dry-run)",
			slog.String("hostname", hostname.Name),
			slog.String("provider", inst.Name()),
			slog.String("type", string(recordType)),
			slog.String("target", target),
			slog.Bool("has_hints", hostname.HasRecordHints()),
		)
		return action
	}

	var existingRecords []provider.Record
	cached, ok := []provider.Record(nil), false
	if cache != nil {
		cached, ok = cache.Existing(inst.Name(), hostname.Name)
	}
	if ok {
		existingRecords = cached
	} else {
		var err error
		existingRecords, err = inst.GetExistingRecords(ctx, hostname.Name)
		if err != nil {
			r.logger.Warn("failed to list existing records, proceeding with create",
				slog.String("hostname", hostname.Name),
				slog.String("provider", inst.Name()),
				slog.String("error", err.Error()),
			)
		}
	}

	var sameTypeRecords, conflictingTypeRecords []provider.Record
	for _, existing := range existingRecords {
		if existing.Type == recordType {
			sameTypeRecords = append(sameTypeRecords, existing)
		} else {
			conflictingTypeRecords = append(conflictingTypeRecords, existing)
		}
	}

	if len(conflictingTypeRecords) > 0 {
		conflictTypes := make([]string, 0, len(conflictingTypeRecords))
		for _, cr := range conflictingTypeRecords {
			conflictTypes = append(conflictTypes, string(cr.Type))
		}
		action.Type = ActionSkip
		action.Status = StatusSkipped
		action.Error = fmt.Sprintf("type conflict: existing %v record(s) conflict with %s", conflictTypes, recordType)
		r.logger.Warn("skipping due to record type conflict",
			slog.String("hostname", hostname.Name),
			slog.String("provider", inst.Name()),
			slog.Any("existing_types", conflictTypes),
		)
		return action
	}

	// Among same-type records, find the one (if any) identifying the same
	// record as desired - for SRV that's hostname/type/target/priority/
	// weight/port since several SRV records can share a target, for
	// everything else hostname/type/target is enough - plus any stale SRV
	// records left behind by a changed weight/priority/port.
	var matched *provider.Record
	var staleSRV []provider.Record
	if recordType == provider.RecordTypeSRV {
		existingByKey := make(map[string]provider.Record, len(sameTypeRecords))
		for _, e := range sameTypeRecords {
			existingByKey[recordKey(e)] = e
		}
		if rec, ok := existingByKey[recordKey(desired)]; ok {
			matched = &rec
		}
		staleSRV = FindStaleSRVRecords(sameTypeRecords, []provider.Record{desired})
	} else if rec, ok := FindExactMatch(sameTypeRecords, desired); ok {
		matched = &rec
	}

	for _, stale := range staleSRV {
		r.logger.Info("deleting stale SRV record with outdated data",
			slog.String("hostname", hostname.Name),
			slog.String("provider", inst.Name()),
			slog.String("target", stale.Target),
		)
		if err := inst.DeleteSRVRecord(ctx, hostname.Name, stale.Target, stale.SRV); err != nil {
			r.logger.Error("failed to delete stale SRV record",
				slog.String("hostname", hostname.Name),
				slog.String("provider", inst.Name()),
				slog.String("error", err.Error()),
			)
		}
	}

	if matched != nil {
		if provider.RecordEquals(*matched, desired) {
			action.Type = ActionSkip
			action.Status = StatusSkipped
			action.Error = "record already exists"

			owned := r.isOwned(inst.Name(), recordType, hostname.Name)
			switch {
			case owned:
				r.ensureOwnershipRecord(ctx, hostname.Name, inst, *matched)
			case r.config.AdoptExisting:
				r.logger.Info("adopting existing record",
					slog.String("hostname", hostname.Name),
					slog.String("provider", inst.Name()),
					slog.String("target", target),
				)
				r.ensureOwnershipRecord(ctx, hostname.Name, inst, *matched)
			default:
				r.logger.Info("existing record found, skipping adoption (set ADOPT_EXISTING=true to manage)",
					slog.String("hostname", hostname.Name),
					slog.String("provider", inst.Name()),
					slog.String("target", target),
				)
			}
			return action
		}

		// Same key (hostname/type/target) but a mutable field (proxied,
		// TTL, SRV/CAA data) differs - an in-place update, not a recreate.
		if err := inst.UpdateRecord(ctx, *matched, desired); err != nil {
			action.Status = StatusFailed
			action.Error = err.Error()
			r.logger.Error("failed to update record",
				slog.String("hostname", hostname.Name),
				slog.String("provider", inst.Name()),
				slog.String("error", err.Error()),
			)
			return action
		}

		action.Type = ActionUpdate
		action.Status = StatusSuccess
		r.logger.Info("updated record",
			slog.String("hostname", hostname.Name),
			slog.String("provider", inst.Name()),
			slog.String("target", target),
		)
		r.ensureOwnershipRecord(ctx, hostname.Name, inst, desired)
		return action
	}

	for _, existing := range sameTypeRecords {
		r.logger.Info("target changed, deleting old record",
			slog.String("hostname", hostname.Name),
			slog.String("provider", inst.Name()),
			slog.String("old_target", existing.Target),
			slog.String("new_target", target),
		)
		if err := inst.DeleteRecordByTarget(ctx, hostname.Name, existing.Type, existing.Target); err != nil {
			r.logger.Error("failed to delete old record before update",
				slog.String("hostname", hostname.Name),
				slog.String("provider", inst.Name()),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := inst.CreateRecordWithCAA(ctx, hostname.Name, recordType, target, ttl, srvData, caaData); err != nil {
		switch {
		case provider.IsConflict(err):
			action.Type = ActionSkip
			action.Status = StatusSkipped
			action.Error = "record already exists"
			r.ensureOwnershipRecord(ctx, hostname.Name, inst, desired)
		case provider.IsTypeConflict(err):
			action.Type = ActionSkip
			action.Status = StatusSkipped
			action.Error = "record type conflict"
			r.logger.Warn("record type conflict detected",
				slog.String("hostname", hostname.Name),
				slog.String("provider", inst.Name()),
			)
		default:
			action.Status = StatusFailed
			action.Error = err.Error()
			r.logger.Error("failed to create record",
				slog.String("hostname", hostname.Name),
				slog.String("provider", inst.Name()),
				slog.String("error", err.Error()),
			)
		}
		return action
	}

	if len(sameTypeRecords) > 0 {
		action.Type = ActionUpdate
		r.logger.Info("updated record",
			slog.String("hostname", hostname.Name),
			slog.String("provider", inst.Name()),
			slog.String("target", target),
		)
	} else {
		r.logger.Info("created record",
			slog.String("hostname", hostname.Name),
			slog.String("provider", inst.Name()),
			slog.String("target", target),
		)
	}
	action.Status = StatusSuccess
	r.ensureOwnershipRecord(ctx, hostname.Name, inst, desired)

	return action
}

// isOwned reports whether the ownership ledger (if configured) or the
// in-memory known-hostnames set records this hostname as owned.
func (r *Reconciler) isOwned(providerName string, recordType provider.RecordType, hostname string) bool {
	if r.ownership != nil {
		if ledger, err := r.ownership.Ledger(providerName); err == nil {
			if ledger.Owns(hostname, recordType) {
				return true
			}
		}
	}
	r.mu.RLock()
	_, known := r.knownHostnames[hostname]
	r.mu.RUnlock()
	return known
}

// ensureOwnershipRecord records ownership of hostname for inst in the
// ledger and, when the provider supports it, as a TXT marker. Both are
// best-effort and idempotent.
func (r *Reconciler) ensureOwnershipRecord(ctx context.Context, hostname string, inst *provider.ProviderInstance, record provider.Record) {
	if !r.config.OwnershipTracking {
		return
	}

	if r.ownership != nil {
		ledger, err := r.ownership.Ledger(inst.Name())
		if err != nil {
			r.logger.Warn("failed to open ownership ledger",
				slog.String("provider", inst.Name()),
				slog.String("error", err.Error()),
			)
		} else if err := ledger.Record(hostname, record.Type, record.Target, record.ProviderID); err != nil {
			r.logger.Warn("failed to record ownership",
				slog.String("hostname", hostname),
				slog.String("provider", inst.Name()),
				slog.String("error", err.Error()),
			)
		}
	}

	r.mu.Lock()
	r.knownHostnames[hostname] = struct{}{}
	r.mu.Unlock()

	if !inst.Provider.Capabilities().SupportsOwnershipTXT {
		return
	}

	if err := inst.CreateOwnershipRecord(ctx, hostname); err != nil && !provider.IsConflict(err) {
		r.logger.Warn("failed to create ownership TXT record",
			slog.String("hostname", hostname),
			slog.String("provider", inst.Name()),
			slog.String("error", err.Error()),
		)
	}
}

// deleteRecord removes DNS records for a hostname from all matching
// providers. Ownership is forgotten before the provider delete call is
// issued, so a crash between the two leaves the record present but no
// longer recorded as owned, never owned-but-gone. Managed-mode orphan
// cleanup does not retry the delete of such a record.
func (r *Reconciler) deleteRecord(ctx context.Context, hostname string) []Action {
	var actions []Action

	for _, inst := range r.providers.MatchingProviders(hostname) {
		action := Action{
			Type:       ActionDelete,
			Provider:   inst.Name(),
			Hostname:   hostname,
			RecordType: string(inst.RecordType),
			Target:     inst.Target,
		}

		if r.config.DryRun {
			action.Status = StatusSuccess
			r.logger.Info("would delete record (dry-run)",
				slog.String("hostname", hostname),
				slog.String("provider", inst.Name()),
			)
			actions = append(actions, action)
			continue
		}

		r.forgetOwnership(ctx, inst, hostname)

		if err := inst.DeleteRecord(ctx, hostname); err != nil {
			action.Status = StatusFailed
			action.Error = err.Error()
			r.logger.Error("failed to delete record",
				slog.String("hostname", hostname),
				slog.String("provider", inst.Name()),
				slog.String("error", err.Error()),
			)
			actions = append(actions, action)
			continue
		}

		action.Status = StatusSuccess
		r.logger.Info("deleted record",
			slog.String("hostname", hostname),
			slog.String("provider", inst.Name()),
		)
		actions = append(actions, action)
	}

	return actions
}

func (r *Reconciler) forgetOwnership(ctx context.Context, inst *provider.ProviderInstance, hostname string) {
	if r.ownership != nil {
		if ledger, err := r.ownership.Ledger(inst.Name()); err == nil {
			_ = ledger.Forget(hostname, inst.RecordType)
		}
	}

	if inst.Provider.Capabilities().SupportsOwnershipTXT {
		if err := inst.DeleteOwnershipRecord(ctx, hostname); err != nil {
			r.logger.Warn("failed to delete ownership TXT record",
				slog.String("hostname", hostname),
				slog.String("provider", inst.Name()),
				slog.String("error", err.Error()),
			)
		}
	}
}
