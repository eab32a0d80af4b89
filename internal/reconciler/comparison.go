package reconciler

import (
	"fmt"

	"gitlab.com/wovendns/woven/pkg/provider"
)

// RecordDiff categorizes the records a provider needs to create, update, or
// delete to match a desired set, plus the ones already correct.
type RecordDiff struct {
	ToCreate  []provider.Record
	ToUpdate  []RecordPair
	ToDelete  []provider.Record
	Unchanged []provider.Record
}

// RecordPair couples an existing record with the desired replacement.
type RecordPair struct {
	Existing provider.Record
	Desired  provider.Record
}

// HasChanges reports whether the diff contains any create, update, or delete.
func (d RecordDiff) HasChanges() bool {
	return len(d.ToCreate) > 0 || len(d.ToUpdate) > 0 || len(d.ToDelete) > 0
}

// TotalChanges returns the number of records affected by the diff.
func (d RecordDiff) TotalChanges() int {
	return len(d.ToCreate) + len(d.ToUpdate) + len(d.ToDelete)
}

// recordKey returns a stable identity key for a record, ignoring TTL and
// ProviderID. SRV records additionally key on priority/weight/port since
// multiple SRV records can share a hostname and target.
func recordKey(r provider.Record) string {
	key := r.Hostname + "|" + string(r.Type) + "|" + r.Target
	if r.Type == provider.RecordTypeSRV && r.SRV != nil {
		key += "|" + formatSRVSuffix(r.SRV)
	}
	return key
}

func formatSRVSuffix(srv *provider.SRVData) string {
	return fmt.Sprintf("%d:%d:%d", srv.Priority, srv.Weight, srv.Port)
}

// recordNeedsUpdate reports whether an existing record's mutable fields
// (TTL, SRV data, CAA data, proxied flag) differ from the desired record,
// given that their key (hostname/type/target) already matches.
func recordNeedsUpdate(existing, desired provider.Record) bool {
	return !provider.RecordEquals(existing, desired)
}

// CompareRecordSets diffs a provider's existing records against the full
// desired set, both already scoped to hostnames the provider matches.
func CompareRecordSets(existing, desired []provider.Record) RecordDiff {
	existingByKey := make(map[string]provider.Record, len(existing))
	for _, r := range existing {
		existingByKey[recordKey(r)] = r
	}

	var diff RecordDiff
	seen := make(map[string]struct{}, len(desired))

	for _, want := range desired {
		key := recordKey(want)
		seen[key] = struct{}{}

		have, ok := existingByKey[key]
		if !ok {
			diff.ToCreate = append(diff.ToCreate, want)
			continue
		}
		if recordNeedsUpdate(have, want) {
			diff.ToUpdate = append(diff.ToUpdate, RecordPair{Existing: have, Desired: want})
		} else {
			diff.Unchanged = append(diff.Unchanged, have)
		}
	}

	for key, have := range existingByKey {
		if _, wanted := seen[key]; !wanted {
			diff.ToDelete = append(diff.ToDelete, have)
		}
	}

	return diff
}

// FindExactMatch returns the record in existing that exactly matches
// desired's hostname, type, and target, if any.
func FindExactMatch(existing []provider.Record, desired provider.Record) (provider.Record, bool) {
	for _, r := range existing {
		if r.Hostname == desired.Hostname && r.Type == desired.Type && r.Target == desired.Target {
			return r, true
		}
	}
	return provider.Record{}, false
}

// FindStaleSRVRecords returns SRV records in existing whose target matches
// one of the wanted targets but whose priority/weight/port do not match any
// desired SRV record - i.e. records left behind by a changed weight/priority.
func FindStaleSRVRecords(existing []provider.Record, desired []provider.Record) []provider.Record {
	desiredKeys := make(map[string]struct{}, len(desired))
	for _, d := range desired {
		if d.Type == provider.RecordTypeSRV {
			desiredKeys[recordKey(d)] = struct{}{}
		}
	}

	var stale []provider.Record
	for _, e := range existing {
		if e.Type != provider.RecordTypeSRV {
			continue
		}
		if _, ok := desiredKeys[recordKey(e)]; !ok {
			stale = append(stale, e)
		}
	}
	return stale
}
