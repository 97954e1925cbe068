package ingest

import "tender_server/core/domain"

// Deduplicator drops intra-batch duplicates by natural key, scoped per
// portal. First occurrence wins; later duplicates are discarded, not merged.
type Deduplicator struct {
	seen map[string]struct{}
}

// NewDeduplicator creates a deduplicator for one run.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]struct{})}
}

// Admit reports whether the record is the first with its key this run.
// Records with an empty natural key are always admitted; storage decides
// their fate.
func (d *Deduplicator) Admit(record *domain.RawListingRecord) bool {
	key := record.NaturalKey()
	if key == "" {
		return true
	}
	scoped := record.Portal + "\x00" + key
	if _, dup := d.seen[scoped]; dup {
		return false
	}
	d.seen[scoped] = struct{}{}
	return true
}

// Seen returns how many distinct keys have been admitted.
func (d *Deduplicator) Seen() int {
	return len(d.seen)
}
