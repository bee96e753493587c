package domain

// AreaFilter decides whether an outage center is inside the area of interest.
type AreaFilter interface {
	Contains(lon, lat float64) bool
}

// FilterSnapshot keeps only records whose center passes the filter. A nil
// filter keeps everything. It returns the filtered snapshot and the number of
// records dropped.
func FilterSnapshot(s Snapshot, filter AreaFilter) (Snapshot, int) {
	if filter == nil {
		return s, 0
	}
	kept := make([]OutageRecord, 0, len(s.Records))
	for _, rec := range s.Records {
		if filter.Contains(rec.CenterLon, rec.CenterLat) {
			kept = append(kept, rec)
		}
	}
	dropped := len(s.Records) - len(kept)
	s.Records = kept
	return s, dropped
}
