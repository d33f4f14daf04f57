package holdings

import (
	"errors"
	"io/fs"

	"github.com/etnz/holdings/date"
)

// Current synthesizes the position of fund after quarter q: the stored q
// snapshot merged with the cached events transacted until the next snapshot
// is available. A zero q stands for the latest stored quarter.
//
// It returns the filed snapshot it started from along with the synthesized one.
func Current(st *SnapshotStore, cache *EventCache, fund CIK, q date.Quarter) (base, current *Snapshot, warnings []Warning, err error) {
	if q.IsZero() {
		base, err = st.Latest(fund)
	} else {
		base, err = st.Get(fund, q)
	}
	if err != nil {
		return nil, nil, nil, err
	}

	var until date.Date
	next, err := st.Next(fund, base.Quarter())
	switch {
	case err == nil:
		until = Availability(next)
	case !errors.Is(err, fs.ErrNotExist):
		return nil, nil, nil, err
	}

	events, err := cache.ForFund(fund)
	if err != nil {
		return nil, nil, nil, err
	}
	current, warnings, err = Merge(base, events, until)
	if err != nil {
		return nil, nil, warnings, err
	}
	return base, current, warnings, nil
}
