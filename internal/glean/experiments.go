package glean

import (
	"slices"

	"github.com/and161185/glean-metrics/internal/errs"
	"github.com/and161185/glean-metrics/internal/utils"
)

const (
	maxExperimentValueLength = 100
	maxExperimentExtraKeys   = 20
)

// RecordedExperiment is the annotation attached to pings while an
// experiment is active.
type RecordedExperiment struct {
	Branch string            `json:"branch"`
	Extra  map[string]string `json:"extra,omitempty"`
}

// SetExperimentActive marks an experiment as running. Identifiers, branch
// names, extra keys and extra values longer than 100 bytes are truncated.
// Extra keys are taken in sorted order until 20 are kept; a key that
// collides with an earlier one after truncation is dropped. Ignored while
// upload is disabled.
func (s *State) SetExperimentActive(id, branch string, extra map[string]string) {
	s.toggleMu.RLock()
	defer s.toggleMu.RUnlock()

	if !s.IsUploadEnabled() {
		return
	}

	id = s.truncated("experiment id", id)
	rec := RecordedExperiment{Branch: s.truncated("experiment branch", branch)}

	if len(extra) > 0 {
		keys := make([]string, 0, len(extra))
		for k := range extra {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		rec.Extra = make(map[string]string, min(len(extra), maxExperimentExtraKeys))
		for _, k := range keys {
			if len(rec.Extra) == maxExperimentExtraKeys {
				s.logger.Warnw("experiment extras truncated", "experiment", id, "limit", maxExperimentExtraKeys)
				break
			}
			key := s.truncated("experiment extra key", k)
			if _, dup := rec.Extra[key]; dup {
				s.logger.Warnw("experiment extra key dropped, duplicate after truncation", "experiment", id, "key", key)
				continue
			}
			rec.Extra[key] = s.truncated("experiment extra value", extra[k])
		}
	}

	s.mu.Lock()
	s.experiments[id] = rec
	s.mu.Unlock()
}

// SetExperimentInactive removes the annotation for id.
func (s *State) SetExperimentInactive(id string) {
	id = utils.TruncateUTF8(id, maxExperimentValueLength)

	s.mu.Lock()
	delete(s.experiments, id)
	s.mu.Unlock()
}

// Experiments returns a copy of all active experiments.
func (s *State) Experiments() map[string]RecordedExperiment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]RecordedExperiment, len(s.experiments))
	for id, rec := range s.experiments {
		out[id] = rec.clone()
	}
	return out
}

func (s *State) TestIsExperimentActive(id string) bool {
	_, err := s.TestGetExperimentData(id)
	return err == nil
}

func (s *State) TestGetExperimentData(id string) (RecordedExperiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.experiments[utils.TruncateUTF8(id, maxExperimentValueLength)]
	if !ok {
		return RecordedExperiment{}, errs.ErrNoExperiment
	}
	return rec.clone(), nil
}

func (s *State) truncated(what, v string) string {
	t := utils.TruncateUTF8(v, maxExperimentValueLength)
	if len(t) != len(v) {
		s.logger.Warnw("value truncated", "field", what, "limit", maxExperimentValueLength)
	}
	return t
}

func (r RecordedExperiment) clone() RecordedExperiment {
	if r.Extra == nil {
		return r
	}
	extra := make(map[string]string, len(r.Extra))
	for k, v := range r.Extra {
		extra[k] = v
	}
	r.Extra = extra
	return r
}
