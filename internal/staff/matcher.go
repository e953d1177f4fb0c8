package staff

import (
	"sort"
	"time"

	"github.com/capitalize-ai/conversation-router/internal/model"
)

const maxAlternatives = 2

// FindBestMatch selects the best available staff member for a handoff.
//
// Candidates are staff who are online and under capacity. A requested
// language or expertise narrows the candidate set only when someone
// actually matches; an unmatched expertise degrades gracefully to the
// broader set. An unmatched language is treated as a failed match (the
// user could not talk to any of them) but the broader candidates are still
// reported as alternatives.
func (d *Directory) FindBestMatch(req model.MatchRequest) model.MatchResult {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var candidates []model.StaffMember
	for _, m := range d.roster {
		if d.available(m) {
			candidates = append(candidates, *m)
		}
	}

	if len(candidates) == 0 {
		next := time.Now().Add(d.estimatedWait)
		return model.MatchResult{
			EstimatedNextAvailable: &next,
			WaitTimeSeconds:        int(d.estimatedWait.Seconds()),
		}
	}

	languageMatched := req.Language == ""
	if req.Language != "" {
		if narrowed := filterBy(candidates, req.Language, speaksLanguage); len(narrowed) > 0 {
			candidates = narrowed
			languageMatched = true
		}
	}

	if req.Expertise != "" {
		if narrowed := filterBy(candidates, req.Expertise, hasExpertise); len(narrowed) > 0 {
			candidates = narrowed
		}
	}

	sortCandidates(candidates, req)

	if !languageMatched {
		// Nobody speaks the requested language; surface the sorted
		// candidates as alternatives without declaring a match.
		n := len(candidates)
		if n > maxAlternatives+1 {
			n = maxAlternatives + 1
		}
		return model.MatchResult{Alternatives: candidates[:n]}
	}

	result := model.MatchResult{Match: &candidates[0]}
	rest := candidates[1:]
	if len(rest) > maxAlternatives {
		rest = rest[:maxAlternatives]
	}
	if len(rest) > 0 {
		result.Alternatives = rest
	}
	return result
}

func filterBy(members []model.StaffMember, want string, pred func(model.StaffMember, string) bool) []model.StaffMember {
	var out []model.StaffMember
	for _, m := range members {
		if pred(m, want) {
			out = append(out, m)
		}
	}
	return out
}

func speaksLanguage(m model.StaffMember, lang string) bool {
	return hasString(m.Languages, lang)
}

func hasExpertise(m model.StaffMember, exp string) bool {
	return hasString(m.Expertise, exp)
}

func sortCandidates(candidates []model.StaffMember, req model.MatchRequest) {
	switch req.Priority {
	case model.PriorityExpertise:
		sort.SliceStable(candidates, func(i, j int) bool {
			mi := req.Expertise != "" && hasExpertise(candidates[i], req.Expertise)
			mj := req.Expertise != "" && hasExpertise(candidates[j], req.Expertise)
			if mi != mj {
				return mi
			}
			return len(candidates[i].CurrentSessions) < len(candidates[j].CurrentSessions)
		})
	case model.PriorityLanguage:
		sort.SliceStable(candidates, func(i, j int) bool {
			mi := req.Language != "" && speaksLanguage(candidates[i], req.Language)
			mj := req.Language != "" && speaksLanguage(candidates[j], req.Language)
			if mi != mj {
				return mi
			}
			return len(candidates[i].CurrentSessions) < len(candidates[j].CurrentSessions)
		})
	default: // speed
		sort.SliceStable(candidates, func(i, j int) bool {
			li, lj := len(candidates[i].CurrentSessions), len(candidates[j].CurrentSessions)
			if li != lj {
				return li < lj
			}
			return candidates[i].LastActivity.After(candidates[j].LastActivity)
		})
	}
}
