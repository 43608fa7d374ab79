package quorum

import "github.com/oversightlabs/oversight/internal/models"

// specificity ranks how precisely a config targets a request. Higher wins.
const (
	matchDefault = iota
	matchActionType
	matchActionTier
)

func specificity(c *models.QuorumConfig) int {
	switch {
	case c.ActionType != "" && c.MinAmount > 0:
		return matchActionTier
	case c.ActionType != "":
		return matchActionType
	default:
		return matchDefault
	}
}

func matches(c *models.QuorumConfig, actionType models.ActionType, amount float64) bool {
	if c.ActionType != "" && c.ActionType != actionType {
		return false
	}

	if c.MinAmount > 0 && amount < c.MinAmount {
		return false
	}

	return true
}

// Resolve picks the single quorum config governing a request at admission:
// action type + amount tier beats action type beats organization default.
// Among several matching tiers the highest threshold wins. No match is a
// configuration error; admission must fail rather than default silently.
func Resolve(configs []models.QuorumConfig, actionType models.ActionType, amount float64) (*models.QuorumConfig, error) {
	var best *models.QuorumConfig

	for i := range configs {
		c := &configs[i]
		if !matches(c, actionType, amount) {
			continue
		}

		if best == nil || specificity(c) > specificity(best) {
			best = c
			continue
		}

		// Same specificity: prefer the tighter amount tier.
		if specificity(c) == specificity(best) && c.MinAmount > best.MinAmount {
			best = c
		}
	}

	if best == nil {
		return nil, models.ErrNoPolicyMatch
	}

	return best, nil
}
