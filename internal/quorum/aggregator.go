// Package quorum evaluates recorded approval decisions against a quorum
// policy. Evaluation is a pure function of its inputs: given the same
// decision set and policy it always returns the same verdict.
package quorum

import "github.com/oversightlabs/oversight/internal/models"

// Verdict is the aggregate outcome of the decisions recorded so far.
type Verdict string

// Verdicts. Pending means the quorum is neither satisfied nor unreachable.
const (
	VerdictPending  Verdict = "pending"
	VerdictApproved Verdict = "approved"
	VerdictRejected Verdict = "rejected"
)

// Evaluate computes the verdict for a request given its bound policy, its
// required reviewer bindings, and every decision recorded so far.
//
// Abstain and request_info decisions count toward "reviewer has decided"
// but contribute no weight to either side. Escalate decisions are treated
// the same way: they broaden review, they do not vote.
func Evaluate(policy models.QuorumConfig, reviewers []models.RequiredReviewer, decisions []models.ApprovalDecision) Verdict {
	tally := tallyDecisions(decisions)

	if policy.AnyRejectionRejects && tally.rejects > 0 {
		return VerdictRejected
	}

	if policy.RequireUnanimous {
		return evaluateUnanimous(tally, len(reviewers))
	}

	if policy.RequiredWeight > 0 {
		return evaluateWeighted(policy, tally)
	}

	return evaluateCounted(policy, tally, reviewers)
}

// tally summarizes a decision set.
type tally struct {
	decided       int
	approves      int
	rejects       int
	approveWeight int
}

func tallyDecisions(decisions []models.ApprovalDecision) tally {
	var t tally

	for i := range decisions {
		d := &decisions[i]
		t.decided++

		switch d.Decision {
		case models.DecisionApprove:
			t.approves++
			t.approveWeight += d.Weight
		case models.DecisionReject:
			t.rejects++
		}
	}

	return t
}

// evaluateUnanimous resolves only once every required reviewer has decided:
// all approvals yields approved, any rejection yields rejected. A complete
// set containing abstentions but no rejections stays pending and is left to
// the timeout path.
func evaluateUnanimous(t tally, required int) Verdict {
	if t.decided < required {
		return VerdictPending
	}

	if t.rejects > 0 {
		return VerdictRejected
	}

	if t.approves == t.decided && t.decided > 0 {
		return VerdictApproved
	}

	return VerdictPending
}

// evaluateCounted applies the required-approvals threshold. Rejection is
// derived from reject decisions alone: the verdict flips to rejected only
// when the rejecting reviewers leave too few seats for the threshold ever
// to be met. Abstentions never count against reachability, and a role
// binding admits any number of role holders, so a merely under-subscribed
// request stays pending and falls to the timeout path.
func evaluateCounted(policy models.QuorumConfig, t tally, reviewers []models.RequiredReviewer) Verdict {
	if t.approves >= policy.RequiredApprovals {
		return VerdictApproved
	}

	if seats, bounded := seatCount(reviewers); bounded && seats-t.rejects < policy.RequiredApprovals {
		return VerdictRejected
	}

	return VerdictPending
}

// seatCount reports how many distinct reviewers can ever decide. A role
// binding is open ended (any holder of the role may decide), so the count
// is only meaningful when every binding names an individual.
func seatCount(reviewers []models.RequiredReviewer) (int, bool) {
	for i := range reviewers {
		if reviewers[i].Role != "" {
			return 0, false
		}
	}

	return len(reviewers), true
}

// evaluateWeighted applies the required-weight threshold. Reviewers choose
// the weight of their own decisions, so the weight a future approval could
// carry has no upper bound and reject decisions alone can never prove the
// threshold unreachable. Short of approval the verdict stays pending and
// the request falls to the timeout path, unless the any_rejection_rejects
// short-circuit already resolved it.
func evaluateWeighted(policy models.QuorumConfig, t tally) Verdict {
	if t.approveWeight >= policy.RequiredWeight {
		return VerdictApproved
	}

	return VerdictPending
}
