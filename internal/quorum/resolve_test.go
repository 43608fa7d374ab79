package quorum

import (
	"errors"
	"testing"

	"github.com/oversightlabs/oversight/internal/models"
)

func TestResolve(t *testing.T) {
	configs := []models.QuorumConfig{
		{Name: "org-default", RequiredApprovals: 1},
		{Name: "transactions", ActionType: models.ActionTransaction, RequiredApprovals: 2},
		{Name: "large-transactions", ActionType: models.ActionTransaction, MinAmount: 10000, RequiredApprovals: 3},
		{Name: "huge-transactions", ActionType: models.ActionTransaction, MinAmount: 100000, RequireUnanimous: true},
	}

	tests := []struct {
		name       string
		actionType models.ActionType
		amount     float64
		want       string
	}{
		{name: "unrelated action gets default", actionType: models.ActionDataAccess, amount: 0, want: "org-default"},
		{name: "small transaction gets type match", actionType: models.ActionTransaction, amount: 500, want: "transactions"},
		{name: "tier beats type", actionType: models.ActionTransaction, amount: 25000, want: "large-transactions"},
		{name: "tightest tier wins", actionType: models.ActionTransaction, amount: 250000, want: "huge-transactions"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Resolve(configs, tc.actionType, tc.amount)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Name != tc.want {
				t.Errorf("Resolve() = %q, want %q", got.Name, tc.want)
			}
		})
	}
}

func TestResolve_NoMatch(t *testing.T) {
	configs := []models.QuorumConfig{
		{Name: "transactions-only", ActionType: models.ActionTransaction, RequiredApprovals: 1},
	}

	_, err := Resolve(configs, models.ActionCodeExecution, 0)
	if !errors.Is(err, models.ErrNoPolicyMatch) {
		t.Fatalf("Resolve() error = %v, want ErrNoPolicyMatch", err)
	}

	_, err = Resolve(nil, models.ActionTransaction, 100)
	if !errors.Is(err, models.ErrNoPolicyMatch) {
		t.Fatalf("Resolve() with no configs error = %v, want ErrNoPolicyMatch", err)
	}
}
