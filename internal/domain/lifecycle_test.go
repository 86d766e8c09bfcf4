package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fiscaldoc/internal/domain"
)

func TestCanTransition(t *testing.T) {
	allowed := map[domain.DocumentState][]domain.DocumentState{
		domain.StateDraft:     {domain.StateEmitted},
		domain.StateEmitted:   {domain.StateSubmitted, domain.StateVoided},
		domain.StateSubmitted: {domain.StateAccepted, domain.StateRejected, domain.StateObserved, domain.StateVoided},
		domain.StateAccepted:  {domain.StateVoided},
		domain.StateObserved:  {domain.StateVoided},
	}

	for from := range domain.ValidDocumentStates {
		for to := range domain.ValidDocumentStates {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			assert.Equal(t, want, domain.CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTransition_FailureLeavesStateUntouched(t *testing.T) {
	doc := &domain.FiscalDocument{State: domain.StateRejected}

	err := doc.Transition(domain.StateSubmitted)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, domain.StateRejected, doc.State)

	var stateErr *domain.StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, domain.StateRejected, stateErr.From)
	assert.Equal(t, domain.StateSubmitted, stateErr.To)
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, domain.IsTerminal(domain.StateRejected))
	assert.True(t, domain.IsTerminal(domain.StateVoided))
	assert.False(t, domain.IsTerminal(domain.StateAccepted))
	assert.False(t, domain.IsTerminal(domain.StateDraft))
}

func TestCorrectableAndPayable(t *testing.T) {
	for _, s := range []domain.DocumentState{domain.StateEmitted, domain.StateSubmitted, domain.StateAccepted, domain.StateObserved} {
		assert.True(t, domain.Correctable(s), s)
		assert.True(t, domain.PaymentsAccepted(s), s)
	}
	for _, s := range []domain.DocumentState{domain.StateDraft, domain.StateRejected, domain.StateVoided} {
		assert.False(t, domain.Correctable(s), s)
		assert.False(t, domain.PaymentsAccepted(s), s)
	}
}

func TestAuthorityOutcomeState(t *testing.T) {
	s, ok := domain.OutcomeObserved.State()
	assert.True(t, ok)
	assert.Equal(t, domain.StateObserved, s)

	_, ok = domain.AuthorityOutcome("pending").State()
	assert.False(t, ok)
}

func TestClone_DoesNotShareMutableState(t *testing.T) {
	n := int64(7)
	doc := &domain.FiscalDocument{
		Number:    &n,
		Lines:     []domain.LineItem{{Description: "a"}},
		Authority: &domain.AuthorityResponse{Observations: []string{"x"}},
	}
	c := doc.Clone()
	*c.Number = 8
	c.Lines[0].Description = "b"
	c.Authority.Observations[0] = "y"

	assert.Equal(t, int64(7), *doc.Number)
	assert.Equal(t, "a", doc.Lines[0].Description)
	assert.Equal(t, "x", doc.Authority.Observations[0])
}
