package nodes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galinilin/docgemma-connect/internal/events"
	"github.com/galinilin/docgemma-connect/internal/graph"
)

func TestInputAssemblyExtractsEntities(t *testing.T) {
	fn := InputAssembly(Deps{})
	s := &graph.TurnState{UserQuery: "Please check warfarin dosing for patient PAT-1001"}

	p, err := fn(context.Background(), s, events.NewEmitter(nil, "sess-1"))
	require.NoError(t, err)
	require.NotNil(t, p.Entities)
	assert.Contains(t, p.Entities.DrugMentions, "warfarin")
	assert.Contains(t, p.Entities.ActionVerbs, "check")
	assert.Equal(t, []string{"pat-1001"}, p.Entities.PatientIdentifiers)
	assert.False(t, p.Entities.ImagePresent)
}

func TestInputAssemblyDedupesPatientIdentifiersCaseInsensitively(t *testing.T) {
	fn := InputAssembly(Deps{})
	s := &graph.TurnState{UserQuery: "pat-1001 said PAT-1001 again"}

	p, err := fn(context.Background(), s, events.NewEmitter(nil, "sess-1"))
	require.NoError(t, err)
	assert.Len(t, p.Entities.PatientIdentifiers, 1)
}

func TestInputAssemblyDetectsImagePresent(t *testing.T) {
	fn := InputAssembly(Deps{})
	s := &graph.TurnState{UserQuery: "what is this rash", ImageBytes: []byte{0xFF, 0xD8}}

	p, err := fn(context.Background(), s, events.NewEmitter(nil, "sess-1"))
	require.NoError(t, err)
	assert.True(t, p.Entities.ImagePresent)
	assert.Nil(t, p.CarriedImageFindings, "a new image present this turn must not carry forward a stale finding")
}

func TestInputAssemblyCarriesPriorImageFindingsWhenNoNewImage(t *testing.T) {
	fn := InputAssembly(Deps{})
	s := &graph.TurnState{UserQuery: "what dose next", CarriedImageFindings: "mild erythema, no vesicles"}

	p, err := fn(context.Background(), s, events.NewEmitter(nil, "sess-1"))
	require.NoError(t, err)
	require.NotNil(t, p.CarriedImageFindings)
	assert.Equal(t, "mild erythema, no vesicles", *p.CarriedImageFindings)
}

func TestInputAssemblyScansHistoryToo(t *testing.T) {
	fn := InputAssembly(Deps{})
	s := &graph.TurnState{
		UserQuery: "what about the dose",
		History:   []graph.HistoryMessage{{Role: "user", Content: "check metformin for PAT-2002"}},
	}

	p, err := fn(context.Background(), s, events.NewEmitter(nil, "sess-1"))
	require.NoError(t, err)
	assert.Contains(t, p.Entities.DrugMentions, "metformin")
	assert.Contains(t, p.Entities.PatientIdentifiers, "pat-2002")
}
