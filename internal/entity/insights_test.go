package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAIInsights_PreservesUnknownFields(t *testing.T) {
	in := []byte(`{"enrichment_source":"linkedin","confidence_score":0.92,"skills":["go"],"mutual_connections":[{"name":"Ana"}],"company_funding":"Series B"}`)

	var insights AIInsights
	require.NoError(t, json.Unmarshal(in, &insights))

	assert.Equal(t, AIInsightsVersion, insights.Version)
	assert.Equal(t, "linkedin", insights.Source)
	assert.InDelta(t, 0.92, insights.ConfidenceScore, 1e-9)
	require.Contains(t, insights.Extra, "mutual_connections")
	require.Contains(t, insights.Extra, "company_funding")

	out, err := json.Marshal(insights)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &fields))
	assert.JSONEq(t, `[{"name":"Ana"}]`, string(fields["mutual_connections"]))
	assert.JSONEq(t, `"Series B"`, string(fields["company_funding"]))
	assert.JSONEq(t, `1`, string(fields["version"]))
}

func TestAIInsights_ExtraCannotShadowKnownFields(t *testing.T) {
	insights := AIInsights{
		Version: AIInsightsVersion,
		Source:  SourceApollo,
		Extra:   map[string]Raw{"enrichment_source": Raw(`"spoofed"`)},
	}

	out, err := json.Marshal(insights)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &fields))
	assert.JSONEq(t, `"apollo"`, string(fields["enrichment_source"]))
}

func TestParticipantStatus(t *testing.T) {
	assert.True(t, ParticipantMatched.Linked())
	assert.True(t, ParticipantEnriched.Linked())
	assert.False(t, ParticipantPending.Linked())
	assert.False(t, ParticipantStatus("bogus").Valid())
}
