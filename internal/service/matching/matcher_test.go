package matching

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/entity"
)

var (
	contactA = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	contactB = uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	contactC = uuid.MustParse("00000000-0000-0000-0000-00000000000c")
)

func directory() *Snapshot {
	return NewSnapshot([]entity.MatchCandidate{
		{ID: contactB, Email: "Jane.Doe@Acme.com", FullName: "Jane Doe"},
		{ID: contactA, Email: "john.smith@acme.com", FullName: "John Smith"},
		{ID: contactC, Email: "ops@other.io", FullName: "Ops Team"},
	})
}

func TestMatcher_ExactMatchIgnoresCaseAndName(t *testing.T) {
	m := NewMatcher(DefaultConfig())

	res, err := m.Match("  JANE.DOE@acme.COM ", "Completely Different", directory())
	require.NoError(t, err)
	require.True(t, res.Matched())
	assert.Equal(t, KindExact, res.Kind)
	assert.Equal(t, contactB, *res.ContactID)
	assert.Equal(t, 1.0, *res.Confidence)
}

func TestMatcher_FuzzyMatchOnSameDomain(t *testing.T) {
	m := NewMatcher(DefaultConfig())

	res, err := m.Match("jsmith@acme.com", "Smith John", directory())
	require.NoError(t, err)
	require.True(t, res.Matched())
	assert.Equal(t, KindFuzzy, res.Kind)
	assert.Equal(t, contactA, *res.ContactID)
	assert.InDelta(t, 0.8, *res.Confidence, 1e-9)
}

func TestMatcher_ThresholdIsStrict(t *testing.T) {
	m := NewMatcher(DefaultConfig(), WithScorer(func(a, b string) float64 { return 0.7 }))

	res, err := m.Match("someone@acme.com", "Someone", directory())
	require.NoError(t, err)
	assert.False(t, res.Matched())
	assert.Nil(t, res.Confidence)
	assert.Equal(t, KindNone, res.Kind)
}

func TestMatcher_NoDomainOrEmailMatch(t *testing.T) {
	m := NewMatcher(DefaultConfig())

	res, err := m.Match("john.smith@elsewhere.org", "John Smith", directory())
	require.NoError(t, err)
	assert.False(t, res.Matched())
	assert.Nil(t, res.ContactID)
	assert.Nil(t, res.Confidence)
}

func TestMatcher_MalformedEmail(t *testing.T) {
	m := NewMatcher(DefaultConfig())

	res, err := m.Match("not-an-email", "John Smith", directory())
	require.ErrorIs(t, err, ErrNoDomain)
	assert.False(t, res.Matched())
}

func TestMatcher_TiesResolveByContactID(t *testing.T) {
	snap := NewSnapshot([]entity.MatchCandidate{
		{ID: contactC, Email: "a@acme.com", FullName: "Sam Lee"},
		{ID: contactA, Email: "b@acme.com", FullName: "Sam Lee"},
		{ID: contactB, Email: "c@acme.com", FullName: "Sam Lee"},
	})
	m := NewMatcher(DefaultConfig())

	for i := 0; i < 5; i++ {
		res, err := m.Match("sam@acme.com", "Sam Lee", snap)
		require.NoError(t, err)
		require.True(t, res.Matched())
		assert.Equal(t, contactA, *res.ContactID)
	}
}

func TestMatcher_FuzzyConfidenceCeiling(t *testing.T) {
	names := []string{"John Smith", "Smith John", "John", "John Smith Smith", "JOHN smith"}
	weights := []float64{0.5, 0.8, 0.99, 1.0, 1.5}

	for _, w := range weights {
		m := NewMatcher(Config{FuzzyThreshold: 0.1, FuzzyWeight: w}, WithScorer(func(a, b string) float64 {
			return Similarity(a, b) * 2
		}))
		for _, name := range names {
			res, err := m.Match("other@acme.com", name, directory())
			require.NoError(t, err)
			if res.Kind == KindFuzzy {
				assert.LessOrEqual(t, *res.Confidence, 0.99)
				assert.NotEqual(t, 1.0, *res.Confidence)
			}
		}
	}
}

func TestMatcher_ConfigurableTunables(t *testing.T) {
	m := NewMatcher(Config{FuzzyThreshold: 0.5, FuzzyWeight: 0.6})

	res, err := m.Match("jsmith@acme.com", "John A Smith", directory())
	require.NoError(t, err)
	require.True(t, res.Matched())
	assert.InDelta(t, (2.0/3.0)*0.6, *res.Confidence, 1e-9)
}

func TestMatcher_NilSnapshot(t *testing.T) {
	res, err := NewMatcher(DefaultConfig()).Match("a@b.com", "A", nil)
	require.NoError(t, err)
	assert.False(t, res.Matched())
}

func TestExtractDomain(t *testing.T) {
	d, ok := ExtractDomain("a@b@example.com")
	assert.True(t, ok)
	assert.Equal(t, "example.com", d)

	_, ok = ExtractDomain("trailing@")
	assert.False(t, ok)
}
