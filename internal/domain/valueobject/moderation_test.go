package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/apperror"
)

func TestNewFlagSeverity(t *testing.T) {
	for _, raw := range []string{"info", "warning", "concern", "urgent", " URGENT "} {
		s, err := NewFlagSeverity(raw)
		require.NoError(t, err, raw)
		assert.True(t, s.IsValid())
	}

	_, err := NewFlagSeverity("serious")
	assert.True(t, apperror.IsValidation(err))

	_, err = NewFlagSeverity("")
	assert.True(t, apperror.IsValidation(err))
}

func TestNewCopyStatusFilter(t *testing.T) {
	s, err := NewCopyStatusFilter("")
	require.NoError(t, err)
	assert.Equal(t, CopyFilterUnreviewed, s)

	s, err = NewCopyStatusFilter("flagged")
	require.NoError(t, err)
	assert.Equal(t, CopyFilterFlagged, s)

	_, err = NewCopyStatusFilter("archived")
	assert.True(t, apperror.IsValidation(err))
}

func TestNewArchiveDecisionFilter(t *testing.T) {
	d, err := NewArchiveDecisionFilter("")
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = NewArchiveDecisionFilter("flagged")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, ArchiveDecisionFlagged, *d)

	_, err = NewArchiveDecisionFilter("rejected")
	assert.Error(t, err)
}

func TestNewCopyReason(t *testing.T) {
	r, err := NewCopyReason("random_sample")
	require.NoError(t, err)
	assert.Equal(t, CopyReasonRandomSample, r)

	_, err = NewCopyReason("because")
	assert.Error(t, err)
}
