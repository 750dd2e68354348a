package gitbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityForDeletedWithMultipleCandidatesIsCritical(t *testing.T) {
	assert.Equal(t, SeverityCritical, severityFor("deleted", 2, 0))
}

func TestSeverityForDeletedSingleCandidateIsHigh(t *testing.T) {
	assert.Equal(t, SeverityHigh, severityFor("deleted", 1, 0))
}

func TestSeverityForMagnitudeThresholds(t *testing.T) {
	assert.Equal(t, SeverityHigh, severityFor("modified", 1, 150))
	assert.Equal(t, SeverityMedium, severityFor("modified", 1, 50))
	assert.Equal(t, SeverityLow, severityFor("modified", 1, 5))
}

func TestStrategyForDeletedWithMultipleCandidatesIsManual(t *testing.T) {
	assert.Equal(t, StrategyManual, strategyFor("deleted", "direct", 2))
}

func TestStrategyForNoSourceRequiresUserApproval(t *testing.T) {
	assert.Equal(t, StrategyUserApproval, strategyFor("modified", "none", 0))
}

func TestStrategyForAmbiguousCandidatesRequiresUserApproval(t *testing.T) {
	assert.Equal(t, StrategyUserApproval, strategyFor("modified", "directory", 2))
}

func TestStrategyForSingleDirectCandidateIsAuto(t *testing.T) {
	assert.Equal(t, StrategyAuto, strategyFor("modified", "direct", 1))
}

func TestDedupeRemovesBlankAndDuplicateEntries(t *testing.T) {
	out := dedupe([]string{"core", "", "core", "billing", "billing"})
	assert.Equal(t, []string{"core", "billing"}, out)
}
