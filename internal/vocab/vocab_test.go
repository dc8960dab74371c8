package vocab

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReferences(t *testing.T) {
	assert.Equal(t, "https://apps.mow.vlaanderen.be/verkeersborden/rest/zi/verkeersborden/1000007", InstallationIRI(1000007))
	assert.Equal(t, InstallationIRI(42), InstallationIRIFromString("42"))
	assert.Equal(t, "https://data.awvvlaanderen.be/id/asset/42_bord_7", SignIRI(42, 7))
	assert.Equal(t, "https://data.awvvlaanderen.be/id/asset/42_bord_7_teken", RealizationIRI(42, 7))
	assert.Equal(t, "https://data.awvvlaanderen.be/id/asset/42_bord_7_concept", ConceptIRI(42, 7))
	assert.Equal(t, WR+"123456", SegmentIRI("123456"))
	assert.Equal(t, OrgVL+"OVO000001", OrganisationIRI("OVO000001"))
}

func TestInstallationClosurePredicates(t *testing.T) {
	assert.ElementsMatch(t, []string{ContainsSign, Realizes, HasConcept, BelongsTo}, InstallationClosurePredicates)
}
