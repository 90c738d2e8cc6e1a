package trial

import "github.com/custodia-labs/trialdex/internal/core/domain"

// IdentifierField is the catalog field holding the NCT ID.
const IdentifierField = "National Clinical Identification NCT ID"

// VisibleFields is the default allow-list for both the LLM and the
// embedding channels.
var VisibleFields = []string{
	IdentifierField,
	"Brief title",
	"Condition",
	"Conditions keywords",
	"Lead sponsor",
	"Arms group 0 intervention names",
	"p-value",
	"Statistical Method",
}

// Path prefixes of the ClinicalTrials.gov v2 study document.
const (
	identification = "protocolSection.identificationModule."
	status         = "protocolSection.statusModule."
	sponsors       = "protocolSection.sponsorCollaboratorsModule."
	description    = "protocolSection.descriptionModule."
	conditions     = "protocolSection.conditionsModule."
	design         = "protocolSection.designModule."
	arms           = "protocolSection.armsInterventionsModule."
	outcomes       = "protocolSection.outcomesModule."
	eligibility    = "protocolSection.eligibilityModule."
	flow           = "resultsSection.participantFlowModule."
	analysis       = "resultsSection.outcomeMeasuresModule.outcomeMeasures.0.analyses.0."
	moreInfo       = "resultsSection.moreInfoModule."
)

// defaultFields lists name/dotted-path pairs in output order.
var defaultFields = [][2]string{
	{IdentifierField, identification + "nctId"},
	{"Organization study identification", identification + "orgStudyIdInfo.id"},
	{"EudraCT number", identification + "secondaryIdInfos.0.id"},
	{"Organization", identification + "organization.fullName"},
	{"Organization class", identification + "organization.class"},
	{"Brief title", identification + "briefTitle"},
	{"Official title", identification + "officialTitle"},

	{"Overall status", status + "overallStatus"},
	{"Start date", status + "startDateStruct.date"},
	{"Primary completion date", status + "primaryCompletionDateStruct.date"},
	{"Completion date", status + "completionDateStruct.date"},
	{"Verification date", status + "statusVerifiedDate"},
	{"Study first submitted date", status + "studyFirstSubmitDate"},
	{"Results first submitted date", status + "resultsFirstSubmitDate"},
	{"Last update submitted date", status + "lastUpdateSubmitDate"},
	{"Last update posted date", status + "lastUpdatePostDateStruct.date"},

	{"Lead sponsor", sponsors + "leadSponsor.name"},
	{"Lead sponsor class", sponsors + "leadSponsor.class"},

	{"Brief summary", description + "briefSummary"},
	{"Detailed description", description + "detailedDescription"},

	{"Condition", conditions + "conditions"},
	{"Conditions keywords", conditions + "keywords"},

	{"Study type", design + "studyType"},
	{"Phases", design + "phases"},
	{"Allocation", design + "designInfo.allocation"},
	{"Intervention model", design + "designInfo.interventionModel"},
	{"Primary purpose", design + "designInfo.primaryPurpose"},
	{"Masking", design + "designInfo.maskingInfo.masking"},
	{"Who is masked", design + "designInfo.maskingInfo.whoMasked"},
	{"Enrollment count", design + "enrollmentInfo.count"},
	{"Enrollment type", design + "enrollmentInfo.type"},

	{"Arms group 0 label", arms + "armGroups.0.label"},
	{"Arms group 0 type", arms + "armGroups.0.type"},
	{"Arms group 0 description", arms + "armGroups.0.description"},
	{"Arms group 0 intervention names", arms + "armGroups.0.interventionNames"},
	{"Arms group 1 label", arms + "armGroups.1.label"},
	{"Arms group 1 type", arms + "armGroups.1.type"},
	{"Arms group 1 description", arms + "armGroups.1.description"},
	{"Arms group 1 intervention names", arms + "armGroups.1.interventionNames"},
	{"Arms group 0 intervention type", arms + "interventions.0.type"},
	{"Arms group 0 intervention name", arms + "interventions.0.name"},
	{"Arms group 0 intervention description", arms + "interventions.0.description"},
	{"Arms group 0 intervention labels", arms + "interventions.0.armGroupLabels"},
	{"Arms group 1 intervention type", arms + "interventions.1.type"},
	{"Arms group 1 intervention name", arms + "interventions.1.name"},
	{"Arms group 1 intervention description", arms + "interventions.1.description"},
	{"Arms group 1 intervention labels", arms + "interventions.1.armGroupLabels"},

	{"Primary outcome", outcomes + "primaryOutcomes.0.measure"},
	{"Primary outcome description", outcomes + "primaryOutcomes.0.description"},
	{"Primary outcome time frame", outcomes + "primaryOutcomes.0.timeFrame"},

	{"Eligibility criteria", eligibility + "eligibilityCriteria"},
	{"Eligibility of healthy volunteer", eligibility + "healthyVolunteers"},
	{"Eligibility sex", eligibility + "sex"},
	{"Eligibility minimum age", eligibility + "minimumAge"},
	{"Eligibility standard age", eligibility + "stdAges"},

	{"Pre-assignment details", flow + "preAssignmentDetails"},
	{"Recruitment details", flow + "recruitmentDetails"},
	{"Recruitment group 0 id", flow + "groups.0.id"},
	{"Recruitment group 0 title", flow + "groups.0.title"},
	{"Recruitment group 0 description", flow + "groups.0.description"},
	{"Recruitment group 1 id", flow + "groups.1.id"},
	{"Recruitment group 1 title", flow + "groups.1.title"},
	{"Recruitment group 1 description", flow + "groups.1.description"},

	{"Group IDs", "resultsSection.outcomeMeasuresModule.outcomeMeasures.0.analyses"},
	{"p-value", analysis + "pValue"},
	{"Statistical Method", analysis + "statisticalMethod"},
	{"Primary outcome group identifications", analysis + "groupIds"},
	{"Primary outcome group description", analysis + "groupDescription"},
	{"Primary outcome group statistical method parameter type", analysis + "paramType"},
	{"Primary outcome group statistical method parameter value", analysis + "paramValue"},
	{"Primary outcome group confidence interval percentage value", analysis + "ciPctValue"},
	{"Primary outcome group confidence interval lower limit", analysis + "ciLowerLimit"},
	{"Primary outcome group confidence interval upper limit", analysis + "ciUpperLimit"},
	{"Primary outcome group estimate comment", analysis + "estimateComment"},

	{"Limitations and caveats", moreInfo + "limitationsAndCaveats.description"},

	{"Has results", "hasResults"},
}

// DefaultCatalog returns the built-in ClinicalTrials.gov field catalog.
// Every field defaults to the empty string.
func DefaultCatalog() domain.FieldCatalog {
	fields := make([]domain.FieldSpec, len(defaultFields))
	for i, f := range defaultFields {
		fields[i] = domain.FieldSpec{Name: f[0], Path: domain.MustParsePath(f[1])}
	}

	return domain.FieldCatalog{
		Fields:           fields,
		Identifier:       IdentifierField,
		LLMVisible:       append([]string(nil), VisibleFields...),
		EmbeddingVisible: append([]string(nil), VisibleFields...),
	}
}

// SecondaryOutcomes returns a repeat group emitting measure, description and
// time frame for every secondary outcome of a study. It is not part of the
// default catalog; enable it with catalog.secondary_outcomes in the config.
func SecondaryOutcomes() domain.RepeatSpec {
	return domain.RepeatSpec{
		Array: domain.MustParsePath(outcomes + "secondaryOutcomes"),
		Fields: []domain.RepeatField{
			{Name: "Secondary outcome {i} measure", Path: domain.MustParsePath("measure")},
			{Name: "Secondary outcome {i} description", Path: domain.MustParsePath("description")},
			{Name: "Secondary outcome {i} time frame", Path: domain.MustParsePath("timeFrame")},
		},
	}
}
