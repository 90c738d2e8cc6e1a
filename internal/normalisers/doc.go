// Package normalisers holds the Normaliser implementations. The trial
// normaliser turns ClinicalTrials.gov study records into documents.
package normalisers
