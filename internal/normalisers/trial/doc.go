// Package trial normalises ClinicalTrials.gov study records.
//
// A record goes through four steps. Extract pulls a fixed set of named
// fields out of the nested study document according to a FieldCatalog.
// Flatten and Format turn the whole document into line-per-leaf text.
// Partition decides, once per batch, which metadata keys each consumer
// may see. Assemble combines the three into a domain.Document.
package trial
