package models

import "fmt"

// RecordError describes a survey record that could not be turned into a Feature.
type RecordError struct {
	Record  int    `json:"record"`           // index of the record in its batch
	Offset  int64  `json:"offset,omitempty"` // byte offset of a decode failure
	Context string `json:"context,omitempty"`
	Reason  string `json:"reason"`
}

func (e *RecordError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("record %d: %s (near %q)", e.Record, e.Reason, e.Context)
	}
	return fmt.Sprintf("record %d: %s", e.Record, e.Reason)
}

// ResolutionMiss reports an owner that could not be mapped to an organisation.
type ResolutionMiss struct {
	FeatureID int64  `json:"featureId"`
	Code      string `json:"code"`
	Name      string `json:"name"`
}
