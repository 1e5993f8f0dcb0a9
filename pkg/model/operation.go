// pkg/model/operation.go
package model

// MaskOperation is what the masker did with one column value
type MaskOperation string

const (
	OpReplaced      MaskOperation = "replaced"       // Value produced by a data provider
	OpConstant      MaskOperation = "constant"       // Value taken from UseValue
	OpRetainedNull  MaskOperation = "retained_null"  // NULL kept by RetainNullValues
	OpRetainedEmpty MaskOperation = "retained_empty" // Empty string kept by RetainEmptyStringValues
	OpIgnored       MaskOperation = "ignored"        // Column configured with Ignore
)

// MaskOperations lists every operation in report order
var MaskOperations = []MaskOperation{OpReplaced, OpConstant, OpRetainedNull, OpRetainedEmpty, OpIgnored}
