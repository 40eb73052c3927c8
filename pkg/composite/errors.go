package composite

import "errors"

var (
	ErrNoComposites      = errors.New("no composite definitions found")
	errCompositeNoID     = errors.New("composite element has no id")
	errDuplicateID       = errors.New("duplicate composite id")
	errInstanceNoType    = errors.New("instance element has no hostType")
	errScanIncomplete    = errors.New("scan element needs id, oid and var")
	errValNoID           = errors.New("val element has no id")
	errValNoSource       = errors.New("val element needs var or oid")
	errValBothSources    = errors.New("val element has both var and oid")
	errInputNoID         = errors.New("input element has no id")
	errFctnNoName        = errors.New("fctn element has no name")
	errMissingConfigRoot = errors.New("document has no config root")
)
