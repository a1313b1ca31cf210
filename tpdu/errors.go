package tpdu

import "fmt"

// PduError reports a malformed or unsupported TPDU, mirroring the
// PduError kind from the adapter's error taxonomy.
type PduError struct {
	Reason string
}

func (e PduError) Error() string {
	return fmt.Sprintf("tpdu: %s", e.Reason)
}

// ErrUnsupportedValidityPeriod is returned when a validity period uses
// the enhanced format, which this codec does not interpret.
var ErrUnsupportedValidityPeriod = PduError{Reason: "enhanced validity period format is not supported"}
