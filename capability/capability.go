// Package capability records what a particular terminal adapter can do,
// discovered once when a MeTa façade opens its port, and used afterwards
// to steer around known device quirks and to negotiate the optimal SMS
// routing mode a device supports.
package capability

import (
	"os"
	"strings"
)

// MEInfo holds identification strings read from the device at open time
// via +CGMI/+CGMM/+CGMR/+CGSN. Devices that don't support one of these
// commands leave the corresponding field empty.
type MEInfo struct {
	Manufacturer string
	Model        string
	Revision     string
	SerialNumber string
}

// Capabilities records per-device behaviour discovered at open time or
// the first time it's needed.
type Capabilities struct {
	// HasSMSSCAPrefix is false for devices that omit the service-centre
	// address octet from +CMGR/+CMT/+CDS PDUs, against the 07.05 spec.
	HasSMSSCAPrefix bool

	// CPMSParamCount is the arity of +CPMS, i.e. how many times the
	// store name must be repeated in a +CPMS=<name>[,<name>...] command.
	// -1 means undiscovered.
	CPMSParamCount int
}

// Config carries caller overrides for capability discovery.
type Config struct {
	// ForceNoSCAPrefix overrides quirk detection, for devices not on
	// the known-broken list or for testing.
	ForceNoSCAPrefix bool
}

// New returns a Capabilities record with conservative defaults, valid
// until ApplyQuirks and CPMS arity discovery run.
func New() *Capabilities {
	return &Capabilities{HasSMSSCAPrefix: true, CPMSParamCount: -1}
}

type quirk struct {
	manufacturer string
	model        string
}

// knownBrokenDevices lists manufacturer/model pairs whose +CMGR/+CMT/+CDS
// responses omit the SCA prefix despite 07.05 requiring it.
var knownBrokenDevices = []quirk{
	{"ERICSSON", "1100801"},
	{"ERICSSON", "1140801"},
}

// noSCAPrefixEnvVar lets a deployment disable the SCA prefix for a
// device not on knownBrokenDevices, without a code change.
const noSCAPrefixEnvVar = "GSMTA_NO_SCA_PREFIX"

// ApplyQuirks sets HasSMSSCAPrefix to false when info matches a known
// broken device, cfg requests the override, or the environment variable
// escape hatch is set.
func (c *Capabilities) ApplyQuirks(info MEInfo, cfg Config) {
	if cfg.ForceNoSCAPrefix || os.Getenv(noSCAPrefixEnvVar) != "" {
		c.HasSMSSCAPrefix = false
		return
	}
	for _, q := range knownBrokenDevices {
		if strings.EqualFold(info.Manufacturer, q.manufacturer) &&
			strings.EqualFold(info.Model, q.model) {
			c.HasSMSSCAPrefix = false
			return
		}
	}
}
