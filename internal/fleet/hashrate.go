package fleet

import (
	"fmt"
	"math"
)

// hashrateUnits are the display units for a hashrate expressed in MH/s.
var hashrateUnits = []string{"MH/s", "GH/s", "TH/s", "PH/s", "EH/s"}

// hashrateStep is the factor between consecutive units.
const hashrateStep = 1000

// FormatHashrate renders a hashrate given in MH/s with the largest unit that
// keeps the value at or above one, using two decimals.
//
// Example:
//
//	FormatHashrate(150)       // "150.00 MH/s"
//	FormatHashrate(110000000) // "110.00 TH/s"
func FormatHashrate(mhs float64) string {
	if math.IsNaN(mhs) || math.IsInf(mhs, 0) || mhs <= 0 {
		return "0.00 " + hashrateUnits[0]
	}

	unit := 0
	for mhs >= hashrateStep && unit < len(hashrateUnits)-1 {
		mhs /= hashrateStep
		unit++
	}
	return fmt.Sprintf("%.2f %s", mhs, hashrateUnits[unit])
}
