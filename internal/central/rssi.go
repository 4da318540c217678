package central

import (
	"fmt"

	"github.com/google/uuid"
)

// RankByRSSI returns copies of ids and rssi reordered strongest signal first.
// Devices with equal signal keep their relative order.
func RankByRSSI(ids []uuid.UUID, rssi []int) ([]uuid.UUID, []int, error) {
	if len(ids) != len(rssi) {
		return nil, nil, fmt.Errorf("rank by rssi: %d identifiers but %d signal values", len(ids), len(rssi))
	}

	outIDs := append([]uuid.UUID(nil), ids...)
	outRSSI := append([]int(nil), rssi...)

	// Scan results are bounded by RF range, a quadratic exchange sort is enough.
	n := len(outRSSI)
	for i := 0; i < n; i++ {
		for j := 0; j < n-1-i; j++ {
			if outRSSI[j] < outRSSI[j+1] {
				outRSSI[j], outRSSI[j+1] = outRSSI[j+1], outRSSI[j]
				outIDs[j], outIDs[j+1] = outIDs[j+1], outIDs[j]
			}
		}
	}
	return outIDs, outRSSI, nil
}

// ranking holds the parallel identifier and RSSI arrays of the discovered registry.
type ranking struct {
	ids  []uuid.UUID
	rssi []int
}

// observe appends id or updates its signal in place when already present.
func (r *ranking) observe(id uuid.UUID, rssi int) {
	for i, known := range r.ids {
		if known == id {
			r.rssi[i] = rssi
			return
		}
	}
	r.ids = append(r.ids, id)
	r.rssi = append(r.rssi, rssi)
}

func (r *ranking) clear() {
	r.ids = nil
	r.rssi = nil
}
