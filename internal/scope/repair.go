package scope

import (
	"github.com/sirupsen/logrus"

	"github.com/suderio/scopedsl/internal/clothing"
)

// repair strips the invalid keys reported by equipment decoding. Only keys
// are deleted; nothing is ever written in their place. Repairing an already
// clean component is a no-op, so a repeated repair is harmless.
func (e *Engine) repair(entityID string, defects []clothing.Defect) {
	repairer, canRepair := e.accessor.(Repairer)
	for _, d := range defects {
		repairsTotal.WithLabelValues(string(d.Kind)).Inc()
		fields := logrus.Fields{
			"entity_id": entityID,
			"component": clothing.EquipmentComponent,
			"kind":      string(d.Kind),
		}
		e.tracer.Warn("data corruption", fields)
		if !canRepair || len(d.Path) == 0 {
			e.log.WithFields(fields).Warn("malformed equipment entry skipped")
			continue
		}
		if repairer.RemoveComponentPath(entityID, clothing.EquipmentComponent, d.Path...) {
			e.log.WithFields(fields).Warn("malformed equipment entry removed")
		}
	}
}
