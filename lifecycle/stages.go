package lifecycle

import (
	"sort"

	"hullcore/store"
)

// EnabledStages is the single shared traversal view over a routing's stage
// set: filter to enabled, sort ascending by sequence. Disabled stages do not
// consume a position in the current stage index.
func EnabledStages(stages []*store.RoutingStage) []*store.RoutingStage {
	enabled := make([]*store.RoutingStage, 0, len(stages))
	for _, s := range stages {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}
	sort.Slice(enabled, func(i, j int) bool { return enabled[i].Sequence < enabled[j].Sequence })
	return enabled
}

// CurrentStage resolves the stage a work order currently sits at. The view
// is recomputed on every call, never cached. ok is false when the enabled
// list is empty or the index is out of range.
func CurrentStage(stages []*store.RoutingStage, index int) (*store.RoutingStage, bool) {
	enabled := EnabledStages(stages)
	if index < 0 || index >= len(enabled) {
		return nil, false
	}
	return enabled[index], true
}

// isFinalStage reports whether index addresses the last enabled stage.
func isFinalStage(stages []*store.RoutingStage, index int) bool {
	return index == len(EnabledStages(stages))-1
}
