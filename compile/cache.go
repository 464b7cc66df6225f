// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package compile

import (
	"fmt"
	"maps"
	"slices"

	"github.com/poiesic/loom/core"
)

type slotProducer struct {
	node     core.NodeID
	priority int
}

// resolveSlots turns cache-slot pairs into direct wires. Each consumer
// of a slot gets one wire from the slot's selected producer: highest
// priority wins, equal priorities fall back to ascending NodeID, which
// is creation order for time-ordered ids. A consumer whose slot has no
// producer is a definition error; a producer nobody reads is legal and
// its items are simply dropped at run time.
func resolveSlots(def *core.Definition) ([]Wire, error) {
	producers := make(map[string][]slotProducer)
	consumers := make(map[string][]core.NodeID)

	for id, node := range def.Nodes {
		switch {
		case node.Kind == core.KindOutput && node.Output.Target == core.OutputCache:
			slot := node.Output.Cache
			producers[slot.Slot] = append(producers[slot.Slot], slotProducer{node: id, priority: slot.Priority})
		case node.Kind == core.KindInput && node.Input.Source == core.InputCacheSlot:
			slot := node.Input.CacheSlot
			consumers[slot.Slot] = append(consumers[slot.Slot], id)
		}
	}

	var wires []Wire
	for _, slot := range slices.Sorted(maps.Keys(consumers)) {
		candidates := producers[slot]
		if len(candidates) == 0 {
			return nil, fmt.Errorf("%w: cache slot %q has no producer", core.ErrInvalidDefinition, slot)
		}

		selected := selectProducer(candidates)
		readers := consumers[slot]
		slices.Sort(readers)
		for _, consumer := range readers {
			wires = append(wires, Wire{
				From:   selected,
				To:     consumer,
				Cached: true,
				Slot:   slot,
			})
		}
	}
	return wires, nil
}

func selectProducer(candidates []slotProducer) core.NodeID {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.priority > best.priority || (c.priority == best.priority && c.node < best.node) {
			best = c
		}
	}
	return best.node
}
