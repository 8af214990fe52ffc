package pbf

import "github.com/emi420/underpass-go/internal/domain"

// Sink receives decoded entities from the reader; the tasker implements it
// to accumulate per-kind caches for batched submission (spec §4.3/§4.4).
type Sink interface {
	PushNode(*domain.Node)
	PushWay(*domain.Way)
	PushRelation(*domain.Relation)
}
