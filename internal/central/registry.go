package central

import (
	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// registry maps identifiers to records and keeps the id<->name maps as mutual inverses.
// Both maps are only ever changed together by bind, unbind and clear.
type registry struct {
	records  *orderedmap.OrderedMap[uuid.UUID, *Record]
	idByName map[string]uuid.UUID
	nameByID map[uuid.UUID]string
}

func newRegistry() *registry {
	r := &registry{}
	r.clear()
	return r
}

func (r *registry) clear() {
	r.records = orderedmap.New[uuid.UUID, *Record]()
	r.idByName = make(map[string]uuid.UUID)
	r.nameByID = make(map[uuid.UUID]string)
}

func (r *registry) len() int {
	return r.records.Len()
}

func (r *registry) get(id uuid.UUID) (*Record, bool) {
	return r.records.Get(id)
}

func (r *registry) has(id uuid.UUID) bool {
	_, ok := r.records.Get(id)
	return ok
}

// put stores rec under its identifier and binds its current name.
func (r *registry) put(rec *Record) {
	r.records.Set(rec.ID(), rec)
	r.bind(rec.ID(), rec.Name())
}

// bind maps id<->name. A name already held by another identifier moves to id,
// and a previous name of id is released.
func (r *registry) bind(id uuid.UUID, name string) {
	if old, ok := r.nameByID[id]; ok {
		delete(r.idByName, old)
	}
	if other, ok := r.idByName[name]; ok && other != id {
		delete(r.nameByID, other)
	}
	r.idByName[name] = id
	r.nameByID[id] = name
}

func (r *registry) unbind(id uuid.UUID) {
	if name, ok := r.nameByID[id]; ok {
		delete(r.idByName, name)
		delete(r.nameByID, id)
	}
}

func (r *registry) remove(id uuid.UUID) (*Record, bool) {
	rec, ok := r.records.Delete(id)
	r.unbind(id)
	return rec, ok
}

func (r *registry) idFor(name string) (uuid.UUID, bool) {
	id, ok := r.idByName[name]
	return id, ok
}

func (r *registry) nameFor(id uuid.UUID) (string, bool) {
	name, ok := r.nameByID[id]
	return name, ok
}

// ids returns identifiers in insertion order.
func (r *registry) ids() []uuid.UUID {
	out := make([]uuid.UUID, 0, r.records.Len())
	for pair := r.records.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

func (r *registry) each(fn func(rec *Record)) {
	for pair := r.records.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Value)
	}
}

// consistent reports whether the name maps are mutual inverses.
func (r *registry) consistent() bool {
	if len(r.idByName) != len(r.nameByID) {
		return false
	}
	for name, id := range r.idByName {
		if r.nameByID[id] != name {
			return false
		}
	}
	return true
}
