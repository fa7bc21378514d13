package ownership

import "github.com/EternisAI/agent-registry/internal/ledger"

// attributeStore keeps the ordered attribute list of each record. A list is
// written once, when the record is created, and never changes afterwards.
type attributeStore struct {
	lists map[uint64][]Attribute
}

func newAttributeStore() *attributeStore {
	return &attributeStore{lists: make(map[uint64][]Attribute)}
}

func (s *attributeStore) put(tx *ledger.Tx, id uint64, attrs []Attribute) {
	s.lists[id] = cloneAttributes(attrs)
	tx.OnRollback(func() { delete(s.lists, id) })
}

func (s *attributeStore) get(id uint64) []Attribute {
	return cloneAttributes(s.lists[id])
}
