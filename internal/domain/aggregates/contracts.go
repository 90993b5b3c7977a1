package aggregates

// WriteTxOwnership says who opens the transaction around a write.
type WriteTxOwnership string

const (
	// WriteTxOwnedByAggregate: the aggregate opens and commits its own transaction.
	// Callers never pass one in.
	WriteTxOwnedByAggregate WriteTxOwnership = "aggregate_owned"
)

// LockScope names what concurrent writers of an aggregate are serialized on.
type LockScope string

const (
	LockScopeFamily LockScope = "family"
	LockScopePerson LockScope = "person"
)

// Contract describes an aggregate's write boundary.
type Contract struct {
	Name             string
	WriteTxOwnership WriteTxOwnership
	SerializedBy     []LockScope
	Notes            string
}

// Aggregate is implemented by every write boundary.
type Aggregate interface {
	Contract() Contract
}

func (c Contract) RequiresAggregateOwnedTx() bool {
	return c.WriteTxOwnership == WriteTxOwnedByAggregate
}

// SerializedOn reports whether writers contend on scope.
func (c Contract) SerializedOn(scope LockScope) bool {
	for _, s := range c.SerializedBy {
		if s == scope {
			return true
		}
	}
	return false
}
