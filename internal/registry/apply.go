package registry

import "readsb-core/internal/engine"

// ApplyToAircraft resolves addr's registry fields (registration, type,
// owner/operator, etc.) and writes them into a, OR-ing in the static
// military/exception flags regardless of what the registry itself
// carried. This is the unit of work for the re-resolution sweep the
// priority coordinator runs after a successful swap, which visits
// every record in turn on the upkeep thread under the barrier (the
// sweep is not spread over worker goroutines). It is also called once
// synchronously when an
// aircraft is first created, by whichever caller owns that aircraft's
// field updates.
func ApplyToAircraft(db *Database, a *engine.Aircraft) {
	addr := uint32(a.Address)

	fields, found := db.Resolve(addr)
	flags := fields.Flags
	flags, isException := ApplyStaticFlags(addr, flags)

	if found {
		a.Registration = fields.Registration
		a.TypeCode = fields.TypeCode
		a.TypeLong = fields.TypeLong
		a.Year = fields.Year
		a.OwnerOperator = fields.OwnerOperator
	}
	a.DBFlags = flags
	a.IsDF18Exception = isException
}
