package repository

import "database/sql"

// SQLStore composes the MySQL repositories into a single value satisfying
// the same method set as MemoryStore.
type SQLStore struct {
	*DealRepo
	*RedemptionRepo
	*ClaimRepo
	*PinAttemptRepo
	*UserRepo
	*TokenRepo
	*VendorRepo
	*SystemLogRepo
}

// NewSQLStore wires every repository to db.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{
		DealRepo:       NewDealRepo(db),
		RedemptionRepo: NewRedemptionRepo(db),
		ClaimRepo:      NewClaimRepo(db),
		PinAttemptRepo: NewPinAttemptRepo(db),
		UserRepo:       NewUserRepo(db),
		TokenRepo:      NewTokenRepo(db),
		VendorRepo:     NewVendorRepo(db),
		SystemLogRepo:  NewSystemLogRepo(db),
	}
}
