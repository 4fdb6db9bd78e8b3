// Package memory keeps the ledger in process memory. Stored values are deep
// copies, so callers never share segment or transaction slices with the store.
package memory

import (
	"sort"

	"github.com/segyhp/pawn-ledger/internal/domain"
	"github.com/segyhp/pawn-ledger/internal/repository"
)

var (
	_ repository.ContractRepository   = (*ContractRepository)(nil)
	_ repository.CustomerRepository   = (*CustomerRepository)(nil)
	_ repository.PreferenceRepository = (*PreferenceRepository)(nil)
)

func sortNewestFirst(contracts []*domain.Contract) {
	sort.SliceStable(contracts, func(i, j int) bool {
		if !contracts[i].CreatedAt.Equal(contracts[j].CreatedAt) {
			return contracts[i].CreatedAt.After(contracts[j].CreatedAt)
		}
		return contracts[i].ID.String() > contracts[j].ID.String()
	})
}
