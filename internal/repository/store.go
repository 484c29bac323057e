package repository

import (
	"context"
	"database/sql"

	"github.com/onerilhan/go-credit-ledger/internal/db"
	"github.com/onerilhan/go-credit-ledger/internal/interfaces"
)

// repoSet tek bir bağlantı veya transaction üzerindeki repository'ler
type repoSet struct {
	balances      *BalanceRepository
	mutations     *MutationRepository
	debitRecords  *DebitRecordRepository
	paymentEvents *PaymentEventRepository
	orders        *OrderRepository
}

func newRepoSet(q db.DBTX) *repoSet {
	return &repoSet{
		balances:      NewBalanceRepository(q),
		mutations:     NewMutationRepository(q),
		debitRecords:  NewDebitRecordRepository(q),
		paymentEvents: NewPaymentEventRepository(q),
		orders:        NewOrderRepository(q),
	}
}

func (s *repoSet) Balances() interfaces.BalanceRepositoryInterface           { return s.balances }
func (s *repoSet) Mutations() interfaces.MutationRepositoryInterface         { return s.mutations }
func (s *repoSet) DebitRecords() interfaces.DebitRecordRepositoryInterface   { return s.debitRecords }
func (s *repoSet) PaymentEvents() interfaces.PaymentEventRepositoryInterface { return s.paymentEvents }
func (s *repoSet) Orders() interfaces.OrderRepositoryInterface               { return s.orders }

// Store PostgreSQL tabanlı ledger deposu
type Store struct {
	*repoSet
	database *sql.DB
	txOpts   db.TxOptions
}

// NewStore yeni store oluşturur
func NewStore(database *sql.DB, txOpts db.TxOptions) *Store {
	return &Store{
		repoSet:  newRepoSet(database),
		database: database,
		txOpts:   txOpts,
	}
}

// WithinTx fn'i serializable bir transaction içinde çalıştırır.
// Serialization conflict olursa fn baştan tekrar çağrılır.
func (s *Store) WithinTx(ctx context.Context, fn func(repos interfaces.Repositories) error) error {
	return db.WithTransaction(ctx, s.database, s.txOpts, func(tx *sql.Tx) error {
		return fn(newRepoSet(tx))
	})
}

var _ interfaces.Store = (*Store)(nil)
