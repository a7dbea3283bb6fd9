package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/model"
)

// Store provides Postgres persistence for transfers.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema creates the transfers table when it does not exist yet.
func (s *Store) InitSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transfers (
			block_number BIGINT NOT NULL,
			seq INT NOT NULL,
			direction TEXT NOT NULL,
			origin_chain TEXT,
			destination_chain TEXT,
			sender TEXT,
			beneficiary TEXT NOT NULL,
			asset TEXT NOT NULL,
			amount NUMERIC NOT NULL,
			transfer_type TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (block_number, seq)
		)
	`)
	return err
}

// WriteTransfers upserts one row per transfer, keyed by block and position
// within the block, so reprocessing a block overwrites its own rows.
func (s *Store) WriteTransfers(ctx context.Context, blockNumber uint64, transfers []model.Transfer) error {
	if len(transfers) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for seq, t := range transfers {
		var (
			direction    string
			origin       *string
			destination  *string
			sender       *string
			beneficiary  string
			asset        string
			amount       string
			transferType string
		)
		switch {
		case t.Received != nil:
			r := t.Received
			direction = "received"
			o := r.OriginChain.String()
			origin = &o
			beneficiary = r.Beneficiary
			asset = r.Asset
			amount = r.Amount.String()
			transferType = string(r.TransferType)
		case t.Sent != nil:
			st := t.Sent
			direction = "sent"
			d := st.DestinationChain.String()
			destination = &d
			sn := st.Sender
			sender = &sn
			beneficiary = st.Beneficiary
			asset = st.Asset
			amount = st.Amount.String()
			transferType = string(st.TransferType)
		default:
			continue
		}

		batch.Queue(`
			INSERT INTO transfers (
				block_number, seq, direction, origin_chain, destination_chain,
				sender, beneficiary, asset, amount, transfer_type, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
			ON CONFLICT (block_number, seq)
			DO UPDATE SET
				direction = EXCLUDED.direction,
				origin_chain = EXCLUDED.origin_chain,
				destination_chain = EXCLUDED.destination_chain,
				sender = EXCLUDED.sender,
				beneficiary = EXCLUDED.beneficiary,
				asset = EXCLUDED.asset,
				amount = EXCLUDED.amount,
				transfer_type = EXCLUDED.transfer_type,
				updated_at = now()
		`,
			int64(blockNumber),
			seq,
			direction,
			origin,
			destination,
			sender,
			beneficiary,
			asset,
			amount,
			transferType,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
