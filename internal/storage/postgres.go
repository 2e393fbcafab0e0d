package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"deployer/internal/address"
	"deployer/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{
		pool: pool,
	}, nil
}

// EnsureSchema creates the deployer tables when they do not exist yet
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const deploymentColumns = `
	id, contract_id, wasm_hash, wasm_size, mode, network_passphrase,
	deployer, salt, install_tx_hash, create_tx_hash, fee_charged, deployed_at
`

// SaveDeployment saves a deployment record
func (r *PostgresRepository) SaveDeployment(ctx context.Context, d *models.Deployment) error {
	query := `
		INSERT INTO deployments (` + deploymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		d.ID,
		d.ContractID,
		d.WasmHash,
		d.WasmSize,
		string(d.Mode),
		d.NetworkPassphrase,
		d.Deployer,
		d.Salt,
		d.InstallTxHash,
		d.CreateTxHash,
		d.FeeCharged,
		d.DeployedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save deployment: %w", err)
	}

	return nil
}

// GetDeployment retrieves the most recent deployment of a contract
func (r *PostgresRepository) GetDeployment(ctx context.Context, contractID string) (*models.Deployment, error) {
	query := `
		SELECT ` + deploymentColumns + `
		FROM deployments
		WHERE contract_id = $1
		ORDER BY deployed_at DESC
		LIMIT 1
	`

	d, err := scanDeployment(r.pool.QueryRow(ctx, query, contractID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("deployment of %s: %w", contractID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deployment: %w", err)
	}

	return d, nil
}

// ListDeployments lists deployments, newest first, with pagination
func (r *PostgresRepository) ListDeployments(ctx context.Context, limit, offset int) ([]*models.Deployment, error) {
	query := `
		SELECT ` + deploymentColumns + `
		FROM deployments
		ORDER BY deployed_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}
	defer rows.Close()

	var deployments []*models.Deployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deployment: %w", err)
		}
		deployments = append(deployments, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deployments: %w", err)
	}

	return deployments, nil
}

func scanDeployment(row pgx.Row) (*models.Deployment, error) {
	var (
		d    models.Deployment
		mode string
	)
	err := row.Scan(
		&d.ID,
		&d.ContractID,
		&d.WasmHash,
		&d.WasmSize,
		&mode,
		&d.NetworkPassphrase,
		&d.Deployer,
		&d.Salt,
		&d.InstallTxHash,
		&d.CreateTxHash,
		&d.FeeCharged,
		&d.DeployedAt,
	)
	if err != nil {
		return nil, err
	}
	d.Mode = models.DeploymentMode(mode)
	return &d, nil
}

// Load reads the sandbox ledger state
func (r *PostgresRepository) Load(ctx context.Context) (*models.LedgerState, error) {
	state := models.NewLedgerState()

	rows, err := r.pool.Query(ctx, `SELECT wasm_hash, code FROM sandbox_modules`)
	if err != nil {
		return nil, fmt.Errorf("failed to load sandbox modules: %w", err)
	}
	for rows.Next() {
		var (
			hashHex string
			code    []byte
			h       address.Hash
		)
		if err := rows.Scan(&hashHex, &code); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan sandbox module: %w", err)
		}
		if err := h.UnmarshalText([]byte(hashHex)); err != nil {
			rows.Close()
			return nil, err
		}
		state.Modules[h] = code
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sandbox modules: %w", err)
	}

	rows, err = r.pool.Query(ctx, `SELECT contract_id, wasm_hash, alias, created_at FROM sandbox_instances`)
	if err != nil {
		return nil, fmt.Errorf("failed to load sandbox instances: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			contractID, hashHex, alias string
			createdAt                  time.Time
			id                         address.ContractID
			h                          address.Hash
		)
		if err := rows.Scan(&contractID, &hashHex, &alias, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan sandbox instance: %w", err)
		}
		if err := id.UnmarshalText([]byte(contractID)); err != nil {
			return nil, err
		}
		if err := h.UnmarshalText([]byte(hashHex)); err != nil {
			return nil, err
		}
		state.Instances[id] = models.ContractInstance{WasmHash: h, Alias: alias, CreatedAt: createdAt}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sandbox instances: %w", err)
	}

	return state, nil
}

// Save persists the sandbox ledger state in a single transaction. Modules are
// content addressed and never rewritten.
func (r *PostgresRepository) Save(ctx context.Context, state *models.LedgerState) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	hashes := make([]string, 0, len(state.Modules))
	for h := range state.Modules {
		hashes = append(hashes, h.HexString())
	}
	rows, err := tx.Query(ctx, `SELECT wasm_hash FROM sandbox_modules WHERE wasm_hash = ANY($1)`, hashes)
	if err != nil {
		return fmt.Errorf("failed to query stored modules: %w", err)
	}
	stored, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("failed to read stored modules: %w", err)
	}

	batch := &pgx.Batch{}
	for _, h := range missingModules(state.Modules, stored) {
		batch.Queue(`
			INSERT INTO sandbox_modules (wasm_hash, code) VALUES ($1, $2)
			ON CONFLICT (wasm_hash) DO NOTHING
		`, h.HexString(), state.Modules[h])
	}
	for id, instance := range state.Instances {
		batch.Queue(`
			INSERT INTO sandbox_instances (contract_id, wasm_hash, alias, created_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (contract_id) DO UPDATE
			SET wasm_hash = EXCLUDED.wasm_hash, alias = EXCLUDED.alias, created_at = EXCLUDED.created_at
		`, id.String(), instance.WasmHash.HexString(), instance.Alias, instance.CreatedAt)
	}

	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to save sandbox state: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// missingModules returns the hashes of modules not yet stored, in hash order
func missingModules(modules map[address.Hash][]byte, stored []string) []address.Hash {
	present := make(map[string]bool, len(stored))
	for _, h := range stored {
		present[h] = true
	}

	missing := make([]address.Hash, 0, len(modules))
	for h := range modules {
		if !present[h.HexString()] {
			missing = append(missing, h)
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		return bytes.Compare(missing[i][:], missing[j][:]) < 0
	})
	return missing
}

// Ping checks if the database connection is alive
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
