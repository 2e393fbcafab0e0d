package storage

// schema creates every table the deployer writes to. Statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS deployments (
	id                 UUID PRIMARY KEY,
	contract_id        TEXT        NOT NULL,
	wasm_hash          TEXT        NOT NULL,
	wasm_size          INTEGER     NOT NULL DEFAULT 0,
	mode               TEXT        NOT NULL,
	network_passphrase TEXT        NOT NULL DEFAULT '',
	deployer           TEXT        NOT NULL DEFAULT '',
	salt               TEXT        NOT NULL DEFAULT '',
	install_tx_hash    TEXT        NOT NULL DEFAULT '',
	create_tx_hash     TEXT        NOT NULL DEFAULT '',
	fee_charged        BIGINT      NOT NULL DEFAULT 0,
	deployed_at        TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS deployments_contract_id_idx ON deployments (contract_id, deployed_at DESC);

CREATE TABLE IF NOT EXISTS sandbox_modules (
	wasm_hash    TEXT PRIMARY KEY,
	code         BYTEA       NOT NULL,
	installed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sandbox_instances (
	contract_id TEXT PRIMARY KEY,
	wasm_hash   TEXT        NOT NULL,
	alias       TEXT        NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL
);
`
