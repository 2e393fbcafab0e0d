package network

import (
	"context"
	"log/slog"
	"time"

	"deployer/internal/address"
	"deployer/internal/errs"
	"deployer/internal/metrics"
	"deployer/internal/models"
	"deployer/internal/txbuild"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/xdr"
)

// Phase names the transaction being submitted
type Phase string

const (
	PhaseInstall Phase = "install"
	PhaseCreate  Phase = "create"
)

// Account is the source account state needed to build a transaction
type Account struct {
	Address  string
	Sequence int64
}

// SubmissionResult is the terminal outcome of one submitted transaction
type SubmissionResult struct {
	Hash                string
	Status              string
	Ledger              uint32
	FeeCharged          int64
	ResultXDR           string
	DiagnosticEventsXDR []string
}

// Client is the remote ledger as seen by the network backend
type Client interface {
	GetAccount(ctx context.Context, address string) (Account, error)
	// PrepareAndSubmit simulates, signs and submits the envelope, then waits
	// for a terminal status. The result is returned whenever the server
	// produced one, including alongside an error.
	PrepareAndSubmit(ctx context.Context, envelope xdr.TransactionEnvelope, key *keypair.Full, passphrase string) (*SubmissionResult, error)
}

// Reporter receives every submission outcome, successful or not
type Reporter interface {
	Report(ctx context.Context, phase Phase, result *SubmissionResult)
}

// Backend installs modules and creates instances through signed transactions
type Backend struct {
	client     Client
	key        *keypair.Full
	passphrase string
	fee        uint32
	reporter   Reporter
}

// New creates a network Backend. The key is both the transaction source and signer.
func New(client Client, key *keypair.Full, passphrase string, fee uint32) *Backend {
	return &Backend{
		client:     client,
		key:        key,
		passphrase: passphrase,
		fee:        fee,
	}
}

// WithReporter sets the hook receiving submission outcomes
func (b *Backend) WithReporter(r Reporter) *Backend {
	b.reporter = r
	return b
}

// Mode reports the network deployment mode
func (b *Backend) Mode() models.DeploymentMode {
	return models.ModeNetwork
}

// Address returns the deployer account
func (b *Backend) Address() string {
	return b.key.Address()
}

// Passphrase returns the network passphrase transactions are signed for
func (b *Backend) Passphrase() string {
	return b.passphrase
}

// FetchAccount reads the current sequence of the deployer account. A failure
// is reported once and never retried.
func (b *Backend) FetchAccount(ctx context.Context) (Account, error) {
	account, err := b.client.GetAccount(ctx, b.key.Address())
	if err != nil {
		return Account{}, errs.New(errs.KindAccountLookup, "fetching account "+b.key.Address(), err)
	}

	metrics.LastSequence.Set(float64(account.Sequence))
	slog.Debug("Network: account fetched",
		"account", account.Address,
		"sequence", account.Sequence,
	)
	return account, nil
}

// Submit prepares, signs and submits one envelope. It is never resubmitted.
func (b *Backend) Submit(ctx context.Context, phase Phase, envelope xdr.TransactionEnvelope) (*SubmissionResult, error) {
	start := time.Now()
	result, err := b.client.PrepareAndSubmit(ctx, envelope, b.key, b.passphrase)
	metrics.SubmissionDuration.Observe(time.Since(start).Seconds())

	if result != nil {
		recordReceipt(ctx, phase, result)
		if b.reporter != nil {
			b.reporter.Report(ctx, phase, result)
		}
	}

	if err != nil {
		if errs.Is(err, errs.KindPreparation) || errs.Is(err, errs.KindEncoding) {
			return result, err
		}
		return result, errs.New(errs.KindSubmission, "submitting "+string(phase)+" transaction", err)
	}

	slog.Info("Network: transaction confirmed",
		"phase", phase,
		"tx_hash", result.Hash,
		"ledger", result.Ledger,
	)
	return result, nil
}

// Install uploads the module in a transaction and returns its hash
func (b *Backend) Install(ctx context.Context, module []byte) (address.Hash, error) {
	account, err := b.FetchAccount(ctx)
	if err != nil {
		return address.Hash{}, err
	}

	envelope, moduleHash, err := txbuild.BuildInstallTx(module, account.Sequence+1, b.fee, b.key.Address())
	if err != nil {
		return address.Hash{}, err
	}

	if _, err := b.Submit(ctx, PhaseInstall, envelope); err != nil {
		return address.Hash{}, err
	}

	metrics.ModulesInstalled.WithLabelValues(string(models.ModeNetwork)).Inc()
	slog.Info("Network: module installed",
		"wasm_hash", moduleHash.HexString(),
		"size", len(module),
	)
	return moduleHash, nil
}

// CreateInstance creates a contract from an installed module. The contract
// id is derived from the network, the deployer and the salt.
func (b *Backend) CreateInstance(ctx context.Context, moduleHash address.Hash, opts models.InstanceOptions) (address.ContractID, error) {
	var salt address.Salt
	if opts.Salt != nil {
		salt = *opts.Salt
	} else {
		random, err := address.RandomSalt()
		if err != nil {
			return address.ContractID{}, err
		}
		salt = random
	}

	account, err := b.FetchAccount(ctx)
	if err != nil {
		return address.ContractID{}, err
	}

	envelope, contractID, err := txbuild.BuildCreateInstanceTx(moduleHash, account.Sequence+1, b.fee, b.passphrase, salt, b.key.Address())
	if err != nil {
		return address.ContractID{}, err
	}
	if r := receiptFrom(ctx); r != nil {
		r.Salt = salt
	}

	if _, err := b.Submit(ctx, PhaseCreate, envelope); err != nil {
		return address.ContractID{}, err
	}

	metrics.InstancesCreated.WithLabelValues(string(models.ModeNetwork)).Inc()
	slog.Info("Network: contract instance created",
		"contract_id", contractID.String(),
		"wasm_hash", moduleHash.HexString(),
		"salt", salt.String(),
	)
	return contractID, nil
}
