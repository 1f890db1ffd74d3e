package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	vaultABIJSON = `[
{"inputs":[{"internalType":"uint256","name":"amount","type":"uint256"},{"internalType":"uint32","name":"planId","type":"uint32"}],"name":"createPosition","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"internalType":"address","name":"owner","type":"address"},{"internalType":"uint256","name":"id","type":"uint256"}],"name":"getPosition","outputs":[{"internalType":"uint256","name":"principal","type":"uint256"},{"internalType":"uint32","name":"planId","type":"uint32"},{"internalType":"uint256","name":"rateBps","type":"uint256"},{"internalType":"uint256","name":"createdAt","type":"uint256"},{"internalType":"uint256","name":"maturityTime","type":"uint256"},{"internalType":"uint256","name":"lastAccrualTime","type":"uint256"},{"internalType":"uint256","name":"accruedInterest","type":"uint256"},{"internalType":"uint8","name":"state","type":"uint8"}],"stateMutability":"view","type":"function"},
{"inputs":[{"internalType":"address","name":"owner","type":"address"}],"name":"positionIdsOf","outputs":[{"internalType":"uint256[]","name":"","type":"uint256[]"}],"stateMutability":"view","type":"function"},
{"inputs":[{"internalType":"uint256","name":"id","type":"uint256"}],"name":"withdraw","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"internalType":"uint256","name":"id","type":"uint256"}],"name":"emergencyWithdraw","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"internalType":"uint32","name":"planId","type":"uint32"}],"name":"getPlan","outputs":[{"internalType":"uint32","name":"durationDays","type":"uint32"},{"internalType":"uint256","name":"rateBps","type":"uint256"},{"internalType":"uint256","name":"minAmount","type":"uint256"},{"internalType":"uint256","name":"maxAmount","type":"uint256"},{"internalType":"bool","name":"active","type":"bool"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"claimFaucet","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"internalType":"address","name":"account","type":"address"}],"name":"canClaimFaucet","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"view","type":"function"},
{"inputs":[{"internalType":"address","name":"account","type":"address"}],"name":"timeUntilNextClaim","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"getFaucetStats","outputs":[{"internalType":"uint256","name":"distributed","type":"uint256"},{"internalType":"uint256","name":"remaining","type":"uint256"},{"internalType":"uint256","name":"uniqueUsers","type":"uint256"}],"stateMutability":"view","type":"function"},
{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"owner","type":"address"},{"indexed":false,"internalType":"uint256","name":"id","type":"uint256"}],"name":"PositionCreated","type":"event"}
]`

	erc20ABIJSON = `[
{"inputs":[{"internalType":"address","name":"spender","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"approve","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"internalType":"address","name":"owner","type":"address"},{"internalType":"address","name":"spender","type":"address"}],"name":"allowance","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`
)

var (
	vaultABI abi.ABI
	erc20ABI abi.ABI
)

func init() {
	parsed, err := abi.JSON(strings.NewReader(vaultABIJSON))
	if err != nil {
		panic("failed to parse vault ABI: " + err.Error())
	}
	vaultABI = parsed

	parsed, err = abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		panic("failed to parse ERC-20 ABI: " + err.Error())
	}
	erc20ABI = parsed
}

// EVMOptions parameterise the vault client.
type EVMOptions struct {
	RPCURL              string
	VaultAddress        string
	TokenAddress        string
	OwnerAddress        string
	PrivateKey          string
	ChainID             int64
	RequestTimeout      time.Duration
	ConfirmTimeout      time.Duration
	ConfirmPollInterval time.Duration
	GasLimit            uint64
}

// EVMClient implements Client against an Ethereum JSON-RPC endpoint.
type EVMClient struct {
	opts      EVMOptions
	logger    zerolog.Logger
	key       *ecdsa.PrivateKey
	owner     common.Address
	vault     common.Address
	token     common.Address
	client    *ethclient.Client
	clientMux sync.Mutex
}

// NewEVMClient builds a vault client. The private key is optional; without
// it the client serves read calls only and Writer operations fail.
func NewEVMClient(opts EVMOptions, logger zerolog.Logger) (*EVMClient, error) {
	if opts.RPCURL == "" {
		return nil, errors.New("ledger rpc url not configured")
	}
	if !common.IsHexAddress(opts.VaultAddress) {
		return nil, errors.New("vault contract address not configured")
	}

	c := &EVMClient{
		opts:   opts,
		logger: logger.With().Str("component", "vault_client").Logger(),
		vault:  common.HexToAddress(opts.VaultAddress),
	}

	if common.IsHexAddress(opts.TokenAddress) {
		c.token = common.HexToAddress(opts.TokenAddress)
	}

	if opts.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(opts.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse ledger private key: %w", err)
		}
		c.key = key
		c.owner = crypto.PubkeyToAddress(key.PublicKey)
	} else if common.IsHexAddress(opts.OwnerAddress) {
		c.owner = common.HexToAddress(opts.OwnerAddress)
	} else {
		return nil, errors.New("either owner address or private key must be configured")
	}

	return c, nil
}

// OwnerAddress returns the account this client reads and signs for.
func (c *EVMClient) OwnerAddress() string {
	return c.owner.Hex()
}

func (c *EVMClient) getClient(ctx context.Context) (*ethclient.Client, error) {
	c.clientMux.Lock()
	defer c.clientMux.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	client, err := ethclient.DialContext(ctx, c.opts.RPCURL)
	if err != nil {
		return nil, err
	}
	c.client = client
	return client, nil
}

func (c *EVMClient) requestCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := c.opts.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func (c *EVMClient) call(ctx context.Context, contract common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	ctx, cancel := c.requestCtx(ctx)
	defer cancel()

	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	res, err := client.CallContract(ctx, ethereum.CallMsg{From: c.owner, To: &contract, Data: payload}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	outputs, err := parsed.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("decode %s response: %w", method, err)
	}
	return outputs, nil
}

// GetPosition fetches one position snapshot.
func (c *EVMClient) GetPosition(ctx context.Context, owner string, id uint64) (PositionSnapshot, error) {
	outputs, err := c.call(ctx, c.vault, vaultABI, "getPosition", common.HexToAddress(owner), new(big.Int).SetUint64(id))
	if err != nil {
		return PositionSnapshot{}, err
	}
	if len(outputs) != 8 {
		return PositionSnapshot{}, errors.New("unexpected getPosition response")
	}

	snap := PositionSnapshot{ID: id, Owner: common.HexToAddress(owner).Hex()}
	var ok bool
	var v *big.Int

	if v, ok = outputs[0].(*big.Int); !ok {
		return PositionSnapshot{}, errors.New("failed to decode position principal")
	}
	snap.Principal = decimal.NewFromBigInt(v, 0)

	if snap.PlanID, ok = outputs[1].(uint32); !ok {
		return PositionSnapshot{}, errors.New("failed to decode position plan id")
	}
	if v, ok = outputs[2].(*big.Int); !ok {
		return PositionSnapshot{}, errors.New("failed to decode position rate")
	}
	snap.RateBps = v.Int64()

	for i, dst := range []*time.Time{&snap.CreatedAt, &snap.MaturityTime, &snap.LastAccrualTime} {
		if v, ok = outputs[3+i].(*big.Int); !ok {
			return PositionSnapshot{}, errors.New("failed to decode position timestamp")
		}
		*dst = time.Unix(v.Int64(), 0).UTC()
	}

	if v, ok = outputs[6].(*big.Int); !ok {
		return PositionSnapshot{}, errors.New("failed to decode accrued interest")
	}
	snap.AccruedInterest = decimal.NewFromBigInt(v, 0)

	if snap.StateCode, ok = outputs[7].(uint8); !ok {
		return PositionSnapshot{}, errors.New("failed to decode position state")
	}

	return snap, nil
}

// ListPositionIDs enumerates position ids held by owner.
func (c *EVMClient) ListPositionIDs(ctx context.Context, owner string) ([]uint64, error) {
	outputs, err := c.call(ctx, c.vault, vaultABI, "positionIdsOf", common.HexToAddress(owner))
	if err != nil {
		return nil, err
	}
	if len(outputs) != 1 {
		return nil, errors.New("unexpected positionIdsOf response")
	}

	raw, ok := outputs[0].([]*big.Int)
	if !ok {
		return nil, errors.New("failed to decode position id list")
	}

	ids := make([]uint64, 0, len(raw))
	for _, id := range raw {
		ids = append(ids, id.Uint64())
	}
	return ids, nil
}

// GetPlan fetches one savings plan record.
func (c *EVMClient) GetPlan(ctx context.Context, planID uint32) (PlanRecord, error) {
	outputs, err := c.call(ctx, c.vault, vaultABI, "getPlan", planID)
	if err != nil {
		return PlanRecord{}, err
	}
	if len(outputs) != 5 {
		return PlanRecord{}, errors.New("unexpected getPlan response")
	}

	rec := PlanRecord{ID: planID}
	var ok bool
	var v *big.Int

	if rec.DurationDays, ok = outputs[0].(uint32); !ok {
		return PlanRecord{}, errors.New("failed to decode plan duration")
	}
	if v, ok = outputs[1].(*big.Int); !ok {
		return PlanRecord{}, errors.New("failed to decode plan rate")
	}
	rec.RateBps = v.Int64()

	if v, ok = outputs[2].(*big.Int); !ok {
		return PlanRecord{}, errors.New("failed to decode plan min amount")
	}
	rec.MinAmount = decimal.NewFromBigInt(v, 0)

	if v, ok = outputs[3].(*big.Int); !ok {
		return PlanRecord{}, errors.New("failed to decode plan max amount")
	}
	rec.MaxAmount = decimal.NewFromBigInt(v, 0)

	if rec.Active, ok = outputs[4].(bool); !ok {
		return PlanRecord{}, errors.New("failed to decode plan active flag")
	}

	return rec, nil
}

// CanClaimFaucet asks the contract whether the cooldown gate is open.
// The answer is advisory by the time it reaches the caller; the claim
// transaction re-checks atomically.
func (c *EVMClient) CanClaimFaucet(ctx context.Context, address string) (bool, error) {
	outputs, err := c.call(ctx, c.vault, vaultABI, "canClaimFaucet", common.HexToAddress(address))
	if err != nil {
		return false, err
	}
	if len(outputs) != 1 {
		return false, errors.New("unexpected canClaimFaucet response")
	}
	open, ok := outputs[0].(bool)
	if !ok {
		return false, errors.New("failed to decode canClaimFaucet output")
	}
	return open, nil
}

// TimeUntilNextClaim returns the remaining cooldown for address.
func (c *EVMClient) TimeUntilNextClaim(ctx context.Context, address string) (time.Duration, error) {
	outputs, err := c.call(ctx, c.vault, vaultABI, "timeUntilNextClaim", common.HexToAddress(address))
	if err != nil {
		return 0, err
	}
	if len(outputs) != 1 {
		return 0, errors.New("unexpected timeUntilNextClaim response")
	}
	seconds, ok := outputs[0].(*big.Int)
	if !ok {
		return 0, errors.New("failed to decode timeUntilNextClaim output")
	}
	return time.Duration(seconds.Int64()) * time.Second, nil
}

// GetFaucetStats fetches aggregate faucet distribution state.
func (c *EVMClient) GetFaucetStats(ctx context.Context) (FaucetStats, error) {
	outputs, err := c.call(ctx, c.vault, vaultABI, "getFaucetStats")
	if err != nil {
		return FaucetStats{}, err
	}
	if len(outputs) != 3 {
		return FaucetStats{}, errors.New("unexpected getFaucetStats response")
	}

	stats := FaucetStats{}
	var ok bool
	var v *big.Int

	if v, ok = outputs[0].(*big.Int); !ok {
		return FaucetStats{}, errors.New("failed to decode distributed total")
	}
	stats.Distributed = decimal.NewFromBigInt(v, 0)

	if v, ok = outputs[1].(*big.Int); !ok {
		return FaucetStats{}, errors.New("failed to decode remaining supply")
	}
	stats.Remaining = decimal.NewFromBigInt(v, 0)

	if v, ok = outputs[2].(*big.Int); !ok {
		return FaucetStats{}, errors.New("failed to decode unique users")
	}
	stats.UniqueUsers = v.Uint64()

	return stats, nil
}

// Approve grants the vault an allowance of amount token units and waits
// for confirmation. Must complete before createPosition is submitted.
func (c *EVMClient) Approve(ctx context.Context, amount decimal.Decimal) error {
	if c.token == (common.Address{}) {
		return errors.New("token contract address not configured")
	}
	payload, err := erc20ABI.Pack("approve", c.vault, amount.BigInt())
	if err != nil {
		return err
	}
	_, err = c.transact(ctx, "approve", c.token, payload)
	return err
}

// CreatePosition opens a new time-locked deposit and returns its id.
func (c *EVMClient) CreatePosition(ctx context.Context, amount decimal.Decimal, planID uint32) (uint64, error) {
	payload, err := vaultABI.Pack("createPosition", amount.BigInt(), planID)
	if err != nil {
		return 0, err
	}

	receipt, err := c.transact(ctx, "createPosition", c.vault, payload)
	if err != nil {
		return 0, err
	}

	return c.positionIDFromReceipt(receipt)
}

// Withdraw pays out a matured position.
func (c *EVMClient) Withdraw(ctx context.Context, id uint64) error {
	payload, err := vaultABI.Pack("withdraw", new(big.Int).SetUint64(id))
	if err != nil {
		return err
	}
	_, err = c.transact(ctx, "withdraw", c.vault, payload)
	return err
}

// EmergencyWithdraw exits a position before maturity, paying the penalty.
func (c *EVMClient) EmergencyWithdraw(ctx context.Context, id uint64) error {
	payload, err := vaultABI.Pack("emergencyWithdraw", new(big.Int).SetUint64(id))
	if err != nil {
		return err
	}
	_, err = c.transact(ctx, "emergencyWithdraw", c.vault, payload)
	return err
}

// ClaimFaucet requests the fixed faucet grant. The cooldown check-and-set
// happens atomically inside the contract.
func (c *EVMClient) ClaimFaucet(ctx context.Context) error {
	payload, err := vaultABI.Pack("claimFaucet")
	if err != nil {
		return err
	}
	_, err = c.transact(ctx, "claimFaucet", c.vault, payload)
	return err
}

func (c *EVMClient) transact(ctx context.Context, op string, to common.Address, payload []byte) (*types.Receipt, error) {
	if c.key == nil {
		return nil, fmt.Errorf("%s: no signing key configured", op)
	}

	submissionID := uuid.NewString()

	tx, err := c.submit(ctx, op, to, payload)
	if err != nil {
		return nil, &SubmissionError{Op: op, Err: err}
	}

	c.logger.Info().
		Str("op", op).
		Str("submission_id", submissionID).
		Str("tx", tx.Hash().Hex()).
		Msg("transaction submitted")

	return c.waitConfirmed(ctx, op, submissionID, tx)
}

func (c *EVMClient) submit(ctx context.Context, op string, to common.Address, payload []byte) (*types.Transaction, error) {
	ctx, cancel := c.requestCtx(ctx)
	defer cancel()

	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	nonce, err := client.PendingNonceAt(ctx, c.owner)
	if err != nil {
		return nil, fmt.Errorf("fetch nonce: %w", err)
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}

	gasLimit := c.opts.GasLimit
	if gasLimit == 0 {
		gasLimit, err = client.EstimateGas(ctx, ethereum.CallMsg{From: c.owner, To: &to, Data: payload})
		if err != nil {
			return nil, fmt.Errorf("estimate gas for %s: %w", op, err)
		}
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     payload,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(c.opts.ChainID)), c.key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	if err := client.SendTransaction(ctx, signed); err != nil {
		return nil, err
	}
	return signed, nil
}

func (c *EVMClient) waitConfirmed(ctx context.Context, op, submissionID string, tx *types.Transaction) (*types.Receipt, error) {
	confirmTimeout := c.opts.ConfirmTimeout
	if confirmTimeout <= 0 {
		confirmTimeout = 2 * time.Minute
	}
	pollInterval := c.opts.ConfirmPollInterval
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}

	client, err := c.getClient(ctx)
	if err != nil {
		return nil, &ConfirmationTimeoutError{Op: op, TxHash: tx.Hash().Hex(), SubmissionID: submissionID}
	}

	deadline := time.Now().Add(confirmTimeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := client.TransactionReceipt(ctx, tx.Hash())
		if err == nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return nil, &RevertedError{
					Op:     op,
					TxHash: tx.Hash().Hex(),
					Reason: c.revertReason(ctx, tx, receipt),
				}
			}
			c.logger.Info().
				Str("op", op).
				Str("submission_id", submissionID).
				Uint64("block", receipt.BlockNumber.Uint64()).
				Msg("transaction confirmed")
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			c.logger.Warn().Err(err).Str("op", op).Msg("receipt poll failed")
		}

		if time.Now().After(deadline) {
			return nil, &ConfirmationTimeoutError{Op: op, TxHash: tx.Hash().Hex(), SubmissionID: submissionID}
		}

		select {
		case <-ctx.Done():
			// The transaction is already out; outcome unknown, not cancelled.
			return nil, &ConfirmationTimeoutError{Op: op, TxHash: tx.Hash().Hex(), SubmissionID: submissionID}
		case <-ticker.C:
		}
	}
}

// revertReason replays the failed call at its block to recover the
// contract's reason string. Best effort.
func (c *EVMClient) revertReason(ctx context.Context, tx *types.Transaction, receipt *types.Receipt) string {
	ctx, cancel := c.requestCtx(ctx)
	defer cancel()

	client, err := c.getClient(ctx)
	if err != nil {
		return ""
	}

	msg := ethereum.CallMsg{From: c.owner, To: tx.To(), Data: tx.Data(), Gas: tx.Gas(), GasPrice: tx.GasPrice(), Value: tx.Value()}
	_, err = client.CallContract(ctx, msg, receipt.BlockNumber)
	if err == nil {
		return ""
	}

	reason := err.Error()
	if idx := strings.Index(reason, "execution reverted"); idx >= 0 {
		reason = strings.TrimSpace(strings.TrimPrefix(reason[idx:], "execution reverted"))
		reason = strings.TrimSpace(strings.TrimPrefix(reason, ":"))
	}
	return reason
}

func (c *EVMClient) positionIDFromReceipt(receipt *types.Receipt) (uint64, error) {
	event := vaultABI.Events["PositionCreated"]
	for _, log := range receipt.Logs {
		if log.Address != c.vault || len(log.Topics) == 0 || log.Topics[0] != event.ID {
			continue
		}
		outputs, err := vaultABI.Unpack("PositionCreated", log.Data)
		if err != nil {
			return 0, fmt.Errorf("decode PositionCreated event: %w", err)
		}
		if len(outputs) != 1 {
			return 0, errors.New("unexpected PositionCreated payload")
		}
		id, ok := outputs[0].(*big.Int)
		if !ok {
			return 0, errors.New("failed to decode created position id")
		}
		return id.Uint64(), nil
	}
	return 0, errors.New("PositionCreated event not found in receipt")
}

var _ Client = (*EVMClient)(nil)
