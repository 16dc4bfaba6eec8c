package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"hot-swap-bot-go/internal/config"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const routerABI = `[
 {"name":"getAmountsOut","type":"function","stateMutability":"view",
  "inputs":[{"name":"amountIn","type":"uint256"},{"name":"path","type":"address[]"}],
  "outputs":[{"name":"amounts","type":"uint256[]"}]},
 {"name":"swapExactETHForTokens","type":"function","stateMutability":"payable",
  "inputs":[{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],
  "outputs":[{"name":"amounts","type":"uint256[]"}]},
 {"name":"swapExactTokensForETH","type":"function","stateMutability":"nonpayable",
  "inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],
  "outputs":[{"name":"amounts","type":"uint256[]"}]}
]`

const erc20ABI = `[
 {"name":"decimals","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
 {"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

// Client is the go-ethereum backed ExchangeClient.
type Client struct {
	eth     *ethclient.Client
	chainID *big.Int
	logger  *zap.Logger
	keys    KeySource

	router        *bind.BoundContract
	routerAddress common.Address
	wrapped       common.Address
	erc20         abi.ABI

	gasLimit        uint64
	approveGasLimit uint64

	mu       sync.RWMutex
	decimals map[common.Address]int32
}

var _ ExchangeClient = (*Client)(nil)

// NewClient dials the RPC endpoint and binds the router contract.
func NewClient(ctx context.Context, cfg *config.Chain, keys KeySource, logger *zap.Logger) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc: %w", err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}

	rABI, err := abi.JSON(strings.NewReader(routerABI))
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("failed to parse router abi: %w", err)
	}
	tABI, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("failed to parse erc20 abi: %w", err)
	}

	routerAddress := common.HexToAddress(cfg.RouterAddress)
	wrapped := common.HexToAddress(cfg.WrappedNativeAddress)

	logger.Info("Connected to chain",
		zap.String("chain_id", chainID.String()),
		zap.String("router", routerAddress.Hex()))

	return &Client{
		eth:             eth,
		chainID:         chainID,
		logger:          logger.Named("chain"),
		keys:            keys,
		router:          bind.NewBoundContract(routerAddress, rABI, eth, eth, eth),
		routerAddress:   routerAddress,
		wrapped:         wrapped,
		erc20:           tABI,
		gasLimit:        cfg.GasLimit,
		approveGasLimit: cfg.ApproveGasLimit,
		decimals:        map[common.Address]int32{wrapped: NativeDecimals},
	}, nil
}

// Close releases the RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

func (c *Client) WrappedNative() string { return c.wrapped.Hex() }

// Quote calls getAmountsOut on the router.
func (c *Client) Quote(ctx context.Context, path []string, amountIn decimal.Decimal) (decimal.Decimal, error) {
	if len(path) < 2 {
		return decimal.Zero, fmt.Errorf("quote path needs at least two tokens")
	}
	addrs, err := toAddresses(path)
	if err != nil {
		return decimal.Zero, err
	}

	inDec, err := c.tokenDecimals(ctx, addrs[0])
	if err != nil {
		return decimal.Zero, err
	}
	outDec, err := c.tokenDecimals(ctx, addrs[len(addrs)-1])
	if err != nil {
		return decimal.Zero, err
	}

	var out []interface{}
	err = c.router.Call(&bind.CallOpts{Context: ctx}, &out, "getAmountsOut", ToBaseUnits(amountIn, inDec), addrs)
	if err != nil {
		return decimal.Zero, fmt.Errorf("getAmountsOut failed: %w", err)
	}
	amounts, ok := out[0].([]*big.Int)
	if !ok || len(amounts) != len(addrs) {
		return decimal.Zero, fmt.Errorf("unexpected getAmountsOut result")
	}
	return FromBaseUnits(amounts[len(amounts)-1], outDec), nil
}

// Swap signs and submits an exact-input swap and waits for it to be mined.
// Sells approve the router for the input amount first.
func (c *Client) Swap(ctx context.Context, req SwapRequest) (Receipt, error) {
	if !common.IsHexAddress(req.Token) || !common.IsHexAddress(req.Account) {
		return Receipt{}, fmt.Errorf("invalid token or account address")
	}
	token := common.HexToAddress(req.Token)
	account := common.HexToAddress(req.Account)

	auth, err := c.transactor(ctx, account)
	if err != nil {
		return Receipt{}, err
	}

	tokenDec, err := c.tokenDecimals(ctx, token)
	if err != nil {
		return Receipt{}, err
	}
	deadline := big.NewInt(req.Deadline.Unix())
	log := c.logger.With(zap.String("account", account.Hex()), zap.String("token", token.Hex()), zap.String("direction", string(req.Direction)))

	var tx *types.Transaction
	switch req.Direction {
	case DirectionBuy:
		auth.Value = ToBaseUnits(req.AmountIn, NativeDecimals)
		auth.GasLimit = c.gasLimit
		tx, err = c.router.Transact(auth, "swapExactETHForTokens",
			ToBaseUnits(req.MinAmountOut, tokenDec),
			[]common.Address{c.wrapped, token},
			account,
			deadline)
	case DirectionSell:
		amountIn := ToBaseUnits(req.AmountIn, tokenDec)
		if err := c.approve(ctx, auth, token, amountIn); err != nil {
			return Receipt{}, err
		}
		auth.GasLimit = c.gasLimit
		tx, err = c.router.Transact(auth, "swapExactTokensForETH",
			amountIn,
			ToBaseUnits(req.MinAmountOut, NativeDecimals),
			[]common.Address{token, c.wrapped},
			account,
			deadline)
	default:
		return Receipt{}, fmt.Errorf("unknown swap direction %q", req.Direction)
	}
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to submit swap: %w", err)
	}

	log.Info("Swap submitted", zap.String("tx", tx.Hash().Hex()))
	receipt, err := c.waitMined(ctx, tx)
	if err != nil {
		return Receipt{}, err
	}
	log.Info("Swap confirmed", zap.String("tx", receipt.TxHash), zap.Uint64("block", receipt.BlockNumber))
	return receipt, nil
}

func (c *Client) approve(ctx context.Context, auth *bind.TransactOpts, token common.Address, amount *big.Int) error {
	contract := bind.NewBoundContract(token, c.erc20, c.eth, c.eth, c.eth)
	auth.GasLimit = c.approveGasLimit
	tx, err := contract.Transact(auth, "approve", c.routerAddress, amount)
	if err != nil {
		return fmt.Errorf("failed to submit approve: %w", err)
	}
	if _, err := c.waitMined(ctx, tx); err != nil {
		return fmt.Errorf("approve: %w", err)
	}
	return nil
}

func (c *Client) waitMined(ctx context.Context, tx *types.Transaction) (Receipt, error) {
	r, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		return Receipt{}, fmt.Errorf("failed waiting for %s: %w", tx.Hash().Hex(), err)
	}
	if r.Status != types.ReceiptStatusSuccessful {
		return Receipt{}, fmt.Errorf("transaction %s reverted", tx.Hash().Hex())
	}
	var block uint64
	if r.BlockNumber != nil {
		block = r.BlockNumber.Uint64()
	}
	return Receipt{TxHash: r.TxHash.Hex(), BlockNumber: block, GasUsed: r.GasUsed}, nil
}

func (c *Client) transactor(ctx context.Context, account common.Address) (*bind.TransactOpts, error) {
	hexKey, err := c.keys.PrivateKey(ctx, account.Hex())
	if err != nil {
		return nil, err
	}
	pk, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key for %s: %w", account.Hex(), err)
	}
	if crypto.PubkeyToAddress(pk.PublicKey) != account {
		return nil, fmt.Errorf("private key does not match account %s", account.Hex())
	}
	auth, err := bind.NewKeyedTransactorWithChainID(pk, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	auth.Context = ctx
	return auth, nil
}

// BalanceOf returns the account's token balance in whole units.
func (c *Client) BalanceOf(ctx context.Context, account, token string) (decimal.Decimal, error) {
	if !common.IsHexAddress(token) || !common.IsHexAddress(account) {
		return decimal.Zero, fmt.Errorf("invalid token or account address")
	}
	tokenAddr := common.HexToAddress(token)
	dec, err := c.tokenDecimals(ctx, tokenAddr)
	if err != nil {
		return decimal.Zero, err
	}

	contract := bind.NewBoundContract(tokenAddr, c.erc20, c.eth, c.eth, c.eth)
	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", common.HexToAddress(account)); err != nil {
		return decimal.Zero, fmt.Errorf("balanceOf failed: %w", err)
	}
	bal, ok := out[0].(*big.Int)
	if !ok {
		return decimal.Zero, fmt.Errorf("unexpected balanceOf result")
	}
	return FromBaseUnits(bal, dec), nil
}

// NativeBalance returns the account's native balance in whole units.
func (c *Client) NativeBalance(ctx context.Context, account string) (decimal.Decimal, error) {
	if !common.IsHexAddress(account) {
		return decimal.Zero, fmt.Errorf("invalid account address %q", account)
	}
	bal, err := c.eth.BalanceAt(ctx, common.HexToAddress(account), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}
	return FromBaseUnits(bal, NativeDecimals), nil
}

func (c *Client) tokenDecimals(ctx context.Context, token common.Address) (int32, error) {
	c.mu.RLock()
	dec, ok := c.decimals[token]
	c.mu.RUnlock()
	if ok {
		return dec, nil
	}

	contract := bind.NewBoundContract(token, c.erc20, c.eth, c.eth, c.eth)
	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "decimals"); err != nil {
		return 0, fmt.Errorf("decimals failed for %s: %w", token.Hex(), err)
	}
	d, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals result for %s", token.Hex())
	}

	c.mu.Lock()
	c.decimals[token] = int32(d)
	c.mu.Unlock()
	return int32(d), nil
}
