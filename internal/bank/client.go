/*

This file contains the chain-facing bank client. The engine's accounting is
authoritative off-chain state, but escrow deposits are only accepted once the
on-chain escrow account actually holds them; this client performs that
verification through the node's bank query service.

*/

package bank

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/insuredfi/rewardengine/internal/logger"
	"github.com/insuredfi/rewardengine/internal/types"
)

const queryTimeout = 15 * time.Second

// Dial opens a gRPC connection to the node, selecting TLS when the endpoint
// is a :443 host.
func Dial(endpoint string) (*grpc.ClientConn, error) {
	var creds grpc.DialOption
	if strings.Contains(endpoint, ":443") {
		creds = grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{}))
	} else {
		creds = grpc.WithTransportCredentials(insecure.NewCredentials())
	}
	conn, err := grpc.Dial(endpoint, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to dial node gRPC at %s: %w", endpoint, err)
	}
	return conn, nil
}

// Client verifies escrow funding against on-chain balances.
type Client struct {
	logger     zerolog.Logger
	conn       *grpc.ClientConn
	query      banktypes.QueryClient
	escrowAddr string
}

func NewClient(conn *grpc.ClientConn, escrowAddr string) (*Client, error) {
	if conn == nil {
		return nil, fmt.Errorf("gRPC connection cannot be nil")
	}
	if escrowAddr == "" {
		return nil, fmt.Errorf("escrow address cannot be empty")
	}
	return &Client{
		logger:     logger.GetForComponent("bank_client"),
		conn:       conn,
		query:      banktypes.NewQueryClient(conn),
		escrowAddr: escrowAddr,
	}, nil
}

// EscrowBalance returns the escrow account's on-chain balance for denom.
func (c *Client) EscrowBalance(ctx context.Context, denom string) (sdkmath.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	resp, err := c.query.Balance(ctx, &banktypes.QueryBalanceRequest{
		Address: c.escrowAddr,
		Denom:   denom,
	})
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("failed to query escrow balance for %s: %w", denom, err)
	}
	if resp.Balance == nil {
		return sdkmath.ZeroInt(), nil
	}
	return resp.Balance.Amount, nil
}

// VerifyFunding fails with ErrInsufficientEscrow unless the on-chain escrow
// balance covers the required amount.
func (c *Client) VerifyFunding(ctx context.Context, denom string, required sdkmath.Int) error {
	balance, err := c.EscrowBalance(ctx, denom)
	if err != nil {
		return err
	}
	if balance.LT(required) {
		return fmt.Errorf("%w: on-chain balance %s < required %s for %s",
			types.ErrInsufficientEscrow, balance.String(), required.String(), denom)
	}

	c.logger.Debug().
		Str("denom", denom).
		Str("balance", balance.String()).
		Str("required", required.String()).
		Msg("Escrow funding verified on-chain")
	return nil
}
