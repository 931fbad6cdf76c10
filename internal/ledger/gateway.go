package ledger

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hyperledger/fabric-gateway/pkg/client"
	"github.com/hyperledger/fabric-gateway/pkg/identity"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/config"
)

// Gateway is a Submitter backed by a Fabric Gateway peer connection.
type Gateway struct {
	conn     *grpc.ClientConn
	gw       *client.Gateway
	contract *client.Contract
}

var _ Submitter = (*Gateway)(nil)

// Connect dials the gateway peer and binds the configured channel and
// chaincode. Close must be called when the gateway is no longer needed.
func Connect(cfg config.FabricConfig) (*Gateway, error) {
	certPEM, err := os.ReadFile(cfg.CertPath)
	if err != nil {
		return nil, fmt.Errorf("read client certificate: %w", err)
	}
	cert, err := identity.CertificateFromPEM(certPEM)
	if err != nil {
		return nil, fmt.Errorf("parse client certificate: %w", err)
	}
	id, err := identity.NewX509Identity(cfg.MSPID, cert)
	if err != nil {
		return nil, fmt.Errorf("build identity: %w", err)
	}

	keyPEM, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	key, err := identity.PrivateKeyFromPEM(keyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	sign, err := identity.NewPrivateKeySign(key)
	if err != nil {
		return nil, fmt.Errorf("build signer: %w", err)
	}

	conn, err := dialPeer(cfg)
	if err != nil {
		return nil, err
	}

	gw, err := client.Connect(
		id,
		client.WithSign(sign),
		client.WithClientConnection(conn),
		client.WithEvaluateTimeout(5*time.Second),
		client.WithEndorseTimeout(15*time.Second),
		client.WithSubmitTimeout(5*time.Second),
		client.WithCommitStatusTimeout(time.Minute),
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("connect gateway: %w", err)
	}

	contract := gw.GetNetwork(cfg.Channel).GetContract(cfg.Chaincode)

	return &Gateway{conn: conn, gw: gw, contract: contract}, nil
}

func dialPeer(cfg config.FabricConfig) (*grpc.ClientConn, error) {
	tlsPEM, err := os.ReadFile(cfg.TLSCertPath)
	if err != nil {
		return nil, fmt.Errorf("read peer TLS certificate: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(tlsPEM) {
		return nil, fmt.Errorf("no certificates in %s", cfg.TLSCertPath)
	}
	creds := credentials.NewClientTLSFromCert(pool, cfg.GatewayPeer)

	conn, err := grpc.NewClient(cfg.PeerEndpoint, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("dial peer %s: %w", cfg.PeerEndpoint, err)
	}
	return conn, nil
}

// Submit endorses, submits, and waits for commit of a chaincode
// transaction. Errors carry the phase they occurred in; failed
// transactions are never resubmitted here.
func (g *Gateway) Submit(ctx context.Context, name string, args ...string) ([]byte, string, error) {
	proposal, err := g.contract.NewProposal(name, client.WithArguments(args...))
	if err != nil {
		return nil, "", &TransactionError{Stage: StageEndorse, Err: err}
	}

	txn, err := proposal.EndorseWithContext(ctx)
	if err != nil {
		return nil, "", classify(err, proposal.TransactionID())
	}

	commit, err := txn.SubmitWithContext(ctx)
	if err != nil {
		return nil, "", classify(err, txn.TransactionID())
	}

	st, err := commit.StatusWithContext(ctx)
	if err != nil {
		return nil, "", classify(err, commit.TransactionID())
	}
	if !st.Successful {
		return nil, "", &TransactionError{
			Stage: StageCommit,
			TxID:  st.TransactionID,
			Err:   fmt.Errorf("transaction invalidated with code %d (%s)", int32(st.Code), st.Code),
		}
	}

	return txn.Result(), st.TransactionID, nil
}

// Evaluate runs a read-only chaincode query.
func (g *Gateway) Evaluate(ctx context.Context, name string, args ...string) ([]byte, error) {
	proposal, err := g.contract.NewProposal(name, client.WithArguments(args...))
	if err != nil {
		return nil, &TransactionError{Stage: StageEndorse, Err: err}
	}
	payload, err := proposal.EvaluateWithContext(ctx)
	if err != nil {
		return nil, classify(err, proposal.TransactionID())
	}
	return payload, nil
}

// Close releases the gateway and its peer connection.
func (g *Gateway) Close() error {
	g.gw.Close()
	return g.conn.Close()
}

func classify(err error, txID string) error {
	var endorseErr *client.EndorseError
	if errors.As(err, &endorseErr) {
		return &TransactionError{Stage: StageEndorse, TxID: endorseErr.TransactionID, Err: err}
	}
	var submitErr *client.SubmitError
	if errors.As(err, &submitErr) {
		return &TransactionError{Stage: StageSubmit, TxID: submitErr.TransactionID, Err: err}
	}
	var statusErr *client.CommitStatusError
	if errors.As(err, &statusErr) {
		return &TransactionError{Stage: StageCommit, TxID: statusErr.TransactionID, Err: err}
	}
	var commitErr *client.CommitError
	if errors.As(err, &commitErr) {
		return &TransactionError{Stage: StageCommit, TxID: commitErr.TransactionID, Err: err}
	}
	return &TransactionError{Stage: StageSubmit, TxID: txID, Err: err}
}
