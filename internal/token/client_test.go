package token

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/darkmine-backend/internal/config"
	"github.com/darkmine-backend/internal/domain"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(&config.MintConfig{
		Endpoint:       srv.URL,
		AuthorityToken: "test-authority",
		RequestTimeout: 2 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClientMint(t *testing.T) {
	var gotAuth string
	var gotReq domain.IssuanceRequest

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.WriteHeader(http.StatusOK)
	})

	req, err := domain.NewIssuanceRequest("alice", 4)
	require.NoError(t, err)

	require.NoError(t, client.Mint(context.Background(), req))
	require.Equal(t, "Bearer test-authority", gotAuth)
	require.Equal(t, "alice", gotReq.Recipient)
	require.Equal(t, uint64(4*domain.DiamondUnitScale), gotReq.UnitAmount)
}

func TestClientMintRejected(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	req, err := domain.NewIssuanceRequest("alice", 1)
	require.NoError(t, err)

	err = client.Mint(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrIssuanceFailed)
}

func TestClientMintUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(&config.MintConfig{
		Endpoint:       srv.URL,
		AuthorityToken: "test-authority",
		RequestTimeout: time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	req, err := domain.NewIssuanceRequest("alice", 1)
	require.NoError(t, err)

	err = client.Mint(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrIssuanceFailed)
}

func TestStaticMinterRecords(t *testing.T) {
	static := NewStatic()

	req, err := domain.NewIssuanceRequest("bob", 3)
	require.NoError(t, err)

	require.NoError(t, static.Mint(context.Background(), req))
	require.NoError(t, static.Mint(context.Background(), req))
	require.Equal(t, uint64(6*domain.DiamondUnitScale), static.Minted("bob"))

	static.FailWith = domain.ErrIssuanceFailed
	require.ErrorIs(t, static.Mint(context.Background(), req), domain.ErrIssuanceFailed)
	require.Equal(t, uint64(6*domain.DiamondUnitScale), static.Minted("bob"))
}
