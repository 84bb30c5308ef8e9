package handler

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"medfund/internal/walletauth/service"
	"medfund/internal/walletauth/signature"
	challengestore "medfund/internal/walletauth/store/challenge"
	"medfund/internal/walletauth/token"
	id "medfund/pkg/domain"
	dErrors "medfund/pkg/domain-errors"
	"medfund/pkg/testutil"
)

// The handler test runs the real challenge flow end to end: memory store,
// Ed25519 verifier, and JWT token manager, with no identity registry wired.
type WalletAuthHandlerSuite struct {
	suite.Suite
	router chi.Router
	tokens *token.Manager
	priv   ed25519.PrivateKey
	wallet id.WalletAddress
}

func TestWalletAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(WalletAuthHandlerSuite))
}

func (s *WalletAuthHandlerSuite) SetupTest() {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	s.Require().NoError(err)
	s.priv = priv
	s.wallet = signature.DeriveAddress(pub)

	store := challengestore.NewInMemory()
	svc := service.New(store, signature.NewVerifier(), nil, 5*time.Minute)
	s.tokens = token.NewManager("test-signing-key", time.Hour)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(svc, s.tokens, time.Hour, logger, nil)
	s.router = chi.NewRouter()
	h.Register(s.router)
}

type challengeBody struct {
	WalletAddress string    `json:"wallet_address"`
	Nonce         string    `json:"nonce"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type verifyBody struct {
	Token         string `json:"token"`
	WalletAddress string `json:"wallet_address"`
	IdentityKind  string `json:"identity_kind"`
}

func (s *WalletAuthHandlerSuite) issueChallenge() challengeBody {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/challenge", map[string]string{
		"wallet_address": s.wallet.String(),
	})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	return *testutil.UnmarshalResponse[challengeBody](s.T(), rr)
}

func (s *WalletAuthHandlerSuite) verify(wallet, proof string) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/verify", map[string]string{
		"wallet_address": wallet,
		"proof":          proof,
	})
	return testutil.DoRequest(s.router, req)
}

func (s *WalletAuthHandlerSuite) signedProof(nonceB64 string) string {
	nonce, err := base64.StdEncoding.DecodeString(nonceB64)
	s.Require().NoError(err)
	return base64.StdEncoding.EncodeToString(signature.SignNonce(s.priv, nonce))
}

func (s *WalletAuthHandlerSuite) TestIssueChallenge() {
	s.Run("returns a fresh nonce for the wallet", func() {
		ch := s.issueChallenge()
		s.Equal(s.wallet.String(), ch.WalletAddress)
		s.NotEmpty(ch.Nonce)
		s.False(ch.ExpiresAt.IsZero())
	})

	s.Run("rejects a malformed address", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/challenge", map[string]string{
			"wallet_address": "not-an-address",
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeInvalidInput))
	})
}

func (s *WalletAuthHandlerSuite) TestVerify() {
	s.Run("valid proof yields a working session token", func() {
		ch := s.issueChallenge()
		rr := s.verify(s.wallet.String(), s.signedProof(ch.Nonce))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)

		resp := testutil.UnmarshalResponse[verifyBody](s.T(), rr)
		s.Equal(s.wallet.String(), resp.WalletAddress)
		s.Equal("donor", resp.IdentityKind)

		claims, err := s.tokens.ValidateToken(resp.Token)
		s.Require().NoError(err)
		s.Equal(s.wallet, claims.Wallet)
	})

	s.Run("a challenge is single use", func() {
		ch := s.issueChallenge()
		proof := s.signedProof(ch.Nonce)

		rr := s.verify(s.wallet.String(), proof)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)

		rr = s.verify(s.wallet.String(), proof)
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
		testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeUnauthorized))
	})

	s.Run("wrong key burns the challenge", func() {
		ch := s.issueChallenge()
		_, otherPriv, err := ed25519.GenerateKey(rand.Reader)
		s.Require().NoError(err)
		nonce, err := base64.StdEncoding.DecodeString(ch.Nonce)
		s.Require().NoError(err)
		forged := base64.StdEncoding.EncodeToString(signature.SignNonce(otherPriv, nonce))

		rr := s.verify(s.wallet.String(), forged)
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)

		// The real proof no longer works either.
		rr = s.verify(s.wallet.String(), s.signedProof(ch.Nonce))
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})

	s.Run("proof must be base64", func() {
		rr := s.verify(s.wallet.String(), "%%%not-base64%%%")
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeBadRequest))
	})

	s.Run("verify without a prior challenge is unauthorized", func() {
		proof := base64.StdEncoding.EncodeToString(signature.SignNonce(s.priv, []byte("stale")))
		rr := s.verify(s.wallet.String(), proof)
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})
}
