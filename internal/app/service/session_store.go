package service

import (
	"fmt"
	"time"

	"contract_deployer/internal/app/port"
	"contract_deployer/internal/domain/entity"
	"contract_deployer/internal/pkg/metrics"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// Session bundles the per-user coordinator and controller.
type Session struct {
	ID          string
	CreatedAt   time.Time
	Coordinator *NetworkCoordinator
	Controller  *DeploymentController
}

// SessionStore keeps sessions in memory with a sliding TTL. Nothing is persisted.
type SessionStore struct {
	registry port.NetworkRegistry
	wallet   port.Wallet
	logger   port.Logger
	ttl      time.Duration
	sessions *gocache.Cache
}

// NewSessionStore creates a store whose idle sessions expire after ttl.
func NewSessionStore(registry port.NetworkRegistry, wallet port.Wallet, logger port.Logger, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	cache := gocache.New(ttl, ttl/2)
	cache.OnEvicted(func(id string, _ interface{}) {
		metrics.ActiveSessions.Dec()
		logger.Debug("Session evicted", "session_id", id)
	})
	return &SessionStore{
		registry: registry,
		wallet:   wallet,
		logger:   logger,
		ttl:      ttl,
		sessions: cache,
	}
}

// Create starts a session. A non-empty networkKey preselects that network.
func (s *SessionStore) Create(networkKey string) (*Session, error) {
	coordinator, err := NewNetworkCoordinator(s.registry, s.wallet, s.logger)
	if err != nil {
		return nil, err
	}
	if networkKey != "" {
		if _, err := coordinator.SelectNetworkByKey(networkKey); err != nil {
			return nil, err
		}
	}

	session := &Session{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		Coordinator: coordinator,
		Controller:  NewDeploymentController(coordinator, s.wallet, s.logger),
	}
	if err := s.sessions.Add(session.ID, session, gocache.DefaultExpiration); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	metrics.ActiveSessions.Inc()
	s.logger.Info("Session created", "session_id", session.ID, "network", coordinator.SelectedNetwork().Key)
	return session, nil
}

// Get returns a live session and extends its TTL.
func (s *SessionStore) Get(id string) (*Session, bool) {
	v, ok := s.sessions.Get(id)
	if !ok {
		return nil, false
	}
	session := v.(*Session)
	s.sessions.SetDefault(id, session)
	return session, true
}

// Delete drops a session.
func (s *SessionStore) Delete(id string) {
	s.sessions.Delete(id)
}

// Count returns the number of sessions held, including expired ones not yet cleaned up.
func (s *SessionStore) Count() int {
	return s.sessions.ItemCount()
}

// ObserveConnected reports a wallet chain to every session that already has a connected wallet.
// It returns the number of sessions updated.
func (s *SessionStore) ObserveConnected(chainID uint64) int {
	updated := 0
	for _, item := range s.sessions.Items() {
		session, ok := item.Object.(*Session)
		if !ok || !session.Coordinator.Snapshot().WalletConnected() {
			continue
		}
		session.Coordinator.ObserveWalletChain(&chainID)
		updated++
	}
	return updated
}

// DeploymentView is a deployment session with its explorer links resolved.
type DeploymentView struct {
	entity.DeploymentSession
	TransactionURL string `json:"transactionUrl,omitempty"`
	ContractURL    string `json:"contractUrl,omitempty"`
}

// NewDeploymentView attaches explorer links for the session's network.
func NewDeploymentView(registry port.NetworkRegistry, session entity.DeploymentSession) DeploymentView {
	view := DeploymentView{DeploymentSession: session}
	network, ok := registry.ByChainID(session.ChainID)
	if !ok {
		return view
	}
	if session.TransactionHash != "" {
		view.TransactionURL = network.TxURL(session.TransactionHash)
	}
	if session.ContractAddress != "" {
		view.ContractURL = network.AddressURL(session.ContractAddress)
	}
	return view
}
