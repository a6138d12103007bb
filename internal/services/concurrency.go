package services

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ShopConcurrencyConfig defines concurrency limits per shop
type ShopConcurrencyConfig struct {
	MaxConcurrentJobs int           // Max concurrent campaigns/syncs per shop
	QueueTimeout      time.Duration // Max time to wait for a slot
}

// DefaultShopConcurrencyConfig returns production defaults
func DefaultShopConcurrencyConfig() *ShopConcurrencyConfig {
	return &ShopConcurrencyConfig{
		MaxConcurrentJobs: 2,
		QueueTimeout:      30 * time.Second,
	}
}

// ShopSemaphore bounds the number of campaign and sync jobs running
// concurrently against one shop's Admin API.
type ShopSemaphore struct {
	mu         sync.RWMutex
	shopSems   map[string]chan struct{}
	activeJobs map[string]int
	config     *ShopConcurrencyConfig
}

// NewShopSemaphore creates a new shop semaphore manager
func NewShopSemaphore(config *ShopConcurrencyConfig) *ShopSemaphore {
	if config == nil {
		config = DefaultShopConcurrencyConfig()
	}
	return &ShopSemaphore{
		shopSems:   make(map[string]chan struct{}),
		activeJobs: make(map[string]int),
		config:     config,
	}
}

func (s *ShopSemaphore) getOrCreateSem(shopDomain string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sem, exists := s.shopSems[shopDomain]; exists {
		return sem
	}
	sem := make(chan struct{}, s.config.MaxConcurrentJobs)
	s.shopSems[shopDomain] = sem
	return sem
}

// Acquire blocks until the shop has a free job slot or the queue timeout
// elapses. The returned release function must be called when the job ends.
func (s *ShopSemaphore) Acquire(ctx context.Context, shopDomain string) (func(), error) {
	queueCtx, cancel := context.WithTimeout(ctx, s.config.QueueTimeout)
	defer cancel()

	sem := s.getOrCreateSem(shopDomain)
	select {
	case sem <- struct{}{}:
	case <-queueCtx.Done():
		return nil, fmt.Errorf("timeout waiting for job slot: shop=%s", shopDomain)
	}

	s.mu.Lock()
	s.activeJobs[shopDomain]++
	s.mu.Unlock()

	release := func() {
		s.mu.Lock()
		s.activeJobs[shopDomain]--
		s.mu.Unlock()
		<-sem
	}
	return release, nil
}

// ActiveJobs returns the number of running jobs for a shop
func (s *ShopSemaphore) ActiveJobs(shopDomain string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeJobs[shopDomain]
}

// Stats returns concurrency statistics for the readiness endpoint
func (s *ShopSemaphore) Stats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	perShop := make(map[string]int)
	for shop, count := range s.activeJobs {
		if count > 0 {
			perShop[shop] = count
		}
	}
	return map[string]interface{}{
		"maxConcurrentJobs": s.config.MaxConcurrentJobs,
		"queueTimeout":      s.config.QueueTimeout.String(),
		"activeJobsByShop":  perShop,
		"totalShops":        len(s.shopSems),
	}
}
