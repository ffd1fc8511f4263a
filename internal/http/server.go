// Package http exposes the JSON API for transactions, bills, imports and
// statistics.
package http

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/stats"
	"fintrack/internal/storage"
)

// TransactionAPI is the transaction surface the handlers need.
type TransactionAPI interface {
	Create(ctx context.Context, req services.CreateTransactionRequest) (core.Transaction, error)
	Get(ctx context.Context, id int64) (core.Transaction, error)
	List(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error)
	Update(ctx context.Context, id int64, p storage.TransactionPatch) (core.Transaction, error)
	Delete(ctx context.Context, id int64) error
	SuggestCategory(ctx context.Context, description string, isFixed bool, txType core.TransactionType) string
}

// BillAPI is the bill surface the handlers need.
type BillAPI interface {
	Create(ctx context.Context, req services.CreateBillRequest) (core.Bill, error)
	Get(ctx context.Context, id int64) (core.Bill, error)
	List(ctx context.Context, f storage.BillFilter) ([]core.Bill, error)
	Update(ctx context.Context, id int64, p storage.BillPatch) (core.Bill, error)
}

// ImportAPI ingests CSV streams.
type ImportAPI interface {
	ImportCSV(ctx context.Context, r io.Reader) (services.ImportResult, error)
}

// ExportAPI writes CSV streams.
type ExportAPI interface {
	ExportCSV(ctx context.Context, w io.Writer, f storage.TransactionFilter) (int, error)
}

// Deps bundles everything the server serves.
type Deps struct {
	Transactions TransactionAPI
	Bills        BillAPI
	Importer     ImportAPI
	Exporter     ExportAPI
}

type Server struct {
	http.Server

	transactions TransactionAPI
	bills        BillAPI
	importer     ImportAPI
	exporter     ExportAPI
	aggregator   *stats.Aggregator

	rateLimiter *rateLimiter

	// Statistics responses are cached briefly; any write clears both caches.
	statsCache  *cache.LRUCache[summaryJSON]
	budgetCache *cache.LRUCache[budgetJSON]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		transactions: deps.Transactions,
		bills:        deps.Bills,
		importer:     deps.Importer,
		exporter:     deps.Exporter,
		aggregator:   stats.NewAggregator(),
		rateLimiter:  newRateLimiter(60),

		statsCache:       cache.NewLRUCache[summaryJSON](100, 5*time.Minute),
		budgetCache:      cache.NewLRUCache[budgetJSON](100, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/transactions", s.withMiddleware(s.handleTransactions))
	mux.HandleFunc("/transactions/import", s.withMiddleware(s.handleImport))
	mux.HandleFunc("/transactions/export", s.withMiddleware(s.handleExport))
	mux.HandleFunc("/transactions/", s.withMiddleware(s.handleTransactionByID))

	mux.HandleFunc("/bills", s.withMiddleware(s.handleBills))
	mux.HandleFunc("/bills/", s.withMiddleware(s.handleBillByID))

	mux.HandleFunc("/categorize", s.withMiddleware(s.handleCategorize))

	mux.HandleFunc("/statistics/monthly", s.withMiddleware(s.handleMonthlyStats))
	mux.HandleFunc("/statistics/category", s.withMiddleware(s.handleCategoryStats))
	mux.HandleFunc("/statistics/budget", s.withMiddleware(s.handleBudget))

	return s
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// startCacheCleanup periodically drops expired statistics entries.
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.statsCache.CleanExpired()
			s.budgetCache.CleanExpired()
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// invalidateStats clears cached statistics after any write.
func (s *Server) invalidateStats() {
	s.statsCache.Clear()
	s.budgetCache.Clear()
}

// Shutdown stops the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
