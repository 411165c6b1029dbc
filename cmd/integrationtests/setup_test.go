package integrationtests

import (
	bidding "auction-ledger/internal/biddingService"
	"auction-ledger/internal/identity"
	"auction-ledger/internal/ledger"
	model "auction-ledger/internal/models"
	"auction-ledger/internal/notifier"
	"auction-ledger/internal/query"
	"auction-ledger/internal/repository"
	"auction-ledger/internal/server"
	"auction-ledger/internal/sweeper"
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// testClock is a settable clock shared by the ledger, queries and sweeper
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// TestEnv is a fully wired application over the in-memory store
type TestEnv struct {
	Router  *gin.Engine
	Sweeper *sweeper.Sweeper
	Clock   *testClock
	Inbox   *notifier.Inbox
}

// SetupTestRouter wires the whole stack with seeded users and starts notification delivery.
func SetupTestRouter(t *testing.T) *TestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepo()
	clock := &testClock{now: time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)}
	inbox := notifier.NewInbox(notifier.DefaultInboxSize)
	events := notifier.NewNotifier(inbox, 256)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = events.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	l := ledger.NewLedger(repo, clock)
	q := query.NewService(repo, clock)
	dir := identity.NewMemoryDirectory(
		model.Principal{UserID: "seller", Name: "Seller", Role: model.RoleUser},
		model.Principal{UserID: "alice", Name: "Alice", Role: model.RoleUser},
		model.Principal{UserID: "bob", Name: "Bob", Role: model.RoleUser},
		model.Principal{UserID: "admin", Name: "Admin", Role: model.RoleAdmin},
	)

	service := bidding.NewBiddingService(l, q, events, inbox)
	return &TestEnv{
		Router:  server.SetupRouter(service, dir),
		Sweeper: sweeper.NewSweeper(l, repo, events, time.Minute, 4),
		Clock:   clock,
		Inbox:   inbox,
	}
}

// ExecuteRequestAndParse executes an HTTP request as userID and parses the response envelope
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url, userID string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()
	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case string:
		reqBody = []byte(v)
	case []byte:
		reqBody = v
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(server.UserHeader, userID)
	}
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}
	return resp, w
}

// CreateAuction opens an auction through the API and returns its ID
func (e *TestEnv) CreateAuction(t *testing.T, sellerID, title string, minBid int, hours int) string {
	t.Helper()
	resp, w := ExecuteRequestAndParse(t, e.Router, "POST", "/auctions", sellerID, map[string]any{
		"title":          title,
		"category":       "test",
		"min_bid":        minBid,
		"duration_hours": hours,
	})
	if w.Code != 201 {
		t.Fatalf("create auction: status %d body %s", w.Code, w.Body.String())
	}
	return resp["data"].(map[string]any)["auction_id"].(string)
}
