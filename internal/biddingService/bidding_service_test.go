package bidding

import (
	"auction-ledger/internal/auctionerrors"
	"auction-ledger/internal/ledger"
	model "auction-ledger/internal/models"
	"auction-ledger/internal/notifier"
	"auction-ledger/internal/query"
	"auction-ledger/internal/repository"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

var (
	seller = model.Principal{UserID: "seller1", Name: "Sam", Role: model.RoleUser}
	alice  = model.Principal{UserID: "alice", Name: "Alice", Role: model.RoleUser}
	bob    = model.Principal{UserID: "bob", Name: "Bob", Role: model.RoleUser}
	admin  = model.Principal{UserID: "root", Name: "Admin", Role: model.RoleAdmin}
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type recordingNotifier struct {
	mu  sync.Mutex
	trs []model.Transition
}

func (r *recordingNotifier) Notify(tr model.Transition) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trs = append(r.trs, tr)
	return 1
}

func (r *recordingNotifier) transitions() []model.Transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Transition(nil), r.trs...)
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newService(store repository.AuctionStore) (*BiddingService, *recordingNotifier) {
	clock := fixedClock{baseTime}
	n := &recordingNotifier{}
	return NewBiddingService(ledger.NewLedger(store, clock), query.NewService(store, clock), n, nil), n
}

func activeAuction(current int64, bidder string) model.Auction {
	return model.Auction{
		AuctionID:       "auction1",
		SellerID:        seller.UserID,
		Title:           "Oil painting",
		MinBid:          dec(100),
		CurrentBid:      dec(current),
		CurrentBidderID: bidder,
		Status:          model.StatusActive,
		EndTime:         baseTime.Add(time.Hour),
		CreatedAt:       baseTime.Add(-time.Hour),
		Version:         3,
	}
}

// Tests PlaceBid
func TestBiddingService_PlaceBid(t *testing.T) {
	t.Parallel()

	expired := activeAuction(100, "")
	expired.EndTime = baseTime

	ended := activeAuction(150, "bob")
	ended.Status = model.StatusEnded

	moved := activeAuction(110, "bob")
	moved.Version = 4

	tests := []struct {
		name          string
		auctionID     string
		bidder        model.Principal
		amount        int64
		mockSetup     func(store *repository.MockAuctionStore)
		expectError   bool
		expectedError error
	}{
		{
			name:      "valid_first_bid",
			auctionID: "auction1",
			bidder:    alice,
			amount:    120,
			mockSetup: func(store *repository.MockAuctionStore) {
				store.EXPECT().GetAuction(gomock.Any(), "auction1").Return(activeAuction(100, ""), nil).Times(2)
				store.EXPECT().CompareAndSwap(gomock.Any(), int64(3), gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name:          "empty_auctionID",
			auctionID:     "",
			bidder:        alice,
			amount:        120,
			mockSetup:     func(*repository.MockAuctionStore) {},
			expectError:   true,
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:          "anonymous_bidder",
			auctionID:     "auction1",
			amount:        120,
			mockSetup:     func(*repository.MockAuctionStore) {},
			expectError:   true,
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:          "zero_amount",
			auctionID:     "auction1",
			bidder:        alice,
			amount:        0,
			mockSetup:     func(*repository.MockAuctionStore) {},
			expectError:   true,
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:          "negative_amount",
			auctionID:     "auction1",
			bidder:        alice,
			amount:        -50,
			mockSetup:     func(*repository.MockAuctionStore) {},
			expectError:   true,
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:      "unknown_auction",
			auctionID: "missing",
			bidder:    alice,
			amount:    120,
			mockSetup: func(store *repository.MockAuctionStore) {
				store.EXPECT().GetAuction(gomock.Any(), "missing").Return(model.Auction{}, auctionerrors.ErrAuctionNotFound)
			},
			expectError:   true,
			expectedError: auctionerrors.ErrAuctionNotFound,
		},
		{
			name:      "equal_to_current_bid",
			auctionID: "auction1",
			bidder:    alice,
			amount:    100,
			mockSetup: func(store *repository.MockAuctionStore) {
				store.EXPECT().GetAuction(gomock.Any(), "auction1").Return(activeAuction(100, ""), nil)
			},
			expectError:   true,
			expectedError: auctionerrors.ErrBidTooLow,
		},
		{
			name:      "seller_bids_on_own_auction",
			auctionID: "auction1",
			bidder:    seller,
			amount:    500,
			mockSetup: func(store *repository.MockAuctionStore) {
				store.EXPECT().GetAuction(gomock.Any(), "auction1").Return(activeAuction(100, ""), nil)
			},
			expectError:   true,
			expectedError: auctionerrors.ErrSelfBid,
		},
		{
			name:      "expired_before_sweep",
			auctionID: "auction1",
			bidder:    alice,
			amount:    500,
			mockSetup: func(store *repository.MockAuctionStore) {
				store.EXPECT().GetAuction(gomock.Any(), "auction1").Return(expired, nil)
			},
			expectError:   true,
			expectedError: auctionerrors.ErrAuctionExpired,
		},
		{
			name:      "auction_ended",
			auctionID: "auction1",
			bidder:    alice,
			amount:    500,
			mockSetup: func(store *repository.MockAuctionStore) {
				store.EXPECT().GetAuction(gomock.Any(), "auction1").Return(ended, nil)
			},
			expectError:   true,
			expectedError: auctionerrors.ErrAuctionNotActive,
		},
		{
			name:      "higher_bid_landed_after_read",
			auctionID: "auction1",
			bidder:    alice,
			amount:    120,
			mockSetup: func(store *repository.MockAuctionStore) {
				first := store.EXPECT().GetAuction(gomock.Any(), "auction1").Return(activeAuction(100, ""), nil)
				store.EXPECT().GetAuction(gomock.Any(), "auction1").Return(moved, nil).After(first)
			},
			expectError:   true,
			expectedError: auctionerrors.ErrStaleSnapshot,
		},
		{
			name:      "version_changed_at_write",
			auctionID: "auction1",
			bidder:    alice,
			amount:    120,
			mockSetup: func(store *repository.MockAuctionStore) {
				store.EXPECT().GetAuction(gomock.Any(), "auction1").Return(activeAuction(100, ""), nil).Times(2)
				store.EXPECT().CompareAndSwap(gomock.Any(), int64(3), gomock.Any(), gomock.Any()).
					Return(auctionerrors.ErrStaleSnapshot)
			},
			expectError:   true,
			expectedError: auctionerrors.ErrStaleSnapshot,
		},
		{
			name:      "repo_fails",
			auctionID: "auction1",
			bidder:    alice,
			amount:    120,
			mockSetup: func(store *repository.MockAuctionStore) {
				store.EXPECT().GetAuction(gomock.Any(), "auction1").Return(activeAuction(100, ""), nil).Times(2)
				store.EXPECT().CompareAndSwap(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("repo write failed"))
			},
			expectError:   true,
			expectedError: nil, // Service wraps repo error, we don’t match specific error here
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			store := repository.NewMockAuctionStore(ctrl)
			tc.mockSetup(store)
			service, notes := newService(store)

			bid, err := service.PlaceBid(context.Background(), tc.bidder, tc.auctionID, dec(tc.amount))

			if tc.expectError {
				require.Error(t, err)
				if tc.expectedError != nil {
					require.True(t, errors.Is(err, tc.expectedError), "expected error: %v, got: %v", tc.expectedError, err)
				}
				require.Empty(t, notes.transitions())
				return
			}

			require.NoError(t, err)
			_, parseErr := uuid.Parse(bid.BidID)
			require.NoError(t, parseErr, "BidID should be a valid UUID")
			require.Equal(t, tc.auctionID, bid.AuctionID)
			require.Equal(t, tc.bidder.UserID, bid.BidderID)
			require.True(t, dec(tc.amount).Equal(bid.Amount))
			require.Equal(t, baseTime, bid.CreatedAt)
			require.Len(t, notes.transitions(), 1)
		})
	}
}

func TestBiddingService_PlaceBid_ReasonIsReadable(t *testing.T) {
	t.Parallel()

	service, _ := newService(repository.NewMemoryRepo())
	ctx := context.Background()
	a, err := service.CreateAuction(ctx, seller, CreateAuctionInput{Title: "Lamp", MinBid: dec(100), DurationHours: 1})
	require.NoError(t, err)

	_, err = service.PlaceBid(ctx, alice, a.AuctionID, dec(100))
	require.Equal(t, auctionerrors.ReasonBidTooLow, auctionerrors.ReasonOf(err))

	_, err = service.PlaceBid(ctx, alice, a.AuctionID, decimal.RequireFromString("100.01"))
	require.NoError(t, err)
}

func TestBiddingService_PlaceBid_CentPrecision(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		amount        string
		expectedError error
	}{
		{name: "whole_units", amount: "101"},
		{name: "cents", amount: "100.01"},
		{name: "trailing_zeros", amount: "100.100"},
		{name: "sub_cent", amount: "100.001", expectedError: auctionerrors.ErrInvalidBid},
		{name: "sub_cent_above_a_cent", amount: "100.015", expectedError: auctionerrors.ErrInvalidBid},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			service, notes := newService(repository.NewMemoryRepo())
			ctx := context.Background()
			a, err := service.CreateAuction(ctx, seller, CreateAuctionInput{Title: "Lamp", MinBid: dec(100), DurationHours: 1})
			require.NoError(t, err)

			_, err = service.PlaceBid(ctx, alice, a.AuctionID, decimal.RequireFromString(tc.amount))
			current, getErr := service.GetAuction(ctx, a.AuctionID)
			require.NoError(t, getErr)

			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				require.True(t, current.CurrentBid.Equal(dec(100)))
				require.Empty(t, current.CurrentBidderID)
				require.Empty(t, notes.transitions())
				return
			}
			require.NoError(t, err)
			require.True(t, current.CurrentBid.Equal(decimal.RequireFromString(tc.amount)))
		})
	}
}

func TestBiddingService_CreateAuction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		seller        model.Principal
		in            CreateAuctionInput
		expectedError error
	}{
		{name: "valid", seller: seller, in: CreateAuctionInput{Title: "Clock", Category: "antiques", MinBid: dec(1), DurationHours: 1}},
		{name: "anonymous_seller", in: CreateAuctionInput{Title: "Clock", MinBid: dec(10), DurationHours: 1}, expectedError: auctionerrors.ErrUnknownUser},
		{name: "min_bid_below_one", seller: seller, in: CreateAuctionInput{Title: "Clock", MinBid: decimal.RequireFromString("0.5"), DurationHours: 1}, expectedError: auctionerrors.ErrInvalidAuction},
		{name: "zero_duration", seller: seller, in: CreateAuctionInput{Title: "Clock", MinBid: dec(10)}, expectedError: auctionerrors.ErrInvalidAuction},
		{name: "longest_duration", seller: seller, in: CreateAuctionInput{Title: "Clock", MinBid: dec(10), DurationHours: MaxDurationHours}},
		{name: "duration_above_limit", seller: seller, in: CreateAuctionInput{Title: "Clock", MinBid: dec(10), DurationHours: MaxDurationHours + 1}, expectedError: auctionerrors.ErrInvalidAuction},
		{name: "duration_overflowing_time", seller: seller, in: CreateAuctionInput{Title: "Clock", MinBid: dec(10), DurationHours: 5124096}, expectedError: auctionerrors.ErrInvalidAuction},
		{name: "min_bid_with_cents", seller: seller, in: CreateAuctionInput{Title: "Clock", MinBid: decimal.RequireFromString("1.50"), DurationHours: 1}},
		{name: "min_bid_below_a_cent", seller: seller, in: CreateAuctionInput{Title: "Clock", MinBid: decimal.RequireFromString("10.005"), DurationHours: 1}, expectedError: auctionerrors.ErrInvalidAuction},
		{name: "missing_title", seller: seller, in: CreateAuctionInput{MinBid: dec(10), DurationHours: 2}, expectedError: auctionerrors.ErrInvalidAuction},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			service, _ := newService(repository.NewMemoryRepo())

			a, err := service.CreateAuction(context.Background(), tc.seller, tc.in)
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				return
			}
			require.NoError(t, err)
			require.Equal(t, model.StatusActive, a.Status)
			require.Equal(t, tc.seller.UserID, a.SellerID)
			require.True(t, a.CurrentBid.Equal(tc.in.MinBid))
			require.Empty(t, a.CurrentBidderID)
			require.Equal(t, baseTime.Add(time.Duration(tc.in.DurationHours)*time.Hour), a.EndTime)
		})
	}
}

func TestBiddingService_CloseAuction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	service, notes := newService(repository.NewMemoryRepo())
	a, err := service.CreateAuction(ctx, seller, CreateAuctionInput{Title: "Vase", MinBid: dec(10), DurationHours: 1})
	require.NoError(t, err)
	_, err = service.PlaceBid(ctx, alice, a.AuctionID, dec(20))
	require.NoError(t, err)

	_, err = service.CloseAuction(ctx, seller, a.AuctionID)
	require.ErrorIs(t, err, auctionerrors.ErrUnauthorized)

	closed, err := service.CloseAuction(ctx, admin, a.AuctionID)
	require.NoError(t, err)
	require.Equal(t, model.StatusEnded, closed.Status)
	require.Equal(t, "alice", closed.CurrentBidderID)

	// closing again is a no-op and is not announced twice
	again, err := service.CloseAuction(ctx, admin, a.AuctionID)
	require.NoError(t, err)
	require.Equal(t, closed, again)

	trs := notes.transitions()
	require.Len(t, trs, 3)
	require.True(t, trs[1].Changed)
	require.False(t, trs[2].Changed)

	_, err = service.CloseAuction(ctx, admin, "missing")
	require.ErrorIs(t, err, auctionerrors.ErrAuctionNotFound)
}

func TestBiddingService_CancelAuction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		actor         model.Principal
		expectedError error
	}{
		{name: "seller_cancels", actor: seller},
		{name: "admin_cancels", actor: admin},
		{name: "bidder_cannot_cancel", actor: alice, expectedError: auctionerrors.ErrUnauthorized},
		{name: "stranger_cannot_cancel", actor: bob, expectedError: auctionerrors.ErrUnauthorized},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			service, notes := newService(repository.NewMemoryRepo())
			a, err := service.CreateAuction(ctx, seller, CreateAuctionInput{Title: "Rug", MinBid: dec(10), DurationHours: 3})
			require.NoError(t, err)
			_, err = service.PlaceBid(ctx, alice, a.AuctionID, dec(15))
			require.NoError(t, err)

			got, err := service.CancelAuction(ctx, tc.actor, a.AuctionID)
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				require.Len(t, notes.transitions(), 1)
				return
			}
			require.NoError(t, err)
			require.Equal(t, model.StatusCancelled, got.Status)

			trs := notes.transitions()
			require.Len(t, trs, 2)
			require.Equal(t, model.TransitionCancel, trs[1].Kind)
			require.Equal(t, []string{"alice"}, trs[1].Bidders)

			// terminal states reject further bids and cancellation
			_, err = service.PlaceBid(ctx, bob, a.AuctionID, dec(100))
			require.ErrorIs(t, err, auctionerrors.ErrAuctionNotActive)
			_, err = service.CancelAuction(ctx, tc.actor, a.AuctionID)
			require.ErrorIs(t, err, auctionerrors.ErrAuctionNotActive)
			_, err = service.CloseAuction(ctx, admin, a.AuctionID)
			require.ErrorIs(t, err, auctionerrors.ErrAuctionNotActive)
		})
	}
}

// Tests GetBidsForAuction
func TestBiddingService_GetBidsForAuction(t *testing.T) {
	t.Parallel()

	bidsExample := []model.Bid{
		{BidID: "bid1", AuctionID: "auction1", BidderID: "alice", Amount: dec(110), CreatedAt: baseTime},
		{BidID: "bid2", AuctionID: "auction1", BidderID: "bob", Amount: dec(150), CreatedAt: baseTime.Add(time.Second)},
	}

	tests := []struct {
		name          string
		auctionID     string
		mockSetup     func(store *repository.MockAuctionStore)
		expectError   bool
		expectedError error
		expectedIDs   []string
	}{
		{
			name:      "auction_with_bids",
			auctionID: "auction1",
			mockSetup: func(store *repository.MockAuctionStore) {
				store.EXPECT().GetBidsByAuction(gomock.Any(), "auction1").Return(bidsExample, nil)
			},
			expectedIDs: []string{"bid2", "bid1"},
		},
		{
			name:      "auction_without_bids",
			auctionID: "auction2",
			mockSetup: func(store *repository.MockAuctionStore) {
				store.EXPECT().GetBidsByAuction(gomock.Any(), "auction2").Return([]model.Bid{}, nil)
			},
			expectedIDs: []string{},
		},
		{
			name:          "empty_auctionID",
			auctionID:     "",
			mockSetup:     func(*repository.MockAuctionStore) {},
			expectError:   true,
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:      "repo_error",
			auctionID: "auction3",
			mockSetup: func(store *repository.MockAuctionStore) {
				store.EXPECT().GetBidsByAuction(gomock.Any(), "auction3").Return(nil, errors.New("db failure"))
			},
			expectError: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			store := repository.NewMockAuctionStore(ctrl)
			tc.mockSetup(store)
			service, _ := newService(store)

			bids, err := service.GetBidsForAuction(context.Background(), tc.auctionID)
			if tc.expectError {
				require.Error(t, err)
				if tc.expectedError != nil {
					require.True(t, errors.Is(err, tc.expectedError), "expected error: %v, got: %v", tc.expectedError, err)
				}
				return
			}
			require.NoError(t, err)
			ids := make([]string, 0, len(bids))
			for _, b := range bids {
				ids = append(ids, b.BidID)
			}
			require.Equal(t, tc.expectedIDs, ids)
		})
	}
}

func TestBiddingService_Queries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	service, _ := newService(repository.NewMemoryRepo())
	a, err := service.CreateAuction(ctx, seller, CreateAuctionInput{Title: "Guitar", Description: "Acoustic", Category: "music", MinBid: dec(50), DurationHours: 1})
	require.NoError(t, err)
	_, err = service.PlaceBid(ctx, bob, a.AuctionID, dec(60))
	require.NoError(t, err)

	got, err := service.GetAuction(ctx, a.AuctionID)
	require.NoError(t, err)
	require.Equal(t, "bob", got.CurrentBidderID)

	active, err := service.ListActive(ctx, model.ListFilter{SearchText: "acoustic"})
	require.NoError(t, err)
	require.Len(t, active, 1)

	mine, err := service.ListBySeller(ctx, seller.UserID)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	bids, err := service.GetBidsByBidder(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, bids, 1)

	_, err = service.GetAuction(ctx, "")
	require.ErrorIs(t, err, auctionerrors.ErrInvalidBid)
	_, err = service.ListBySeller(ctx, "")
	require.ErrorIs(t, err, auctionerrors.ErrInvalidAuction)
	_, err = service.GetBidsByBidder(ctx, "")
	require.ErrorIs(t, err, auctionerrors.ErrInvalidBid)
}

func TestBiddingService_Notifications(t *testing.T) {
	t.Parallel()

	inbox := notifier.NewInbox(10)
	require.NoError(t, inbox.Publish(context.Background(), model.Notification{NotificationID: "n1", RecipientID: "alice"}))

	clock := fixedClock{baseTime}
	store := repository.NewMemoryRepo()
	service := NewBiddingService(ledger.NewLedger(store, clock), query.NewService(store, clock), &recordingNotifier{}, inbox)

	got, err := service.Notifications(alice, "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = service.Notifications(admin, "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, err = service.Notifications(bob, "alice")
	require.ErrorIs(t, err, auctionerrors.ErrUnauthorized)

	_, err = service.Notifications(model.Principal{}, "alice")
	require.ErrorIs(t, err, auctionerrors.ErrUnknownUser)
}

func TestBiddingService_NotificationReadState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inbox := notifier.NewInbox(10)
	require.NoError(t, inbox.Publish(ctx, model.Notification{NotificationID: "n1", RecipientID: "alice"}))
	require.NoError(t, inbox.Publish(ctx, model.Notification{NotificationID: "n2", RecipientID: "alice"}))

	clock := fixedClock{baseTime}
	store := repository.NewMemoryRepo()
	service := NewBiddingService(ledger.NewLedger(store, clock), query.NewService(store, clock), &recordingNotifier{}, inbox)

	unread, err := service.UnreadNotifications(alice, "alice")
	require.NoError(t, err)
	require.Len(t, unread, 2)

	tests := []struct {
		name           string
		actor          model.Principal
		notificationID string
		expectedError  error
	}{
		{name: "other_user", actor: bob, notificationID: "n1", expectedError: auctionerrors.ErrUnauthorized},
		{name: "anonymous", actor: model.Principal{}, notificationID: "n1", expectedError: auctionerrors.ErrUnknownUser},
		{name: "unknown_notification", actor: alice, notificationID: "missing", expectedError: auctionerrors.ErrNotificationNotFound},
		{name: "owner", actor: alice, notificationID: "n1"},
		{name: "admin", actor: admin, notificationID: "n2"},
	}

	// steps share the inbox, so they run in order
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			n, err := service.MarkNotificationRead(tc.actor, "alice", tc.notificationID)
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				return
			}
			require.NoError(t, err)
			require.True(t, n.Read)
			require.Equal(t, tc.notificationID, n.NotificationID)
		})
	}

	unread, err = service.UnreadNotifications(alice, "alice")
	require.NoError(t, err)
	require.Empty(t, unread)

	_, err = service.UnreadNotifications(bob, "alice")
	require.ErrorIs(t, err, auctionerrors.ErrUnauthorized)

	all, err := service.Notifications(alice, "alice")
	require.NoError(t, err)
	require.Len(t, all, 2)
}
