package wallet

import (
	"context" // Context for cache operations
	"strconv" // Key formatting
)

// Deleter drops a cached key. *utils.Cache satisfies it.
type Deleter interface {
	Delete(ctx context.Context, key string) error
}

// historyPages is how many default-size history pages are dropped on a change
const (
	historyPages    = 5
	historyPageSize = 20
)

// BalanceKey is the cache key of a user's wallet
func BalanceKey(userID uint) string {
	return "wallet:user:" + strconv.FormatUint(uint64(userID), 10)
}

// HistoryKey is the cache key of one page of a user's transaction history
func HistoryKey(userID uint, page, pageSize int) string {
	return "txhistory:user:" + strconv.FormatUint(uint64(userID), 10) + ":page:" + strconv.Itoa(page) + ":size:" + strconv.Itoa(pageSize)
}

// Invalidate drops the cached wallet and the first history pages of a user
func Invalidate(ctx context.Context, cache Deleter, userID uint) {
	if cache == nil {
		return
	}
	_ = cache.Delete(ctx, BalanceKey(userID))
	for i := 1; i <= historyPages; i++ {
		_ = cache.Delete(ctx, HistoryKey(userID, i, historyPageSize))
	}
}

// InvalidatingGateway drops both parties' cached wallet views after every
// successful transfer, whoever initiated it.
type InvalidatingGateway struct {
	next  Gateway
	cache Deleter
}

func NewInvalidatingGateway(next Gateway, cache Deleter) *InvalidatingGateway {
	return &InvalidatingGateway{next: next, cache: cache}
}

func (g *InvalidatingGateway) Transfer(ctx context.Context, req TransferRequest) (TransferResult, error) {
	res, err := g.next.Transfer(ctx, req)
	if err == nil && res.Success {
		Invalidate(ctx, g.cache, req.FromUserID)
		Invalidate(ctx, g.cache, req.ToUserID)
	}
	return res, err
}
