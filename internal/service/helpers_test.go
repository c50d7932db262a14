package service

import (
	"group_fund/internal/domain"
	"group_fund/internal/wallet"
)

func walletRequest(c *domain.Contribution, e *domain.Contributor) wallet.TransferRequest {
	return wallet.TransferRequest{
		FromUserID: e.UserID,
		ToUserID:   c.CreatedBy,
		Amount:     e.Amount,
		Currency:   e.Currency,
		Reference:  e.TransferReference(),
	}
}
