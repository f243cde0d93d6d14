package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-billpay/app/entity"
	"github.com/vibast-solutions/ms-go-billpay/app/provider"
	"github.com/vibast-solutions/ms-go-billpay/app/types"
)

func ReservedAccountToResponse(item *entity.ReservedAccount) *types.ReservedAccount {
	if item == nil {
		return nil
	}

	accounts := make([]types.BankAccount, 0, len(item.Accounts))
	for _, account := range item.Accounts {
		accounts = append(accounts, types.BankAccount{
			BankCode:      account.BankCode,
			BankName:      account.BankName,
			AccountNumber: account.AccountNumber,
		})
	}

	return &types.ReservedAccount{
		AccountReference: item.AccountReference,
		CustomerName:     item.CustomerName,
		CustomerEmail:    item.CustomerEmail,
		CurrencyCode:     item.CurrencyCode,
		Accounts:         accounts,
		CreatedAt:        item.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func PaymentToResponse(item *entity.Payment) *types.Payment {
	if item == nil {
		return nil
	}

	return &types.Payment{
		Reference:      item.Reference,
		CustomerName:   item.CustomerName,
		CustomerEmail:  item.CustomerEmail,
		AmountKobo:     item.AmountKobo,
		Currency:       item.Currency,
		Description:    item.Description,
		Status:         item.Status,
		ProviderTxRef:  derefString(item.ProviderTxRef),
		CheckoutURL:    derefString(item.CheckoutURL),
		AmountPaidKobo: item.AmountPaidKobo,
		PaidOn:         derefString(item.PaidOn),
		CreatedAt:      item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func PayoutToResponse(item *entity.Payout) *types.Payout {
	if item == nil {
		return nil
	}

	return &types.Payout{
		Reference:                item.Reference,
		BatchReference:           derefString(item.BatchReference),
		Narration:                item.Narration,
		DestinationBankCode:      item.DestinationBankCode,
		DestinationAccountNumber: item.DestinationAccountNumber,
		DestinationAccountName:   item.DestinationAccountName,
		AmountKobo:               item.AmountKobo,
		Currency:                 item.Currency,
		Status:                   item.Status,
		CreatedAt:                item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:                item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func PayoutsToResponse(items []*entity.Payout) []*types.Payout {
	result := make([]*types.Payout, 0, len(items))
	for _, item := range items {
		result = append(result, PayoutToResponse(item))
	}
	return result
}

func VTUOrderToResponse(item *entity.VTUOrder) *types.VTUOrder {
	if item == nil {
		return nil
	}

	return &types.VTUOrder{
		RequestID:       item.RequestID,
		CustomerEmail:   item.CustomerEmail,
		ServiceID:       item.ServiceID,
		Category:        item.Category,
		AmountKobo:      item.AmountKobo,
		Phone:           item.Phone,
		BillerCode:      item.BillerCode,
		VariationCode:   derefString(item.VariationCode),
		Status:          item.Status,
		ProviderStatus:  derefString(item.ProviderStatus),
		RequeryAttempts: item.RequeryAttempts,
		CreatedAt:       item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func WalletToResponse(item *entity.Wallet) *types.Wallet {
	if item == nil {
		return nil
	}
	return &types.Wallet{
		CustomerEmail: item.CustomerEmail,
		BalanceKobo:   item.BalanceKobo,
	}
}

func BanksToResponse(items []provider.Bank) []types.Bank {
	result := make([]types.Bank, 0, len(items))
	for _, item := range items {
		result = append(result, types.Bank{Name: item.Name, Code: item.Code})
	}
	return result
}

func VariationsToResponse(output *provider.VariationsOutput) *types.VariationsResponse {
	if output == nil {
		return nil
	}

	variations := make([]types.Variation, 0, len(output.Variations))
	for _, variation := range output.Variations {
		variations = append(variations, types.Variation{
			Code:   variation.Code,
			Name:   variation.Name,
			Amount: variation.Amount,
		})
	}

	return &types.VariationsResponse{
		ServiceName: output.ServiceName,
		Variations:  variations,
	}
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
