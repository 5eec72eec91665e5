package models

type RemoteBankResponse struct {
	BankCode string `json:"bankCode"`
	BankName string `json:"bankName"`
}
