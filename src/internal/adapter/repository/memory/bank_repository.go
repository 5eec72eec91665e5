package memory

import (
	"context"
	"strings"

	"github.com/coralbank/transfer-settlement/src/internal/commons"
	"github.com/coralbank/transfer-settlement/src/internal/domain"
)

// RemoteBankRepository serves the static directory of institutions reachable
// through the clearing hub. The directory is issued by the hub operator and
// changes only with a redeploy.
type RemoteBankRepository struct {
	ownCode string
}

func NewRemoteBankRepository(ownCode string) *RemoteBankRepository {
	return &RemoteBankRepository{ownCode: strings.TrimSpace(ownCode)}
}

var hubDirectory = []domain.RemoteBank{
	{BankName: "Banco Nacional", BankCode: "B01"},
	{BankName: "Banco del Pacifico", BankCode: "B02"},
	{BankName: "Banco Central Plaza", BankCode: "B03"},
	{BankName: "Banco Mercantil", BankCode: "B04"},
	{BankName: "Coral Bank", BankCode: "B05"},
	{BankName: "Banco Horizonte", BankCode: "B06"},
	{BankName: "Banco Austral", BankCode: "B07"},
	{BankName: "Banco de la Costa", BankCode: "B08"},
}

func (r *RemoteBankRepository) GetAll(_ context.Context) ([]domain.RemoteBank, error) {
	banks := make([]domain.RemoteBank, 0, len(hubDirectory))
	for _, bank := range hubDirectory {
		if bank.BankCode == r.ownCode {
			continue
		}
		banks = append(banks, bank)
	}

	return banks, nil
}

func (r *RemoteBankRepository) GetByCode(_ context.Context, code string) (domain.RemoteBank, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	for _, bank := range hubDirectory {
		if bank.BankCode == normalized {
			return bank, nil
		}
	}

	return domain.RemoteBank{}, commons.ErrRecordNotFound
}
