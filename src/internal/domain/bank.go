package domain

// RemoteBank is one institution reachable through the clearing hub.
type RemoteBank struct {
	BankName string
	BankCode string
}
