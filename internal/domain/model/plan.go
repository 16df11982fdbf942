package model

// Host is one VPN panel the shop resells keys on.
type Host struct {
	Name      string
	URL       string
	Username  string
	Password  string
	InboundID int
}

// Plan is a purchasable tariff bound to a host.
type Plan struct {
	ID       int64
	HostName string
	Name     string
	Months   int
	Price    float64
}
