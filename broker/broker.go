package broker

// OrderRequest is what a strategy hands the engine. LimitPrice is ignored for
// market orders.
type OrderRequest struct {
	AccountID  string
	Symbol     string
	Side       Side
	Type       OrderType
	Quantity   float64
	LimitPrice float64
}

// Broker is the capability contract the simulated engine exposes. Strategies
// and the CLI talk to this, never to the engine struct directly.
type Broker interface {
	Connect() error
	Disconnect()

	CreateAccount(id string, initialCapital float64) (Account, error)
	GetAccount(accountID string) (Account, error)
	GetOrder(orderID string) (Order, error)

	SubmitOrder(req OrderRequest) (string, error)
	CancelOrder(orderID string) error

	UpdateMarketData(symbol string, price float64) error
}
