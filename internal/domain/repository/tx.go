package repository

// TxRepos repositorios atados a una misma transacción. Lo que se escribe a través de ellos
// se confirma o se descarta en bloque.
type TxRepos struct {
	Products  ProductRepository
	Lots      ReceiptLotRepository
	Movements StockMovementRepository
	Slips     IssuanceSlipRepository
	Orders    PurchaseOrderRepository
}
