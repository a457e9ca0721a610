// Package orderitem declares the order item entity and its representation mapping
//
// every persisted field is exposed, in both directions, with only the constraints declared on the schema enforced
package orderitem

import (
	"github.com/go-andiamo/modelmap"
	"github.com/shopspring/decimal"
)

// ProductModel is the model name used by the product_id reference field
const ProductModel = "product"

// OrderItem is a persisted order item record
type OrderItem struct {
	ID        int64
	ProductID int64
	Quantity  int64
	Price     decimal.NullDecimal
}

// Schema is the statically declared field list of OrderItem
var Schema = modelmap.MustNewSchema[OrderItem](
	modelmap.IntField[OrderItem]("id",
		func(o *OrderItem) int64 { return o.ID },
		func(o *OrderItem, v int64) { o.ID = v },
		modelmap.ReadOnly(true)),
	modelmap.ReferenceField[OrderItem]("product_id", ProductModel,
		func(o *OrderItem) int64 { return o.ProductID },
		func(o *OrderItem, v int64) { o.ProductID = v }),
	modelmap.IntField[OrderItem]("quantity",
		func(o *OrderItem) int64 { return o.Quantity },
		func(o *OrderItem, v int64) { o.Quantity = v }),
	modelmap.NullDecimalField[OrderItem]("price",
		func(o *OrderItem) decimal.NullDecimal { return o.Price },
		func(o *OrderItem, v decimal.NullDecimal) { o.Price = v },
		modelmap.MaxDigits(10), modelmap.DecimalPlaces(2)),
)

// NewSerializer creates the order item serializer
//
// options are passed through to modelmap.NewSerializer (ReferenceChecker, ErrorTranslator)
func NewSerializer(options ...any) (modelmap.Serializer[OrderItem], error) {
	return modelmap.NewSerializer[OrderItem](Schema, append([]any{modelmap.Title("OrderItem")}, options...)...)
}
