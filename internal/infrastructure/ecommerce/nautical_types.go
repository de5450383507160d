package ecommerce

// Response payloads for the Nautical Commerce GraphQL API.

// nauticalProductsData is the data payload of product lookup queries.
type nauticalProductsData struct {
	Products connectionPayload[nauticalProductPayload] `json:"products"`
}

// nauticalVariantsData is the data payload of variant listing and lookup.
type nauticalVariantsData struct {
	ProductVariants connectionPayload[nauticalVariantPayload] `json:"productVariants"`
}

// nauticalOrdersData is the data payload of order lookup queries.
type nauticalOrdersData struct {
	Orders connectionPayload[nauticalOrderPayload] `json:"orders"`
}

type nauticalProductPayload struct {
	ID                string                   `json:"id"`
	ExternalReference string                   `json:"externalReference"`
	Name              string                   `json:"name"`
	Status            string                   `json:"status"`
	Variants          []nauticalVariantPayload `json:"variants"`
}

type nauticalVariantPayload struct {
	ID                string `json:"id"`
	SKU               string `json:"sku"`
	QuantityAvailable int    `json:"quantityAvailable"`
}

type nauticalOrderPayload struct {
	ID                string `json:"id"`
	ExternalReference string `json:"externalReference"`
	Number            string `json:"number"`
	Status            string `json:"status"`
}

// Mutation payloads. Every mutation carries userErrors; an empty list means
// the write was accepted.

type nauticalProductCreateData struct {
	ProductCreate nauticalProductMutationPayload `json:"productCreate"`
}

type nauticalProductUpdateData struct {
	ProductUpdate nauticalProductMutationPayload `json:"productUpdate"`
}

type nauticalProductMutationPayload struct {
	Product    *nauticalProductPayload `json:"product"`
	UserErrors []graphQLUserError      `json:"userErrors"`
}

type nauticalProductDeleteData struct {
	ProductDelete struct {
		UserErrors []graphQLUserError `json:"userErrors"`
	} `json:"productDelete"`
}

type nauticalStocksUpdateData struct {
	ProductVariantStocksUpdate struct {
		UserErrors []graphQLUserError `json:"userErrors"`
	} `json:"productVariantStocksUpdate"`
}

type nauticalOrderCreateData struct {
	OrderCreate nauticalOrderMutationPayload `json:"orderCreate"`
}

type nauticalOrderUpdateData struct {
	OrderUpdate nauticalOrderMutationPayload `json:"orderUpdate"`
}

type nauticalOrderMutationPayload struct {
	Order      *nauticalOrderPayload `json:"order"`
	UserErrors []graphQLUserError    `json:"userErrors"`
}
