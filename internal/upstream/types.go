package upstream

import "time"

// ItemSummary is one entry of the search response's itemSummaries array —
// just the fields the pipeline actually filters and sorts on.
type ItemSummary struct {
	ItemID            string   `json:"itemId"`
	Title             string   `json:"title"`
	ItemWebURL        string   `json:"itemWebUrl"`
	Price             Money    `json:"price"`
	ShippingOptions   []ShippingOption `json:"shippingOptions"`
	CategoryIDs       []string `json:"categoryIds"`
	Condition         string   `json:"condition"`
	BuyingOptions     []string `json:"buyingOptions"`
	SellerFeedback    int      `json:"seller_feedbackScore"`
	ItemCreationDate  time.Time `json:"itemCreationDate"`
}

// Money is a price/amount with currency, as returned by the upstream.
type Money struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// ShippingOption is one shipping cost entry.
type ShippingOption struct {
	ShippingCost Money `json:"shippingCost"`
}

// ItemDetail is the decoded per-item document, from either the single-item
// or bulk endpoint, or synthesized from a cache hit.
type ItemDetail struct {
	ItemID           string             `json:"itemId"`
	Title            string             `json:"title"`
	Description      string             `json:"description"`
	LocalizedAspects []LocalizedAspect  `json:"localizedAspects"`
	FromCache        bool               `json:"-"`
}

// LocalizedAspect is one item-specifics name/value pair.
type LocalizedAspect struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}
