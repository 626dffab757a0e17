package model

import (
	"backoffice/internal/workflow"
)

// Kind identifies one approval-workflow entity family. Every kind shares the
// same lifecycle; what differs is the REST resource it is served under, which
// payload fields it requires, and which initial status a permissionless
// create lands on.
type Kind string

const (
	KindCustomerClass Kind = "CUSTOMER_CLASS"
	KindStock         Kind = "STOCK"
	KindStockType     Kind = "STOCK_TYPE"
	KindProductClass  Kind = "PRODUCT_CLASS"
	KindProductDeal   Kind = "PRODUCT_DEAL"
	KindProductUnit   Kind = "PRODUCT_UNIT"
)

// KindConfig declares the per-kind knobs consumed by the workflow engine and
// the record service's payload validation.
type KindConfig struct {
	// Resource is the REST path segment, e.g. "customer-classes".
	Resource string
	// PendingCreateStatus is where a permissionless create lands.
	PendingCreateStatus workflow.Status
	// RequiredFields must be present and non-empty in every create payload.
	RequiredFields []string
	// NumericFields are validated as non-negative decimals whenever present.
	NumericFields []string
}

var kindConfigs = map[Kind]KindConfig{
	KindCustomerClass: {
		Resource:            "customer-classes",
		PendingCreateStatus: workflow.StatusNewRecord,
		RequiredFields:      []string{"name"},
	},
	KindStock: {
		Resource:            "stocks",
		PendingCreateStatus: workflow.StatusForApproval,
		RequiredFields:      []string{"name", "quantity"},
		NumericFields:       []string{"quantity"},
	},
	KindStockType: {
		Resource:            "stock-types",
		PendingCreateStatus: workflow.StatusForApproval,
		RequiredFields:      []string{"name"},
	},
	KindProductClass: {
		Resource:            "product-classes",
		PendingCreateStatus: workflow.StatusNewRecord,
		RequiredFields:      []string{"name"},
	},
	KindProductDeal: {
		Resource:            "product-deals",
		PendingCreateStatus: workflow.StatusNewRecord,
		RequiredFields:      []string{"name", "price"},
		NumericFields:       []string{"price"},
	},
	KindProductUnit: {
		Resource:            "product-units",
		PendingCreateStatus: workflow.StatusForApproval,
		RequiredFields:      []string{"name"},
	},
}

// Config returns the kind's configuration; ok is false for unknown kinds.
func (k Kind) Config() (KindConfig, bool) {
	cfg, ok := kindConfigs[k]
	return cfg, ok
}

// Kinds returns all registered kinds with their configuration.
func Kinds() map[Kind]KindConfig {
	out := make(map[Kind]KindConfig, len(kindConfigs))
	for k, cfg := range kindConfigs {
		out[k] = cfg
	}
	return out
}
