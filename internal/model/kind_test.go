package model

import (
	"testing"

	"backoffice/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindRegistry(t *testing.T) {
	wantResources := map[Kind]string{
		KindCustomerClass: "customer-classes",
		KindStock:         "stocks",
		KindStockType:     "stock-types",
		KindProductClass:  "product-classes",
		KindProductDeal:   "product-deals",
		KindProductUnit:   "product-units",
	}

	kinds := Kinds()
	require.Len(t, kinds, len(wantResources))

	seen := make(map[string]Kind)
	for kind, cfg := range kinds {
		assert.Equal(t, wantResources[kind], cfg.Resource)
		assert.Contains(t, cfg.RequiredFields, "name")

		// Resource paths double as route segments; they must not collide.
		if prev, dup := seen[cfg.Resource]; dup {
			t.Fatalf("resource %q claimed by both %s and %s", cfg.Resource, prev, kind)
		}
		seen[cfg.Resource] = kind
	}
}

func TestKindPendingCreateStatus(t *testing.T) {
	forApproval := []Kind{KindStock, KindStockType, KindProductUnit}
	newRecord := []Kind{KindCustomerClass, KindProductClass, KindProductDeal}

	for _, kind := range forApproval {
		cfg, ok := kind.Config()
		require.True(t, ok)
		assert.Equal(t, workflow.StatusForApproval, cfg.PendingCreateStatus, string(kind))
	}
	for _, kind := range newRecord {
		cfg, ok := kind.Config()
		require.True(t, ok)
		assert.Equal(t, workflow.StatusNewRecord, cfg.PendingCreateStatus, string(kind))
	}
}

func TestKindConfigUnknown(t *testing.T) {
	_, ok := Kind("WIDGET").Config()
	assert.False(t, ok)
}
