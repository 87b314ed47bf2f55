package domain

import "testing"

func TestKeys(t *testing.T) {
	if got := RecordKey("products", "product-TP-1"); got != "prodrag:products:product-TP-1" {
		t.Errorf("RecordKey() = %q", got)
	}
	if got := IndexName("reviews"); got != "prodrag:reviews:idx" {
		t.Errorf("IndexName() = %q", got)
	}
	if got := CollectionKeyPrefix("reviews"); got != "prodrag:reviews:" {
		t.Errorf("CollectionKeyPrefix() = %q", got)
	}
}
