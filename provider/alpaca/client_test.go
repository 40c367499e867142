package alpaca

import (
	"testing"

	"tradeflow/models"
	"tradeflow/provider"
)

func TestNewRequiresKeyPair(t *testing.T) {
	_, err := New(Options{})
	if provider.KindOf(err) != provider.KindMissingCredentials {
		t.Fatalf("expected missing_credentials, got %v", err)
	}

	_, err = New(Options{Credentials: provider.Credentials{APIKey: "pk"}})
	if provider.KindOf(err) != provider.KindMissingCredentials {
		t.Fatalf("expected missing_credentials for key without secret, got %v", err)
	}
}

func TestNewDefaultsToPaperMode(t *testing.T) {
	c, err := New(Options{Credentials: provider.Credentials{APIKey: "pk", APISecret: "ps"}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if c.Mode() != provider.ModePaper {
		t.Errorf("unexpected default mode: %s", c.Mode())
	}
	if c.Descriptor().ID != "alpaca" {
		t.Errorf("unexpected descriptor: %s", c.Descriptor().ID)
	}
}

func TestOrderStatusFromWire(t *testing.T) {
	cases := map[string]models.OrderStatus{
		"new":              models.OrderStatusWorking,
		"partially_filled": models.OrderStatusWorking,
		"filled":           models.OrderStatusFilled,
		"canceled":         models.OrderStatusCancelled,
		"rejected":         models.OrderStatusRejected,
		"held":             models.OrderStatusPending,
	}
	for wire, want := range cases {
		if got := orderStatusFromWire(wire); got != want {
			t.Errorf("orderStatusFromWire(%q) = %v, want %v", wire, got, want)
		}
	}
}

func TestContainsFold(t *testing.T) {
	if !containsFold("Apple Inc.", "apple") {
		t.Error("case-insensitive match failed")
	}
	if containsFold("Apple Inc.", "") {
		t.Error("empty keyword must not match")
	}
}
