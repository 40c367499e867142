package provider

import (
	"errors"
	"fmt"
	"testing"
)

func TestDirectoryGet(t *testing.T) {
	d, err := Get("webull")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if d.Name != "WeBull" || d.Type != APITrading {
		t.Errorf("unexpected descriptor: %+v", d)
	}
	if !d.Can(CapTrading) || !d.Can(CapMarketData) {
		t.Error("webull must advertise trading and market data")
	}
	if d.Can(CapFundamentals) {
		t.Error("webull must not advertise fundamentals")
	}
}

func TestDirectoryGetUnknown(t *testing.T) {
	_, err := Get("etrade")
	if KindOf(err) != KindUnknownProvider {
		t.Fatalf("expected unknown_provider, got %v", err)
	}
}

func TestDirectoryListSortedAndFiltered(t *testing.T) {
	all := List()
	if len(all) != 5 {
		t.Fatalf("expected 5 directory entries, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Fatalf("list not sorted: %s before %s", all[i-1].ID, all[i].ID)
		}
	}

	trading := List(APITrading)
	if len(trading) != 2 {
		t.Fatalf("expected 2 trading providers, got %d", len(trading))
	}
	for _, d := range trading {
		if d.Type != APITrading {
			t.Errorf("filter leaked %s", d.ID)
		}
	}
}

func TestErrorRetryable(t *testing.T) {
	cases := []struct {
		err       *Error
		retryable bool
	}{
		{&Error{Kind: KindTransport}, true},
		{&Error{Kind: KindAPI, Status: 429}, true},
		{&Error{Kind: KindAPI, Status: 503}, true},
		{&Error{Kind: KindAPI, Status: 404}, false},
		{&Error{Kind: KindMissingCredentials}, false},
		{&Error{Kind: KindNeedCode}, false},
		{&Error{Kind: KindNoTradeToken}, false},
	}
	for _, c := range cases {
		if got := c.err.Retryable(); got != c.retryable {
			t.Errorf("%s (%d): Retryable() = %v, want %v", c.err.Kind, c.err.Status, got, c.retryable)
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &Error{Kind: KindTransport, Message: "execute request", Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("cause must be reachable through Unwrap")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	pe, ok := AsError(wrapped)
	if !ok || pe.Kind != KindTransport {
		t.Errorf("AsError through wrapping failed: %v", wrapped)
	}
}

func TestCredentialsEmpty(t *testing.T) {
	if !(Credentials{}).Empty() {
		t.Error("zero credentials must be empty")
	}
	if (Credentials{APIKey: "k"}).Empty() {
		t.Error("api key counts as credential material")
	}
	// A device id alone is not usable credential material.
	if !(Credentials{DeviceID: "d"}).Empty() {
		t.Error("device id alone must still be empty")
	}
}
