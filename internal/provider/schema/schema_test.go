package schema

import (
	"testing"

	"github.com/sawpanic/fedmkt/internal/core"
)

func TestValidatePrice(t *testing.T) {
	if !ValidatePrice(map[string]any{"price": 150.0}) {
		t.Fatal("expected valid price")
	}
	if ValidatePrice(map[string]any{"price": 0.0}) {
		t.Fatal("expected invalid for zero price")
	}
	if ValidatePrice(map[string]any{}) {
		t.Fatal("expected invalid for missing price")
	}
}

func TestValidateOHLCV(t *testing.T) {
	good := []Candle{{Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10}}
	if !ValidateOHLCV(map[string]any{"candles": good}) {
		t.Fatal("expected valid candles")
	}
	bad := []Candle{{Open: 1, High: 0, Low: 2, Close: 1.5, Volume: 10}}
	if ValidateOHLCV(map[string]any{"candles": bad}) {
		t.Fatal("expected invalid candles (high < low)")
	}
	if ValidateOHLCV(map[string]any{"candles": []Candle{}}) {
		t.Fatal("expected invalid for empty candle list")
	}
}

func TestValidateDispatch(t *testing.T) {
	if !Validate(core.DataMacro, map[string]any{"value": 3.2}) {
		t.Fatal("expected macro with data to validate")
	}
	if Validate(core.DataMacro, map[string]any{}) {
		t.Fatal("expected empty macro data to be invalid")
	}
}
