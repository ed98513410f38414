package backtest

import (
	"bytes"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"SignalHunter/internal/model"
)

var start = time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)

func fixture() ([]model.IndicatorRow, []model.TierSignal) {
	const n = 230
	rows := make([]model.IndicatorRow, n)
	for i := range rows {
		rows[i] = model.IndicatorRow{Date: start.AddDate(0, 0, i), Close: 100, Sufficient: i >= 199}
	}
	rows[205].Close = 110
	rows[210].Close = 99
	rows[215].Close = 120

	signals := make([]model.TierSignal, n)
	signals[150] = model.TierSignal{Group: model.TierDiamond} // warm-up, ignored
	signals[200] = model.TierSignal{Group: model.TierGold}
	signals[205] = model.TierSignal{Group: model.TierSilver, Blitz: true}
	signals[220] = model.TierSignal{Group: model.TierSilverWait} // not actionable
	signals[224] = model.TierSignal{Group: model.TierDiamond}
	signals[226] = model.TierSignal{Group: model.TierGold} // no room for the 5-bar horizon
	return rows, signals
}

func TestRun_Records(t *testing.T) {
	rows, signals := fixture()
	res := Run(rows, signals, nil)

	if !reflect.DeepEqual(res.Horizons, []int{5, 15}) {
		t.Fatalf("expected default horizons, got %v", res.Horizons)
	}
	want := []struct {
		index int
		tier  model.Tier
	}{
		{200, model.TierGold},
		{205, model.TierSilver},
		{205, model.TierBlitz},
		{224, model.TierDiamond},
	}
	if len(res.Records) != len(want) {
		t.Fatalf("expected %d records, got %d: %+v", len(want), len(res.Records), res.Records)
	}
	for i, w := range want {
		if res.Records[i].Index != w.index || res.Records[i].Tier != w.tier {
			t.Errorf("record %d: expected %d/%v, got %d/%v", i, w.index, w.tier, res.Records[i].Index, res.Records[i].Tier)
		}
	}

	gold := res.Records[0]
	if gold.Forward[0].Return.V != 10 || gold.Forward[1].Return.V != 20 {
		t.Errorf("gold returns: %+v", gold.Forward)
	}
	diamond := res.Records[3]
	if !diamond.Forward[0].Return.OK || diamond.Forward[0].Return.V != 0 {
		t.Errorf("diamond 5d return should be 0, got %+v", diamond.Forward[0])
	}
	if diamond.Forward[1].Return.OK {
		t.Error("diamond 15d return should be undefined near the end of history")
	}
}

func TestRun_WinRates(t *testing.T) {
	rows, signals := fixture()
	res := Run(rows, signals, []int{15, 5, 5, 0})

	five, fifteen := res.Overall[0], res.Overall[1]
	if five.Horizon != 5 || five.Defined != 4 || five.Wins != 1 || five.WinRate != 0.25 {
		t.Errorf("5d stats: %+v", five)
	}
	if fifteen.Defined != 3 || fifteen.Wins != 1 || math.Abs(fifteen.WinRate-1.0/3) > 1e-12 {
		t.Errorf("15d stats: %+v", fifteen)
	}
	silver := res.ByTier[model.TierSilver]
	if silver[0].Defined != 1 || silver[0].Wins != 0 || silver[0].AvgReturn != -10 {
		t.Errorf("silver 5d stats: %+v", silver[0])
	}
}

func TestRun_Deterministic(t *testing.T) {
	rows, signals := fixture()
	a := Run(rows, signals, []int{5, 15})
	b := Run(rows, signals, []int{5, 15})
	if !reflect.DeepEqual(a, b) {
		t.Fatal("two runs over the same input differ")
	}
}

func TestRun_Empty(t *testing.T) {
	res := Run(nil, nil, nil)
	if len(res.Records) != 0 {
		t.Fatalf("expected no records, got %d", len(res.Records))
	}
	for _, st := range res.Overall {
		if st.WinRate != 0 {
			t.Errorf("expected zero win rate without data, got %+v", st)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	rows, signals := fixture()
	res := Run(rows, signals, nil)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, res); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "\xEF\xBB\xBF") {
		t.Fatal("export must begin with a UTF-8 byte-order mark")
	}
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(out, "\xEF\xBB\xBF")), "\n")
	if lines[0] != "date,tier,buy_price,price_5d,return_5d,price_15d,return_15d" {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if len(lines) != 5 {
		t.Fatalf("expected header + 4 rows, got %d lines", len(lines))
	}
	wantFirst := start.AddDate(0, 0, 224).Format("2006-01-02") + ",Diamond,100.0000,100.0000,0.0000,,"
	if lines[1] != wantFirst {
		t.Errorf("newest row first: expected %q, got %q", wantFirst, lines[1])
	}
}
