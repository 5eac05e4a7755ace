package platformconf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const goodConf = `
markets = ["binance_spot"]
db_path = "data/market.db"

[proxy]
url = "socks5://127.0.0.1:10808"

[binance_spot]
api_base_url = "https://api.binance.com"
stream_base_url = "wss://stream.binance.com:9443/stream"
stream_api_base_url = "wss://ws-api.binance.com:443/ws-api/v3"
api_key = "key"
secret_key = "secret"
subscribed_symbols = ["BTCUSDT", "ETHUSDT"]
subscribed_kline_intervals = ["1m", "5m"]
`

func writeConf(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "platform_conf.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write conf: %v", err)
	}
	return path
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	res, err := Validate(writeConf(t, goodConf))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !res.Valid() {
		t.Fatalf("expected valid config, problems: %v", res.Problems)
	}
	if len(res.Markets) != 1 || res.Markets[0] != "binance_spot" {
		t.Fatalf("unexpected markets: %v", res.Markets)
	}
	if res.DBPath != "data/market.db" {
		t.Fatalf("unexpected db_path: %s", res.DBPath)
	}
	if res.Proxy != "socks5://127.0.0.1:10808" {
		t.Fatalf("unexpected proxy: %s", res.Proxy)
	}
}

// The platform's own loader reads each market table at the top level of the
// file, with tuning keys and rate limits alongside the required connection
// keys; a config shaped like its reference fixture must pass untouched.
func TestValidateAcceptsFullPlatformConfig(t *testing.T) {
	conf := `
markets = ["binance_spot"]
db_path = "test_db_path"

[proxy]
url = "socks5://127.0.0.1:10808"

[binance_spot]
cache_capacity = 100
market_refresh_interval_secs = 30
trade_refresh_interval_secs = 5
api_base_url = "https://testnet.binance.vision"
stream_base_url = "wss://stream.binance.com:9443/stream"
stream_api_base_url = "wss://ws-api.testnet.binance.vision/ws-api/v3"
api_key = "GMh8WTFiTiRPpbt1EFwYaDEunKN9gJy9qgRyYF8irvSYCdgjYcIaACDeyfKFOMcq"
secret_key = "NgIxnbabjf6cTnPYZpyVDAP7UoVNm3wzhJcLh89FYWSA5SkXJlCZD0yDCQcA4R33"
subscribed_symbols = ["BTCUSDT", "ETHUSDT"]
subscribed_kline_intervals = ["1m", "5m"]
api_rate_limits = [[1000, 500], [60000, 5000]]
stream_rate_limits = [[1000, 500]]
stream_api_rate_limits = [[1000, 500]]
kline_event_channel_capacity = 5000
api_timeout_milli_secs = 30000
stream_reconnect_interval_milli_secs = 3000
`
	res, err := Validate(writeConf(t, conf))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !res.Valid() {
		t.Fatalf("reference-shaped config must validate, problems: %v", res.Problems)
	}
}

func TestValidateRejectsNestedMarketTable(t *testing.T) {
	// Market tables nested under a configs table are not what the platform
	// reads; the market's own top-level table is required.
	conf := `
markets = ["binance_spot"]
db_path = "x.db"

[configs.binance_spot]
api_base_url = "https://api.binance.com"
`
	res, err := Validate(writeConf(t, conf))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if res.Valid() {
		t.Fatal("expected problems for missing top-level market table")
	}
	found := false
	for _, p := range res.Problems {
		if strings.HasPrefix(p, "binance_spot:") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a binance_spot table problem, got %v", res.Problems)
	}
}

func TestValidateFlagsMissingMarketTable(t *testing.T) {
	res, err := Validate(writeConf(t, "markets = [\"binance_spot\"]\ndb_path = \"x.db\"\n"))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if res.Valid() {
		t.Fatal("expected problems for missing market table")
	}
}

func TestValidateFlagsEmptyConnectionKeys(t *testing.T) {
	conf := strings.Replace(goodConf, `api_key = "key"`, `api_key = ""`, 1)
	res, err := Validate(writeConf(t, conf))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if res.Valid() {
		t.Fatal("expected problem for empty api_key")
	}
}

func TestValidateFlagsMissingKlineIntervals(t *testing.T) {
	conf := strings.Replace(goodConf, "subscribed_kline_intervals = [\"1m\", \"5m\"]\n", "", 1)
	res, err := Validate(writeConf(t, conf))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if res.Valid() {
		t.Fatal("expected problem for missing subscribed_kline_intervals")
	}
	found := false
	for _, p := range res.Problems {
		if strings.Contains(p, "subscribed_kline_intervals") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a subscribed_kline_intervals problem, got %v", res.Problems)
	}
}

func TestValidateFlagsMissingTopLevelKeys(t *testing.T) {
	res, err := Validate(writeConf(t, "# empty\n"))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(res.Problems) < 2 {
		t.Fatalf("expected markets and db_path problems, got %v", res.Problems)
	}
}

func TestValidateRejectsMalformedTOML(t *testing.T) {
	if _, err := Validate(writeConf(t, "markets = [unterminated")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidateMissingFile(t *testing.T) {
	if _, err := Validate(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
