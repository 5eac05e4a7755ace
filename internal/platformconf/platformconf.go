// platformconf.go validates the shape of a platform_conf.toml before it ships.
//
// The platform itself is an opaque build target; the only contract checked
// here is the set of keys its boot sequence refuses to start without. The
// file is never interpreted beyond that.
package platformconf

import (
	"fmt"

	"github.com/spf13/viper"
)

// Keys every market table must carry for the platform to connect.
var requiredMarketKeys = []string{
	"api_base_url",
	"stream_base_url",
	"stream_api_base_url",
	"api_key",
	"secret_key",
}

// List-valued market keys the platform has no defaults for.
var requiredMarketLists = []string{
	"subscribed_symbols",
	"subscribed_kline_intervals",
}

// Result describes one validated configuration file.
type Result struct {
	Path     string   `json:"path"`
	Markets  []string `json:"markets"`
	DBPath   string   `json:"dbPath"`
	Proxy    string   `json:"proxy,omitempty"`
	Problems []string `json:"problems,omitempty"`
}

// Valid reports whether the file carries everything the platform requires.
func (r *Result) Valid() bool { return r != nil && len(r.Problems) == 0 }

// Validate parses path as TOML and checks the platform's boot requirements:
// a non-empty markets list, a db_path, and a top-level table per market name
// with the connection keys filled in. Parse and I/O failures are returned as
// errors; shape defects are accumulated in Result.Problems.
func Validate(path string) (*Result, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	res := &Result{Path: path}
	res.Markets = v.GetStringSlice("markets")
	if len(res.Markets) == 0 {
		res.Problems = append(res.Problems, "markets: missing or empty")
	}
	res.DBPath = v.GetString("db_path")
	if res.DBPath == "" {
		res.Problems = append(res.Problems, "db_path: missing")
	}
	if v.IsSet("proxy") {
		res.Proxy = v.GetString("proxy.url")
		if res.Proxy == "" {
			res.Problems = append(res.Problems, "proxy: present but proxy.url is empty")
		}
	}
	// Each market's table sits at the top level of the file, keyed by the
	// market name itself.
	for _, market := range res.Markets {
		if !v.IsSet(market) {
			res.Problems = append(res.Problems, fmt.Sprintf("%s: market listed but table missing", market))
			continue
		}
		for _, key := range requiredMarketKeys {
			if v.GetString(market+"."+key) == "" {
				res.Problems = append(res.Problems, fmt.Sprintf("%s.%s: missing or empty", market, key))
			}
		}
		for _, key := range requiredMarketLists {
			if len(v.GetStringSlice(market+"."+key)) == 0 {
				res.Problems = append(res.Problems, fmt.Sprintf("%s.%s: missing or empty", market, key))
			}
		}
	}
	return res, nil
}
