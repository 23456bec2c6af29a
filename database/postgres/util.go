package postgres

import (
	"database/sql"
	"os"
	"strings"

	"github.com/pkg/errors"
)

type param struct {
	key, value string
}

// parseParams splits libpq key=value connection params. Values can be
// single-quoted with \' and \\ escapes, as returned by pq.ParseURL.
func parseParams(s string) ([]param, error) {
	var params []param
	for {
		s = strings.TrimLeft(s, " \t\n")
		if s == "" {
			return params, nil
		}
		eq := strings.IndexByte(s, '=')
		if eq <= 0 {
			return nil, errors.Errorf("missing value for connection param %q", s)
		}
		key := strings.TrimSpace(s[:eq])
		s = strings.TrimLeft(s[eq+1:], " \t\n")

		var value strings.Builder
		if strings.HasPrefix(s, "'") {
			i := 1
			for ; i < len(s) && s[i] != '\''; i++ {
				if s[i] == '\\' && i+1 < len(s) {
					i++
				}
				value.WriteByte(s[i])
			}
			if i >= len(s) {
				return nil, errors.Errorf("unterminated quote in connection param %s", key)
			}
			s = s[i+1:]
		} else {
			end := strings.IndexAny(s, " \t\n")
			if end < 0 {
				end = len(s)
			}
			value.WriteString(s[:end])
			s = s[end:]
		}
		params = append(params, param{key, value.String()})
	}
}

func formatParams(params []param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		v := p.value
		if v == "" || strings.ContainsAny(v, ` '\`+"\t\n") {
			v = "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
		}
		parts[i] = p.key + "=" + v
	}
	return strings.Join(parts, " ")
}

// disableDefaultSslOnLocalhost adds sslmode=disable for connections to
// localhost, unless sslmode or PGSSLMODE is set.
func disableDefaultSslOnLocalhost(params []param) []param {
	isLocalHost := false
	for _, p := range params {
		if p.key == "sslmode" {
			return params
		}
		if p.key == "host" && (p.value == "localhost" || p.value == "127.0.0.1") {
			isLocalHost = true
		}
	}

	if !isLocalHost {
		return params
	}

	if _, ok := os.LookupEnv("PGSSLMODE"); ok {
		return params
	}

	// found localhost but explicit no sslmode, disable sslmode
	return append(params, param{"sslmode", "disable"})
}

// stripParam removes key from params and returns the remaining params and
// the value of key.
func stripParam(params []param, key string) ([]param, string) {
	var value string
	rest := make([]param, 0, len(params))
	for _, p := range params {
		if p.key == key {
			value = p.value
			continue
		}
		rest = append(rest, p)
	}
	return rest, value
}

func normalizePrefix(prefix string) string {
	if prefix == "" {
		return "osm_"
	}
	if prefix[len(prefix)-1] != '_' {
		prefix = prefix + "_"
	}
	return prefix
}

func rollbackIfTx(tx **sql.Tx) {
	if *tx != nil {
		(*tx).Rollback()
		*tx = nil
	}
}
