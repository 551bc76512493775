package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// lookup returns the trimmed value of k, or "" when unset.
func lookup(k string) string { return strings.TrimSpace(os.Getenv(k)) }

func envStr(k, d string) string {
    if v := lookup(k); v != "" {
        return v
    }
    return d
}

// envBool accepts anything strconv.ParseBool does plus yes/no and on/off.
func envBool(k string, d bool) bool {
    switch v := strings.ToLower(lookup(k)); v {
    case "":
        return d
    case "yes", "on":
        return true
    case "no", "off":
        return false
    default:
        if b, err := strconv.ParseBool(v); err == nil {
            return b
        }
        return d
    }
}

func envInt(k string, d int) int {
    if n, err := strconv.Atoi(lookup(k)); err == nil {
        return n
    }
    return d
}

func envDur(k string, d time.Duration) time.Duration {
    if dur, err := time.ParseDuration(lookup(k)); err == nil {
        return dur
    }
    return d
}

// envSet splits a comma separated list into an upper-cased set.
func envSet(k, d string) map[string]bool {
    m := map[string]bool{}
    for _, p := range strings.Split(envStr(k, d), ",") {
        if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
            m[p] = true
        }
    }
    return m
}
