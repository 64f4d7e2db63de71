package obsws

import (
    "net"
    "strings"
)

// DefaultPort は obs-websocket の既定ポート。
const DefaultPort = "4455"

// NormalizeObsAddr は goobs.New に渡せる host:port に整える。
// ws:// や wss://、末尾の / を除去し、ポート省略時は 4455 を補う。
func NormalizeObsAddr(a string) string {
    a = strings.TrimSpace(a)
    a = strings.TrimPrefix(a, "ws://")
    a = strings.TrimPrefix(a, "wss://")
    a = strings.TrimSuffix(a, "/")
    if a == "" {
        return ""
    }
    if _, _, err := net.SplitHostPort(a); err != nil {
        return net.JoinHostPort(strings.Trim(a, "[]"), DefaultPort)
    }
    return a
}
