package config

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"
)

// Config は midiinput の設定ファイル。
type Config struct {
    // MIDI 入力
    Transport    string `json:"transport"` // rtmidi|ble
    Device       string `json:"device"`
    Channels     string `json:"channels"`    // 例: "1,2"（空=全）
    NRPNEvents   *bool  `json:"nrpn_events"` // 未指定は有効
    OctaveOffset int    `json:"octave_offset"`
    // ルーティング
    Debounce  string  `json:"debounce"`   // 例: "30ms"
    RateLimit string  `json:"rate_limit"` // 例: "50ms"
    LogLevel  string  `json:"log_level"`  // debug|info|warn|error
    OBS       OBS     `json:"obs"`
    Routes    []Route `json:"routes"`
}

type OBS struct {
    Addrs     []string `json:"addrs"` // host:port （ws:// 不要）
    Password  string   `json:"password"`
    Passwords []string `json:"passwords"` // addrs と同順の個別パスワード
    Timeout   string   `json:"timeout"`
}

// Route は MIDI イベント → シーンの対応。
// Number は type に応じてノート番号/プログラム番号/CC番号/NRPNパラメータ番号。
type Route struct {
    Type    string `json:"type"` // note_on|program_change|control_change|nrpn
    Channel int    `json:"channel"`
    Number  int    `json:"number"`
    Scene   string `json:"scene"`
}

func Default() *Config {
    on := true
    return &Config{
        Transport:  "rtmidi",
        NRPNEvents: &on,
        Debounce:   "30ms",
        RateLimit:  "50ms",
        LogLevel:   "info",
        OBS:        OBS{Addrs: []string{"127.0.0.1:4455"}, Timeout: "5s"},
        Routes:     []Route{},
    }
}

// NRPNEnabled は nrpn_events の値（未指定なら true）。
func (c *Config) NRPNEnabled() bool {
    return c.NRPNEvents == nil || *c.NRPNEvents
}

// Durations は debounce/rate_limit/obs.timeout を解釈する。空は 0。
func (c *Config) Durations() (debounce, rateLimit, timeout time.Duration, err error) {
    parse := func(field, v string) (time.Duration, error) {
        v = strings.TrimSpace(v)
        if v == "" {
            return 0, nil
        }
        d, err := time.ParseDuration(v)
        if err != nil {
            return 0, fmt.Errorf("%s の値が不正です (%q): %w", field, v, err)
        }
        return d, nil
    }
    if debounce, err = parse("debounce", c.Debounce); err != nil {
        return
    }
    if rateLimit, err = parse("rate_limit", c.RateLimit); err != nil {
        return
    }
    timeout, err = parse("obs.timeout", c.OBS.Timeout)
    return
}

// DefaultPath は OS 毎の規定の設定ディレクトリ配下のパス。
func DefaultPath() (string, error) {
    dir, err := os.UserConfigDir()
    if err != nil {
        return "", err
    }
    return filepath.Join(dir, "midiinput", "config.json"), nil
}

// Load は設定を読み込みます。無い場合は (nil, os.ErrNotExist) を返します。
func Load(path string) (*Config, error) {
    bt, err := os.ReadFile(path)
    if err != nil {
        if errors.Is(err, os.ErrNotExist) {
            return nil, os.ErrNotExist
        }
        return nil, err
    }
    c := Default()
    c.Routes = nil
    if err := json.Unmarshal(bt, c); err != nil {
        return nil, fmt.Errorf("%s: %w", path, err)
    }
    return c, nil
}

// Save は設定を保存します。ディレクトリが無ければ作ります。
func Save(path string, c *Config) error {
    if c == nil {
        return errors.New("nil config")
    }
    if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
        return err
    }
    bt, err := json.MarshalIndent(c, "", "  ")
    if err != nil {
        return err
    }
    return os.WriteFile(path, bt, 0o600)
}
