package main

import (
    "errors"
    "flag"
    "fmt"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/samber/lo"
    "github.com/sirupsen/logrus"

    "midiinput/internal/config"
    "midiinput/internal/midi"
)

// inputFlags は listen/route 共通の MIDI 入力フラグ。
type inputFlags struct {
    configPath  *string
    transport   *string
    device      *string
    channel     *string
    nrpn        *bool
    octave      *int
    scanTimeout *time.Duration
    debug       *bool
}

func addInputFlags(fs *flag.FlagSet) *inputFlags {
    return &inputFlags{
        configPath:  fs.String("config", "", "JSON設定ファイルへのパス（未指定なら既定パスがあれば読込）"),
        transport:   fs.String("transport", "rtmidi", "MIDI 入力の種類: rtmidi|ble"),
        device:      fs.String("device", "", "監視する MIDI 入力デバイス名"),
        channel:     fs.String("channel", "", "受け付ける MIDI チャネル (1-16、カンマ区切り。未指定は全て)"),
        nrpn:        fs.Bool("nrpn", true, "CC の並びから NRPN イベントを組み立てる"),
        octave:      fs.Int("octave-offset", 0, "ノートのオクターブ表記のずらし幅"),
        scanTimeout: fs.Duration("scan-timeout", 10*time.Second, "BLE デバイス探索のタイムアウト"),
        debug:       fs.Bool("debug", false, "デバッグログを有効化"),
    }
}

// setFlagNames は明示指定されたフラグ名の集合。
func setFlagNames(fs *flag.FlagSet) map[string]bool {
    set := map[string]bool{}
    fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
    return set
}

// loadConfig は -config、無ければ既定パスの設定を読む。
// 既定パスに無いのは正常（nil, nil）。
func loadConfig(path string) (*config.Config, error) {
    explicit := strings.TrimSpace(path) != ""
    if !explicit {
        p, err := config.DefaultPath()
        if err != nil {
            return nil, nil
        }
        path = p
    }
    cfg, err := config.Load(path)
    if err != nil {
        if errors.Is(err, os.ErrNotExist) && !explicit {
            return nil, nil
        }
        return nil, fmt.Errorf("-config の読み込みに失敗しました: %w", err)
    }
    log.Debugf("設定読込: %s", path)
    return cfg, nil
}

// mergeInput は未指定のフラグに設定ファイルの値を入れる（フラグ優先）。
func mergeInput(cfg *config.Config, set map[string]bool, f *inputFlags) {
    if cfg == nil {
        return
    }
    if !set["transport"] && strings.TrimSpace(cfg.Transport) != "" {
        *f.transport = cfg.Transport
    }
    if !set["device"] && strings.TrimSpace(cfg.Device) != "" {
        *f.device = cfg.Device
    }
    if !set["channel"] && strings.TrimSpace(cfg.Channels) != "" {
        *f.channel = cfg.Channels
    }
    if !set["nrpn"] {
        *f.nrpn = cfg.NRPNEnabled()
    }
    if !set["octave-offset"] {
        *f.octave = cfg.OctaveOffset
    }
    if !set["debug"] && strings.EqualFold(strings.TrimSpace(cfg.LogLevel), "debug") {
        *f.debug = true
    }
}

// setupLogLevel は -debug か設定の log_level でレベルを決める。
func setupLogLevel(cfg *config.Config, debug bool) {
    if debug {
        log.SetLevel(logrus.DebugLevel)
        return
    }
    if cfg == nil || strings.TrimSpace(cfg.LogLevel) == "" {
        return
    }
    lvl, err := logrus.ParseLevel(cfg.LogLevel)
    if err != nil {
        log.Warnf("log_level が不正です（%q）。info を使用します。", cfg.LogLevel)
        return
    }
    log.SetLevel(lvl)
}

// parseChannels は "1,2,10" を解析する。範囲外や数値以外はエラー。
func parseChannels(s string) ([]int, error) {
    if strings.TrimSpace(s) == "" {
        return nil, nil
    }
    parts := lo.Filter(strings.Split(s, ","), func(p string, _ int) bool { return strings.TrimSpace(p) != "" })
    out := make([]int, 0, len(parts))
    for _, p := range parts {
        v, err := strconv.Atoi(strings.TrimSpace(p))
        if err != nil || v < 1 || v > 16 {
            return nil, fmt.Errorf("チャネルは 1..16 を指定してください: %q", strings.TrimSpace(p))
        }
        out = append(out, v)
    }
    return lo.Uniq(out), nil
}

// openInput は transport に応じて入力を開く。
func openInput(f *inputFlags) (*midi.Input, error) {
    if strings.TrimSpace(*f.device) == "" {
        return nil, errors.New("-device を指定してください（JSONの device も利用可）。利用可能なデバイスは 'midiinput devices' で確認できます。")
    }
    opts := []midi.Option{
        midi.WithNRPNEvents(*f.nrpn),
        midi.WithOctaveOffset(*f.octave),
        midi.WithLogger(log),
    }
    switch strings.ToLower(strings.TrimSpace(*f.transport)) {
    case "", "rtmidi":
        return midi.OpenInput(*f.device, opts...)
    case "ble":
        return midi.OpenBLEInput(*f.device, *f.scanTimeout, opts...)
    default:
        return nil, fmt.Errorf("-transport は rtmidi か ble を指定してください（指定値: %s）", *f.transport)
    }
}

// multiFlag は同名フラグの複数指定を受け取るためのヘルパ。
type multiFlag []string

func (m *multiFlag) String() string     { return strings.Join(*m, ",") }
func (m *multiFlag) Set(s string) error { *m = append(*m, s); return nil }

// splitList はカンマ区切りを trim して返す。空要素は捨てる。
func splitList(s string) []string {
    return lo.FilterMap(strings.Split(s, ","), func(p string, _ int) (string, bool) {
        p = strings.TrimSpace(p)
        return p, p != ""
    })
}
