package main

import (
    "context"
    "flag"
    "fmt"
    "os"
    "os/signal"
    "strings"
    "syscall"
    "time"

    "github.com/samber/lo"

    "midiinput/internal/config"
    "midiinput/internal/midi"
    "midiinput/internal/obsws"
    "midiinput/internal/route"
)

// routeFlags は route サブコマンド固有のフラグ。
type routeFlags struct {
    addrs     *string
    password  *string
    passwords *string
    timeout   *time.Duration
    debounce  *time.Duration
    ratelimit *time.Duration
    delay     *time.Duration
    spinWin   *time.Duration
    maps      multiFlag
}

func addRouteFlags(fs *flag.FlagSet) *routeFlags {
    r := &routeFlags{
        addrs:     fs.String("addrs", "127.0.0.1:4455", "OBS WebSocket のアドレスをカンマ区切り（host:port）"),
        password:  fs.String("password", "", "OBS WebSocket のパスワード（共通）"),
        passwords: fs.String("passwords", "", "複数接続の個別パスワード。-addrs と同じ順でカンマ区切り（数が合わない場合は無視）"),
        timeout:   fs.Duration("timeout", 5*time.Second, "OBS リクエストのタイムアウト"),
        debounce:  fs.Duration("debounce", 30*time.Millisecond, "デバウンス間隔"),
        ratelimit: fs.Duration("ratelimit", 50*time.Millisecond, "レート制限の最短間隔"),
        delay:     fs.Duration("delay", 0, "受信からシーン切替までの遅延。全OBSで同じ時刻に発火する（例: 150ms）"),
        spinWin:   fs.Duration("spinwin", 2*time.Millisecond, "精密発火のスピン待機時間（-delay 指定時）"),
    }
    fs.Var(&r.maps, "map", "イベント→シーンの対応（複数可）。例: note_on:1:36=028_エンドロール（type:ch:num=scene）")
    return r
}

// mergeRoute は未指定のフラグに設定ファイルの値を入れ、ルールを組み立てる。
// ルールは設定 → -map の順で、同じキーは -map が優先。
func mergeRoute(cfg *config.Config, set map[string]bool, r *routeFlags) ([]route.Rule, error) {
    var rules []route.Rule
    if cfg != nil {
        if !set["addrs"] && len(cfg.OBS.Addrs) > 0 {
            *r.addrs = strings.Join(cfg.OBS.Addrs, ",")
        }
        if !set["password"] && cfg.OBS.Password != "" {
            *r.password = cfg.OBS.Password
        }
        if !set["passwords"] && len(cfg.OBS.Passwords) > 0 {
            *r.passwords = strings.Join(cfg.OBS.Passwords, ",")
        }
        debounce, rateLimit, timeout, err := cfg.Durations()
        if err != nil {
            return nil, err
        }
        if !set["debounce"] && strings.TrimSpace(cfg.Debounce) != "" {
            *r.debounce = debounce
        }
        if !set["ratelimit"] && strings.TrimSpace(cfg.RateLimit) != "" {
            *r.ratelimit = rateLimit
        }
        if !set["timeout"] && strings.TrimSpace(cfg.OBS.Timeout) != "" {
            *r.timeout = timeout
        }
        for i, rc := range cfg.Routes {
            rule, err := route.FromConfig(rc)
            if err != nil {
                return nil, fmt.Errorf("routes[%d]: %w", i, err)
            }
            rules = append(rules, rule)
        }
    }
    for _, m := range r.maps {
        rule, err := route.ParseRule(m)
        if err != nil {
            return nil, fmt.Errorf("-map: %w", err)
        }
        rules = append(rules, rule)
    }
    return rules, nil
}

// switcherOptions は OBS 接続の設定を組み立てる。個別パスワードの数が合わなければ共通を使う。
func (r *routeFlags) switcherOptions() obsws.Options {
    targets := splitList(*r.addrs)
    var pwlist []string
    if strings.TrimSpace(*r.passwords) != "" {
        pws := strings.Split(*r.passwords, ",")
        if len(pws) == len(targets) {
            pwlist = pws
        } else {
            log.Warnf("-passwords の数 (%d) が -addrs の数 (%d) と一致しません。-password（共通）を使用します。", len(pws), len(targets))
        }
    }
    return obsws.Options{
        Addrs:     targets,
        Password:  *r.password,
        Passwords: pwlist,
        Timeout:   *r.timeout,
        SpinWin:   *r.spinWin,
        Log:       log,
    }
}

func runRoute(args []string) {
    fs := flag.NewFlagSet("route", flag.ExitOnError)
    f := addInputFlags(fs)
    r := addRouteFlags(fs)
    fs.Usage = routeUsage
    _ = fs.Parse(args)

    cfg, err := loadConfig(*f.configPath)
    if err != nil {
        log.Fatal(err)
    }
    set := setFlagNames(fs)
    mergeInput(cfg, set, f)
    setupLogLevel(cfg, *f.debug)
    rules, err := mergeRoute(cfg, set, r)
    if err != nil {
        log.Fatal(err)
    }
    if len(rules) == 0 {
        log.Warn("イベント→シーンのマッピングが指定されていません。-map \"note_on:1:36=Scene\" のように指定してください。")
    }
    log.Debugf("addrs=%s device=%s channel=%s debounce=%s ratelimit=%s timeout=%s rules=%d", *r.addrs, *f.device, *f.channel, *r.debounce, *r.ratelimit, *r.timeout, len(rules))

    channels, err := parseChannels(*f.channel)
    if err != nil {
        log.Fatal(err)
    }
    rules = filterRules(rules, channels)

    sw, err := obsws.Dial(r.switcherOptions())
    if err != nil {
        log.Fatal(err)
    }

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    err = serveRoute(ctx, sw, f, r, rules, openInput)
    stop()
    sw.Close()
    if err != nil {
        log.WithError(err).Error("ルーティングを開始できませんでした")
        os.Exit(1)
    }
    log.Info("終了します")
}

// serveRoute は入力を開いてルーターを繋ぎ、ctx が終わるまで待つ。
// 開始できなかった場合は開いた入力を片付けてエラーを返す。
func serveRoute(ctx context.Context, sw route.SceneSwitcher, f *inputFlags, r *routeFlags, rules []route.Rule, open func(*inputFlags) (*midi.Input, error)) error {
    in, err := open(f)
    if err != nil {
        return fmt.Errorf("MIDI 入力のオープンに失敗: %w", err)
    }
    defer in.Destroy()

    router := route.New(ctx, sw, rules, route.Options{
        Debounce:  *r.debounce,
        RateLimit: *r.ratelimit,
        Delay:     *r.delay,
        Log:       log,
    })
    if err := router.Attach(in); err != nil {
        return fmt.Errorf("購読に失敗: %w", err)
    }
    defer router.Detach(in)
    if _, err := in.AddListener(midi.Disconnected, nil, logEvent); err != nil {
        log.WithError(err).Warn("切断通知の購読に失敗")
    }
    log.Infof("MIDI 受信開始: device=%s rules=%d", in.Name(), len(rules))
    <-ctx.Done()
    return nil
}

// filterRules は -channel 指定時に対象外チャネルのルールを除く。
func filterRules(rules []route.Rule, channels []int) []route.Rule {
    if len(channels) == 0 {
        return rules
    }
    return lo.Filter(rules, func(rule route.Rule, _ int) bool { return lo.Contains(channels, rule.Channel) })
}

func routeUsage() {
    fmt.Fprintln(os.Stderr, "Usage: midiinput route [options]")
    fmt.Fprintln(os.Stderr, "\n説明: MIDI 入力を監視し、イベントに応じて複数の OBS のシーンを切り替えます。")
    fmt.Fprintln(os.Stderr, "\n主なオプション:")
    fmt.Fprintln(os.Stderr, "  -addrs         OBS のアドレスをカンマ区切り (host:port)")
    fmt.Fprintln(os.Stderr, "  -password      パスワード（全接続共通）")
    fmt.Fprintln(os.Stderr, "  -passwords     個別パスワードをカンマ区切り（-addrs と同順・同数）。一致しない場合は無視して -password を使用")
    fmt.Fprintln(os.Stderr, "  -device        監視する MIDI 入力デバイス名")
    fmt.Fprintln(os.Stderr, "  -transport     rtmidi|ble (default: rtmidi)")
    fmt.Fprintln(os.Stderr, "  -channel       受け付ける MIDI チャネル (1-16、カンマ区切り)")
    fmt.Fprintln(os.Stderr, "  -nrpn          NRPN イベントを組み立てる (true/false)")
    fmt.Fprintln(os.Stderr, "  -debounce      デバウンス間隔 (例: 30ms)")
    fmt.Fprintln(os.Stderr, "  -ratelimit     レート制限の最短間隔 (例: 50ms)")
    fmt.Fprintln(os.Stderr, "  -timeout       OBS リクエストのタイムアウト (例: 5s)")
    fmt.Fprintln(os.Stderr, "  -delay         受信からシーン切替までの遅延。全OBSで同時刻に発火 (例: 150ms)")
    fmt.Fprintln(os.Stderr, "  -spinwin       発火前スピン時間 (精度/CPUバランス)")
    fmt.Fprintln(os.Stderr, "  -map           イベント→シーンの対応（複数可）。type は note_on|program_change|control_change|nrpn")
    fmt.Fprintln(os.Stderr, "                 例: note_on:1:36=SceneA  nrpn:1:130=SceneB")
    fmt.Fprintln(os.Stderr, "  -config        JSON設定ファイルパス（transport/device/channels/debounce/rate_limit/obs/routes）")
    fmt.Fprintln(os.Stderr, "  -debug         デバッグログを有効化")
}
