package main

import (
    "context"
    "encoding/json"
    "errors"
    "flag"
    "fmt"
    "os"
    "strconv"
    "strings"
    "time"

    "midiinput/internal/config"
    "midiinput/internal/obsws"
    "midiinput/internal/route"
)

func runConfig(args []string) {
    if len(args) > 0 && args[0] == "gen" {
        runConfigGen(args[1:])
        return
    }
    if len(args) == 0 || args[0] != "init" {
        configUsage()
        os.Exit(2)
    }
    fs := flag.NewFlagSet("config init", flag.ExitOnError)
    path := fs.String("path", "", "書き込み先（未指定は既定パス）")
    force := fs.Bool("force", false, "既存ファイルを上書きする")
    fs.Usage = configUsage
    _ = fs.Parse(args[1:])

    p, err := configInit(*path, *force)
    if err != nil {
        log.Fatal(err)
    }
    fmt.Println(p)
}

// configInit は既定の設定を書き出し、書いたパスを返す。
func configInit(path string, force bool) (string, error) {
    if strings.TrimSpace(path) == "" {
        p, err := config.DefaultPath()
        if err != nil {
            return "", fmt.Errorf("既定の設定パスを取得できません: %w", err)
        }
        path = p
    }
    if !force {
        if _, err := os.Stat(path); err == nil {
            return "", fmt.Errorf("既に存在します（上書きは -force）: %s", path)
        } else if !errors.Is(err, os.ErrNotExist) {
            return "", err
        }
    }
    if err := config.Save(path, config.Default()); err != nil {
        return "", fmt.Errorf("設定の保存に失敗: %w", err)
    }
    return path, nil
}

// runConfigGen は OBS からシーン一覧を取得し、連番のルートを持つ設定 JSON を標準出力へ書く。
// 例: midiinput config gen -addr 127.0.0.1:4455 -password ****** -channel 1 -start 36
func runConfigGen(args []string) {
    fs := flag.NewFlagSet("config gen", flag.ExitOnError)
    addr := fs.String("addr", "127.0.0.1:4455", "OBS のアドレス (host:port)")
    password := fs.String("password", "", "OBS のパスワード")
    typ := fs.String("type", "note_on", "割り当てる種別: note_on|program_change|control_change|nrpn")
    channel := fs.Int("channel", 1, "割り当てる MIDI チャネル (1-16)")
    start := fs.Int("start", 36, "割り当て開始番号 (既定36:C2)")
    device := fs.String("device", "", "推奨デバイス名（出力JSONに記録するだけ）")
    timeout := fs.Duration("timeout", 5*time.Second, "OBS リクエストのタイムアウト")
    fs.Usage = configUsage
    _ = fs.Parse(args)

    sw, err := obsws.Dial(obsws.Options{Addrs: []string{*addr}, Password: *password, Timeout: *timeout, Log: log})
    if err != nil {
        log.Fatalf("OBS 接続失敗: %v", err)
    }
    defer sw.Close()

    scenes, err := sw.SceneNames(context.Background())
    if err != nil {
        log.Fatal(err)
    }
    out, err := generateConfig(scenes, *typ, *channel, *start, *device)
    if err != nil {
        log.Fatal(err)
    }
    os.Stdout.Write(out)
    os.Stdout.WriteString("\n")
}

// generateConfig は既定の設定に連番ルートを載せた JSON を作る。
func generateConfig(scenes []string, typ string, channel, start int, device string) ([]byte, error) {
    routes, err := route.Sequential(scenes, typ, channel, start)
    if err != nil {
        return nil, err
    }
    if len(routes) < len(scenes) {
        log.Warnf("番号が足りないため %d 件のシーンを割り当てませんでした", len(scenes)-len(routes))
    }
    cfg := config.Default()
    cfg.Device = device
    cfg.Channels = strconv.Itoa(channel)
    cfg.Routes = routes
    return json.MarshalIndent(cfg, "", "  ")
}

func configUsage() {
    fmt.Fprintln(os.Stderr, "Usage: midiinput config init [-path file] [-force] | gen [options]")
    fmt.Fprintln(os.Stderr, "\n説明: 既定値の JSON 設定ファイルを書き出します。gen は OBS のシーン一覧から連番ルートを生成し標準出力へ書きます。")
    fmt.Fprintln(os.Stderr, "\ninit のオプション:")
    fmt.Fprintln(os.Stderr, "  -path   書き込み先（既定: OS の設定ディレクトリ/midiinput/config.json）")
    fmt.Fprintln(os.Stderr, "  -force  既存ファイルを上書きする")
    fmt.Fprintln(os.Stderr, "\ngen のオプション:")
    fmt.Fprintln(os.Stderr, "  -addr      OBS のアドレス (host:port)")
    fmt.Fprintln(os.Stderr, "  -password  パスワード")
    fmt.Fprintln(os.Stderr, "  -type      note_on|program_change|control_change|nrpn (default: note_on)")
    fmt.Fprintln(os.Stderr, "  -channel   割り当てる MIDI チャネル (1-16)")
    fmt.Fprintln(os.Stderr, "  -start     割り当て開始番号")
    fmt.Fprintln(os.Stderr, "  -device    出力JSONに記録するデバイス名")
}
