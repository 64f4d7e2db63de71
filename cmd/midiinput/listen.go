package main

import (
    "context"
    "flag"
    "fmt"
    "os"
    "os/signal"
    "syscall"

    "github.com/sirupsen/logrus"

    "midiinput/internal/midi"
)

func runListen(args []string) {
    fs := flag.NewFlagSet("listen", flag.ExitOnError)
    f := addInputFlags(fs)
    fs.Usage = listenUsage
    _ = fs.Parse(args)

    cfg, err := loadConfig(*f.configPath)
    if err != nil {
        log.Fatal(err)
    }
    mergeInput(cfg, setFlagNames(fs), f)
    setupLogLevel(cfg, *f.debug)

    channels, err := parseChannels(*f.channel)
    if err != nil {
        log.Fatal(err)
    }

    in, err := openInput(f)
    if err != nil {
        log.WithError(err).Error("MIDI 入力のオープンに失敗")
        os.Exit(1)
    }
    defer in.Destroy()

    if err := subscribeAll(in, channels, logEvent); err != nil {
        log.Fatal(err)
    }
    log.Infof("MIDI 受信開始: device=%s transport=%s nrpn=%v", in.Name(), *f.transport, in.NRPNEventsEnabled())

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()
    <-ctx.Done()
    log.Info("終了します")
}

// subscribeAll は全種別を購読する。チャネル指定はチャネル系のみに効く。
func subscribeAll(in *midi.Input, channels []int, h midi.Handler) error {
    for _, kind := range midi.AllKinds() {
        var chs []int
        if kind.ChannelScoped() {
            chs = channels
        }
        if _, err := in.AddListener(kind, chs, h); err != nil {
            return fmt.Errorf("%s の購読に失敗: %w", kind, err)
        }
    }
    return nil
}

// eventFields はイベントをログ用のフィールドに展開する。
func eventFields(ev midi.Event) logrus.Fields {
    fields := logrus.Fields{"t": fmt.Sprintf("%.3f", ev.Timestamp)}
    if ev.Channel > 0 {
        fields["ch"] = ev.Channel
    }
    if ev.Note != nil {
        fields["note"] = fmt.Sprintf("%s%d(%d)", ev.Note.Name, ev.Note.Octave, ev.Note.Number)
    }
    switch ev.Kind {
    case midi.NoteOn, midi.NoteOff:
        fields["velocity"] = ev.RawVelocity
    case midi.ControlChange, midi.ChannelMode:
        fields["cc"] = ev.Controller.Number
        if ev.Controller.Name != "" {
            fields["name"] = ev.Controller.Name
        }
        fields["value"] = ev.Value
    case midi.NRPN:
        fields["param"] = ev.NRPN.Parameter
        fields["type"] = ev.NRPN.Type
        fields["value"] = ev.NRPN.Value
    case midi.ProgramChange, midi.ChannelAftertouch, midi.KeyAftertouch, midi.PitchBend:
        fields["value"] = ev.Value
    case midi.SongSelect:
        fields["song"] = ev.Song
    case midi.Disconnected:
        if ev.Snapshot != nil {
            fields["port"] = ev.Snapshot.Name
        }
    case midi.Opened, midi.Closed:
        if ev.Target != nil {
            fields["port"] = ev.Target.Name()
        }
    }
    if len(ev.Data) > 0 && log.IsLevelEnabled(logrus.DebugLevel) {
        fields["data"] = fmt.Sprintf("% X", ev.Data)
    }
    return fields
}

func logEvent(ev midi.Event) {
    entry := log.WithFields(eventFields(ev))
    switch ev.Kind {
    case midi.Clock, midi.ActiveSensing:
        // 高頻度なのでデバッグのみ
        entry.Debug(ev.Kind)
    case midi.Disconnected:
        entry.Warn(ev.Kind)
    default:
        entry.Info(ev.Kind)
    }
}

func listenUsage() {
    fmt.Fprintln(os.Stderr, "Usage: midiinput listen [options]")
    fmt.Fprintln(os.Stderr, "\n説明: MIDI 入力を開き、受信した全イベントをログに出力します。Ctrl+C で終了。")
    fmt.Fprintln(os.Stderr, "\n主なオプション:")
    fmt.Fprintln(os.Stderr, "  -device        監視する MIDI 入力デバイス名（完全一致 → 部分一致）")
    fmt.Fprintln(os.Stderr, "  -transport     rtmidi|ble (default: rtmidi)")
    fmt.Fprintln(os.Stderr, "  -channel       受け付ける MIDI チャネル (1-16、カンマ区切り)")
    fmt.Fprintln(os.Stderr, "  -nrpn          NRPN イベントを組み立てる (true/false)")
    fmt.Fprintln(os.Stderr, "  -octave-offset ノートのオクターブ表記のずらし幅")
    fmt.Fprintln(os.Stderr, "  -scan-timeout  BLE デバイス探索のタイムアウト (例: 10s)")
    fmt.Fprintln(os.Stderr, "  -config        JSON設定ファイルパス")
    fmt.Fprintln(os.Stderr, "  -debug         デバッグログを有効化（生データも表示）")
    fmt.Fprintln(os.Stderr, "\n注: rtmidi はビルドタグ 'midi_native'、BLE は 'midi_ble' が必要です。")
}
