package main

import (
    "fmt"
    "os"

    "github.com/sirupsen/logrus"

    "midiinput/internal/midi"
)

// これらは ldflags で上書き可能:
// go build -ldflags "-X main.version=1.2.3 -X main.commit=abcd123 -X main.date=2025-08-12T01:23:45Z"
var (
    version = "dev"
    commit  = "none"
    date    = "unknown"
)

var log = logrus.New()

func main() {
    log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

    if len(os.Args) < 2 {
        usage()
        os.Exit(2)
    }

    switch os.Args[1] {
    case "listen":
        runListen(os.Args[2:])
    case "route":
        runRoute(os.Args[2:])
    case "devices", "ls-devices":
        runDevices()
    case "config":
        runConfig(os.Args[2:])
    case "version", "-v", "--version":
        printVersion()
    case "help", "-h", "--help":
        if len(os.Args) > 2 {
            switch os.Args[2] {
            case "listen":
                listenUsage()
            case "route":
                routeUsage()
            case "config":
                configUsage()
            default:
                usage()
            }
        } else {
            usage()
        }
    default:
        log.Errorf("不明なサブコマンド: %s", os.Args[1])
        usage()
        os.Exit(2)
    }
}

func usage() {
    fmt.Println("midiinput - MIDI 入力イベントの受信とルーティング")
    fmt.Println("")
    fmt.Println("使用方法:")
    fmt.Println("  midiinput <command> [options]")
    fmt.Println("")
    fmt.Println("コマンド:")
    fmt.Println("  listen    MIDI 入力を開き、全イベントをログに出す")
    fmt.Println("  route     MIDI イベントに応じて OBS のシーンを切り替える")
    fmt.Println("  devices   利用可能な MIDI 入力デバイス一覧を表示")
    fmt.Println("  config    設定ファイルの作成（config init）と生成（config gen）")
    fmt.Println("  version   バージョン情報を表示")
    fmt.Println("")
    fmt.Println("ヘルプ:")
    fmt.Println("  midiinput help listen   受信の詳細ヘルプ")
    fmt.Println("  midiinput help route    ルーティングの詳細ヘルプ")
    fmt.Println("")
    fmt.Println("例:")
    fmt.Println("  midiinput listen -device 'IAC Driver Bus 1' -channel 1,2")
    fmt.Println("  midiinput listen -transport ble -device 'WIDI Master' -nrpn=false")
    fmt.Println("  midiinput route -addrs 127.0.0.1:4455 -password ****** -device 'IAC Driver Bus 1' -map note_on:1:36=SceneA -map nrpn:1:130=SceneB")
    fmt.Println("  midiinput config init")
}

func printVersion() {
    fmt.Printf("midiinput %s (commit %s, built %s)\n", version, commit, date)
}

func runDevices() {
    names, err := midi.ListInputs()
    if err != nil {
        log.WithError(err).Error("MIDI デバイス一覧の取得に失敗")
        log.Info("ネイティブMIDI機能はビルドタグ 'midi_native' が必要です。")
        os.Exit(1)
    }
    if len(names) == 0 {
        fmt.Println("(入力デバイスなし)")
        return
    }
    for _, n := range names {
        fmt.Println(n)
    }
}
